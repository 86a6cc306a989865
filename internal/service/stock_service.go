package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"stockroom/internal/model"
	"stockroom/internal/repository"
	"stockroom/pkg/apperror"
	"stockroom/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type CreateItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Type        string  `json:"type"`
	Quantity    int     `json:"quantity" binding:"min=0"`
	Category    string  `json:"category" binding:"required,oneof=general medical"`
	BatchNumber string  `json:"batch_number"`
	ExpiryDate  *string `json:"expiry_date"` // YYYY-MM-DD, required for medical
	UnitType    string  `json:"unit_type" binding:"required,oneof=box pcs"`
	Vendor      string  `json:"vendor"`
}

type UpdateItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Type        string  `json:"type"`
	Category    string  `json:"category" binding:"required,oneof=general medical"`
	BatchNumber string  `json:"batch_number"`
	ExpiryDate  *string `json:"expiry_date"`
	UnitType    string  `json:"unit_type" binding:"required,oneof=box pcs"`
	Vendor      string  `json:"vendor"`
}

type ItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	Category    string `json:"category"`
	BatchNumber string `json:"batch_number,omitempty"`
	ExpiryDate  string `json:"expiry_date,omitempty"`
	UnitType    string `json:"unit_type"`
	Vendor      string `json:"vendor,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// StockService covers the stock item catalog. Quantity mutations live on
// LedgerService; the initial quantity on creation is the only exception.
type StockService interface {
	GetItems(ctx context.Context, page, limit int, search, category string) ([]ItemResponse, int64, error)
	GetItem(ctx context.Context, id string) (ItemResponse, error)
	CreateItem(ctx context.Context, userID string, req CreateItemRequest) (ItemResponse, error)
	UpdateItem(ctx context.Context, userID string, id string, req UpdateItemRequest) (ItemResponse, error)
	DeleteItem(ctx context.Context, userID string, id string) error
}

type stockService struct {
	itemRepo  repository.StockItemRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewStockService(
	itemRepo repository.StockItemRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) StockService {
	return &stockService{
		itemRepo:  itemRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

func (s *stockService) GetItems(ctx context.Context, page, limit int, search, category string) ([]ItemResponse, int64, error) {
	page, limit = pagination.Clamp(page, limit)

	items, total, err := s.itemRepo.List(ctx, page, limit, search, category)
	if err != nil {
		return nil, 0, apperror.Store("failed to list stock items", err)
	}

	res := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		res = append(res, toItemResponse(&item))
	}

	return res, total, nil
}

func (s *stockService) GetItem(ctx context.Context, id string) (ItemResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return ItemResponse{}, apperror.Validation("invalid item id")
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ItemResponse{}, apperror.NotFound("stock item")
		}
		return ItemResponse{}, apperror.Store("failed to load stock item", err)
	}

	return toItemResponse(item), nil
}

func (s *stockService) CreateItem(ctx context.Context, userID string, req CreateItemRequest) (ItemResponse, error) {
	expiry, err := validateItemFields(req.Category, req.BatchNumber, req.ExpiryDate)
	if err != nil {
		return ItemResponse{}, err
	}

	item := model.StockItem{
		Name:        req.Name,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Category:    req.Category,
		BatchNumber: req.BatchNumber,
		ExpiryDate:  expiry,
		UnitType:    req.UnitType,
		Vendor:      req.Vendor,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Create(txCtx, &item); err != nil {
			return apperror.Store("failed to create stock item", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateItem,
			EntityID:   item.ID.String(),
			EntityName: item.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return apperror.Store("failed to write audit log", err)
		}
		return nil
	})
	if err != nil {
		return ItemResponse{}, err
	}

	return toItemResponse(&item), nil
}

func (s *stockService) UpdateItem(ctx context.Context, userID string, id string, req UpdateItemRequest) (ItemResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return ItemResponse{}, apperror.Validation("invalid item id")
	}

	expiry, err := validateItemFields(req.Category, req.BatchNumber, req.ExpiryDate)
	if err != nil {
		return ItemResponse{}, err
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ItemResponse{}, apperror.NotFound("stock item")
		}
		return ItemResponse{}, apperror.Store("failed to load stock item", err)
	}

	item.Name = req.Name
	item.Type = req.Type
	item.Category = req.Category
	item.BatchNumber = req.BatchNumber
	item.ExpiryDate = expiry
	item.UnitType = req.UnitType
	item.Vendor = req.Vendor

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Update(txCtx, item); err != nil {
			return apperror.Store("failed to update stock item", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionUpdateItem,
			EntityID:   item.ID.String(),
			EntityName: item.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return apperror.Store("failed to write audit log", err)
		}
		return nil
	})
	if err != nil {
		return ItemResponse{}, err
	}

	return toItemResponse(item), nil
}

func (s *stockService) DeleteItem(ctx context.Context, userID string, id string) error {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid item id")
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("stock item")
		}
		return apperror.Store("failed to load stock item", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Delete(txCtx, itemID); err != nil {
			return apperror.Store("failed to delete stock item", err)
		}

		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionDeleteItem,
			EntityID:   item.ID.String(),
			EntityName: item.Name,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return apperror.Store("failed to write audit log", err)
		}
		return nil
	})
}

// --- Helpers ---

func validateItemFields(category, batchNumber string, expiryDate *string) (*time.Time, error) {
	var expiry *time.Time
	if expiryDate != nil && *expiryDate != "" {
		parsed, err := time.Parse("2006-01-02", *expiryDate)
		if err != nil {
			return nil, apperror.Validation("invalid expiry_date: expected YYYY-MM-DD")
		}
		expiry = &parsed
	}

	if category == model.CategoryMedical {
		if batchNumber == "" {
			return nil, apperror.Validation("batch_number is required for medical items")
		}
		if expiry == nil {
			return nil, apperror.Validation("expiry_date is required for medical items")
		}
	}

	return expiry, nil
}

func toItemResponse(item *model.StockItem) ItemResponse {
	res := ItemResponse{
		ID:          item.ID.String(),
		Name:        item.Name,
		Type:        item.Type,
		Quantity:    item.Quantity,
		Category:    item.Category,
		BatchNumber: item.BatchNumber,
		UnitType:    item.UnitType,
		Vendor:      item.Vendor,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
	}
	if item.ExpiryDate != nil {
		res.ExpiryDate = item.ExpiryDate.Format("2006-01-02")
	}
	return res
}

// parseUserID converts the JWT subject into a nullable uuid for audit rows.
func parseUserID(userID string) *uuid.UUID {
	if parsed, err := uuid.Parse(userID); err == nil {
		return &parsed
	}
	return nil
}
