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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateAssetRequest struct {
	ItemNumber    string `json:"item_number" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type"`
	PurchaseDate  string `json:"purchase_date"` // YYYY-MM-DD
	PurchasePrice string `json:"purchase_price"`
	Location      string `json:"location"`
}

type UpdateAssetRequest struct {
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type"`
	PurchaseDate  string `json:"purchase_date"`
	PurchasePrice string `json:"purchase_price"`
	Location      string `json:"location"`
}

type DiscardAssetRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type AssetResponse struct {
	ID            string `json:"id"`
	ItemNumber    string `json:"item_number"`
	Name          string `json:"name"`
	Type          string `json:"type,omitempty"`
	PurchaseDate  string `json:"purchase_date,omitempty"`
	PurchasePrice string `json:"purchase_price"`
	Location      string `json:"location,omitempty"`
	Status        string `json:"status"`
	DiscardReason string `json:"discard_reason,omitempty"`
	DiscardedAt   string `json:"discarded_at,omitempty"`
}

// AssetService manages the register of durable goods. Assets are tracked
// individually, never pooled, and discarding one is terminal.
type AssetService interface {
	Create(ctx context.Context, userID string, req CreateAssetRequest) (AssetResponse, error)
	Update(ctx context.Context, userID string, id string, req UpdateAssetRequest) (AssetResponse, error)
	Discard(ctx context.Context, userID string, id string, req DiscardAssetRequest) (AssetResponse, error)
	Get(ctx context.Context, id string) (AssetResponse, error)
	List(ctx context.Context, page, limit int, status string) ([]AssetResponse, int64, error)
}

type assetService struct {
	assetRepo repository.AssetRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewAssetService(
	assetRepo repository.AssetRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) AssetService {
	return &assetService{
		assetRepo: assetRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

func (s *assetService) Create(ctx context.Context, userID string, req CreateAssetRequest) (AssetResponse, error) {
	purchaseDate, price, err := parseAssetFields(req.PurchaseDate, req.PurchasePrice)
	if err != nil {
		return AssetResponse{}, err
	}

	if _, err := s.assetRepo.FindByItemNumber(ctx, req.ItemNumber); err == nil {
		return AssetResponse{}, apperror.Validation("item number %s is already registered", req.ItemNumber)
	}

	asset := model.Asset{
		ItemNumber:    req.ItemNumber,
		Name:          req.Name,
		Type:          req.Type,
		PurchaseDate:  purchaseDate,
		PurchasePrice: price,
		Location:      req.Location,
		Status:        model.AssetActive,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.assetRepo.Create(txCtx, &asset); err != nil {
			return apperror.Store("failed to create asset", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateAsset,
			EntityID:   asset.ID.String(),
			EntityName: asset.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return apperror.Store("failed to write audit log", err)
		}
		return nil
	})
	if err != nil {
		return AssetResponse{}, err
	}

	return toAssetResponse(&asset), nil
}

func (s *assetService) Update(ctx context.Context, userID string, id string, req UpdateAssetRequest) (AssetResponse, error) {
	assetID, err := uuid.Parse(id)
	if err != nil {
		return AssetResponse{}, apperror.Validation("invalid asset id")
	}

	purchaseDate, price, err := parseAssetFields(req.PurchaseDate, req.PurchasePrice)
	if err != nil {
		return AssetResponse{}, err
	}

	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AssetResponse{}, apperror.NotFound("asset")
		}
		return AssetResponse{}, apperror.Store("failed to load asset", err)
	}

	asset.Name = req.Name
	asset.Type = req.Type
	asset.PurchaseDate = purchaseDate
	asset.PurchasePrice = price
	asset.Location = req.Location

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.assetRepo.Update(txCtx, asset); err != nil {
			return apperror.Store("failed to update asset", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionUpdateAsset,
			EntityID:   asset.ID.String(),
			EntityName: asset.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return apperror.Store("failed to write audit log", err)
		}
		return nil
	})
	if err != nil {
		return AssetResponse{}, err
	}

	return toAssetResponse(asset), nil
}

func (s *assetService) Discard(ctx context.Context, userID string, id string, req DiscardAssetRequest) (AssetResponse, error) {
	assetID, err := uuid.Parse(id)
	if err != nil {
		return AssetResponse{}, apperror.Validation("invalid asset id")
	}

	var asset *model.Asset
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		asset, txErr = s.assetRepo.FindByIDForUpdate(txCtx, assetID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("asset")
			}
			return apperror.Store("failed to load asset", txErr)
		}

		// active -> discarded is terminal; the locked read keeps two
		// concurrent discards from both passing the guard.
		if asset.Status != model.AssetActive {
			return apperror.InvalidState("asset is already discarded")
		}

		now := time.Now()
		asset.Status = model.AssetDiscarded
		asset.DiscardReason = req.Reason
		asset.DiscardedAt = &now

		if err := s.assetRepo.Update(txCtx, asset); err != nil {
			return apperror.Store("failed to update asset", err)
		}

		details, _ := json.Marshal(map[string]interface{}{"reason": req.Reason})
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionDiscardAsset,
			EntityID:   asset.ID.String(),
			EntityName: asset.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return apperror.Store("failed to write audit log", err)
		}
		return nil
	})
	if err != nil {
		return AssetResponse{}, err
	}

	return toAssetResponse(asset), nil
}

func (s *assetService) Get(ctx context.Context, id string) (AssetResponse, error) {
	assetID, err := uuid.Parse(id)
	if err != nil {
		return AssetResponse{}, apperror.Validation("invalid asset id")
	}

	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AssetResponse{}, apperror.NotFound("asset")
		}
		return AssetResponse{}, apperror.Store("failed to load asset", err)
	}

	return toAssetResponse(asset), nil
}

func (s *assetService) List(ctx context.Context, page, limit int, status string) ([]AssetResponse, int64, error) {
	page, limit = pagination.Clamp(page, limit)

	assets, total, err := s.assetRepo.List(ctx, page, limit, status)
	if err != nil {
		return nil, 0, apperror.Store("failed to list assets", err)
	}

	res := make([]AssetResponse, 0, len(assets))
	for i := range assets {
		res = append(res, toAssetResponse(&assets[i]))
	}
	return res, total, nil
}

// --- Helpers ---

func parseAssetFields(purchaseDate, purchasePrice string) (*time.Time, decimal.Decimal, error) {
	var date *time.Time
	if purchaseDate != "" {
		parsed, err := time.Parse("2006-01-02", purchaseDate)
		if err != nil {
			return nil, decimal.Zero, apperror.Validation("invalid purchase_date: expected YYYY-MM-DD")
		}
		date = &parsed
	}

	price := decimal.Zero
	if purchasePrice != "" {
		parsed, err := decimal.NewFromString(purchasePrice)
		if err != nil {
			return nil, decimal.Zero, apperror.Validation("invalid purchase_price")
		}
		price = parsed
	}

	return date, price, nil
}

func toAssetResponse(asset *model.Asset) AssetResponse {
	resp := AssetResponse{
		ID:            asset.ID.String(),
		ItemNumber:    asset.ItemNumber,
		Name:          asset.Name,
		Type:          asset.Type,
		PurchasePrice: asset.PurchasePrice.StringFixed(2),
		Location:      asset.Location,
		Status:        asset.Status,
		DiscardReason: asset.DiscardReason,
	}
	if asset.PurchaseDate != nil {
		resp.PurchaseDate = asset.PurchaseDate.Format("2006-01-02")
	}
	if asset.DiscardedAt != nil {
		resp.DiscardedAt = asset.DiscardedAt.Format(time.RFC3339)
	}
	return resp
}
