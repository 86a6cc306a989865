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

const (
	minReturnDueDays = 1
	maxReturnDueDays = 365
)

// DTOs
type IssueRequestInput struct {
	ReturnDueInDays int    `json:"return_due_in_days" binding:"required,min=1,max=365"`
	IssuedTo        string `json:"issued_to"`
	Notes           string `json:"notes"`
}

type ReturnInput struct {
	Notes string `json:"notes"`
}

type TransferInput struct {
	ToUserID string `json:"to_user_id" binding:"required"`
	Notes    string `json:"notes"`
}

type IssuedItemResponse struct {
	ID          string `json:"id"`
	ItemID      string `json:"item_id"`
	ItemName    string `json:"item_name,omitempty"`
	HolderID    string `json:"holder_id"`
	HolderName  string `json:"holder_name,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	Quantity    int    `json:"quantity"`
	IssuedAt    string `json:"issued_at"`
	ReturnDue   string `json:"return_due"`
	Returned    bool   `json:"returned"`
	ReturnedAt  string `json:"returned_at,omitempty"`
	Overdue     bool   `json:"overdue"`
	DaysOverdue int    `json:"days_overdue"`
	IssuedTo    string `json:"issued_to,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type TransferResponse struct {
	ID           string `json:"id"`
	IssuedItemID string `json:"issued_item_id"`
	FromUserID   string `json:"from_user_id"`
	FromUser     string `json:"from_user,omitempty"`
	ToUserID     string `json:"to_user_id"`
	ToUser       string `json:"to_user,omitempty"`
	Notes        string `json:"notes,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// IssuedFilter narrows issued-item listings.
type IssuedFilter struct {
	HolderID    string
	OverdueOnly bool
	ActiveOnly  bool
}

// IssuanceService creates issuance records for approved requests, tracks
// returns and custody transfers, and computes overdue status.
type IssuanceService interface {
	// Issue creates one IssuedItem per line of an approved request. Stock is
	// not touched: it was deducted at approval time.
	Issue(ctx context.Context, adminID string, requestID string, input IssueRequestInput) ([]IssuedItemResponse, error)
	// MarkReturned flips the record to returned and credits the Ledger with
	// exactly the issued quantity. A second call on the same record fails.
	MarkReturned(ctx context.Context, userID string, issuedItemID string, input ReturnInput) (IssuedItemResponse, error)
	// Transfer reassigns custody of an active issued item. The initiator
	// must be the current holder. No Ledger effect.
	Transfer(ctx context.Context, fromUserID string, issuedItemID string, input TransferInput) (IssuedItemResponse, error)
	Get(ctx context.Context, issuedItemID string) (IssuedItemResponse, error)
	List(ctx context.Context, page, limit int, filter IssuedFilter) ([]IssuedItemResponse, int64, error)
	ListTransfers(ctx context.Context, page, limit int, issuedItemID string) ([]TransferResponse, int64, error)
}

type issuanceService struct {
	issuedRepo   repository.IssuedItemRepository
	requestRepo  repository.RequestRepository
	transferRepo repository.TransferRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	ledger       LedgerService
	txManager    repository.TransactionManager
	now          func() time.Time
}

func NewIssuanceService(
	issuedRepo repository.IssuedItemRepository,
	requestRepo repository.RequestRepository,
	transferRepo repository.TransferRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	ledger LedgerService,
	txManager repository.TransactionManager,
) IssuanceService {
	return &issuanceService{
		issuedRepo:   issuedRepo,
		requestRepo:  requestRepo,
		transferRepo: transferRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		ledger:       ledger,
		txManager:    txManager,
		now:          time.Now,
	}
}

func (s *issuanceService) Issue(ctx context.Context, adminID string, requestID string, input IssueRequestInput) ([]IssuedItemResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, apperror.Validation("invalid request id")
	}
	if input.ReturnDueInDays < minReturnDueDays || input.ReturnDueInDays > maxReturnDueDays {
		return nil, apperror.Validation("return_due_in_days must be between %d and %d", minReturnDueDays, maxReturnDueDays)
	}

	var issued []model.IssuedItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, txErr := s.requestRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("request")
			}
			return apperror.Store("failed to load request", txErr)
		}

		if request.Status != model.RequestApproved {
			return apperror.InvalidState("cannot issue items for a %s request", request.Status)
		}

		alreadyIssued, txErr := s.issuedRepo.ExistsForRequest(txCtx, id)
		if txErr != nil {
			return apperror.Store("failed to check issued items", txErr)
		}
		if alreadyIssued {
			return apperror.InvalidState("request has already been issued")
		}

		now := s.now()
		due := now.AddDate(0, 0, input.ReturnDueInDays)
		for _, line := range request.Lines {
			record := model.IssuedItem{
				ItemID:    line.ItemID,
				HolderID:  request.RequesterID,
				RequestID: &request.ID,
				Quantity:  line.Quantity,
				IssuedAt:  now,
				ReturnDue: due,
				IssuedTo:  input.IssuedTo,
				Notes:     input.Notes,
			}
			if txErr := s.issuedRepo.Create(txCtx, &record); txErr != nil {
				return apperror.Store("failed to create issued item", txErr)
			}
			issued = append(issued, record)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"request_id":         request.ID.String(),
			"return_due_in_days": input.ReturnDueInDays,
			"issued_to":          input.IssuedTo,
			"line_count":         len(request.Lines),
		})
		audit := &model.AuditLog{
			UserID:   parseUserID(adminID),
			Action:   model.ActionIssueItems,
			EntityID: request.ID.String(),
			Details:  string(details),
		}
		if txErr := s.auditRepo.Log(txCtx, audit); txErr != nil {
			return apperror.Store("failed to write audit log", txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := make([]IssuedItemResponse, 0, len(issued))
	for i := range issued {
		res = append(res, s.toIssuedResponse(&issued[i]))
	}
	return res, nil
}

func (s *issuanceService) MarkReturned(ctx context.Context, userID string, issuedItemID string, input ReturnInput) (IssuedItemResponse, error) {
	id, err := uuid.Parse(issuedItemID)
	if err != nil {
		return IssuedItemResponse{}, apperror.Validation("invalid issued item id")
	}

	var record *model.IssuedItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		record, txErr = s.issuedRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("issued item")
			}
			return apperror.Store("failed to load issued item", txErr)
		}

		// Double-return would double-credit stock.
		if record.Returned {
			return apperror.InvalidState("issued item has already been returned")
		}

		now := s.now()
		record.Returned = true
		record.ReturnedAt = &now
		if input.Notes != "" {
			record.Notes = input.Notes
		}
		if txErr := s.issuedRepo.Update(txCtx, record); txErr != nil {
			return apperror.Store("failed to update issued item", txErr)
		}

		// Credits exactly the quantity fixed at issuance, in this same
		// transaction.
		if txErr := s.ledger.Credit(txCtx, record.ItemID, record.Quantity); txErr != nil {
			return txErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"item_id":  record.ItemID.String(),
			"quantity": record.Quantity,
			"notes":    input.Notes,
		})
		audit := &model.AuditLog{
			UserID:   parseUserID(userID),
			Action:   model.ActionReturnItem,
			EntityID: record.ID.String(),
			Details:  string(details),
		}
		if txErr := s.auditRepo.Log(txCtx, audit); txErr != nil {
			return apperror.Store("failed to write audit log", txErr)
		}
		return nil
	})
	if err != nil {
		return IssuedItemResponse{}, err
	}

	return s.toIssuedResponse(record), nil
}

func (s *issuanceService) Transfer(ctx context.Context, fromUserID string, issuedItemID string, input TransferInput) (IssuedItemResponse, error) {
	id, err := uuid.Parse(issuedItemID)
	if err != nil {
		return IssuedItemResponse{}, apperror.Validation("invalid issued item id")
	}
	fromID, err := uuid.Parse(fromUserID)
	if err != nil {
		return IssuedItemResponse{}, apperror.Validation("invalid user id")
	}
	toID, err := uuid.Parse(input.ToUserID)
	if err != nil {
		return IssuedItemResponse{}, apperror.Validation("invalid to_user_id")
	}
	if fromID == toID {
		return IssuedItemResponse{}, apperror.Validation("cannot transfer an item to its current holder")
	}

	if _, err := s.userRepo.GetByID(ctx, toID.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IssuedItemResponse{}, apperror.NotFound("recipient user")
		}
		return IssuedItemResponse{}, apperror.Store("failed to load recipient user", err)
	}

	var record *model.IssuedItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		record, txErr = s.issuedRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("issued item")
			}
			return apperror.Store("failed to load issued item", txErr)
		}

		if record.Returned {
			return apperror.InvalidState("cannot transfer a returned item")
		}
		if record.HolderID != fromID {
			return apperror.InvalidState("only the current holder can transfer an issued item")
		}

		record.HolderID = toID
		if txErr := s.issuedRepo.Update(txCtx, record); txErr != nil {
			return apperror.Store("failed to update issued item", txErr)
		}

		transfer := &model.Transfer{
			IssuedItemID: record.ID,
			FromUserID:   fromID,
			ToUserID:     toID,
			Notes:        input.Notes,
		}
		if txErr := s.transferRepo.Create(txCtx, transfer); txErr != nil {
			return apperror.Store("failed to record transfer", txErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"from_user": fromID.String(),
			"to_user":   toID.String(),
			"notes":     input.Notes,
		})
		audit := &model.AuditLog{
			UserID:   &fromID,
			Action:   model.ActionTransferItem,
			EntityID: record.ID.String(),
			Details:  string(details),
		}
		if txErr := s.auditRepo.Log(txCtx, audit); txErr != nil {
			return apperror.Store("failed to write audit log", txErr)
		}
		return nil
	})
	if err != nil {
		return IssuedItemResponse{}, err
	}

	return s.toIssuedResponse(record), nil
}

func (s *issuanceService) Get(ctx context.Context, issuedItemID string) (IssuedItemResponse, error) {
	id, err := uuid.Parse(issuedItemID)
	if err != nil {
		return IssuedItemResponse{}, apperror.Validation("invalid issued item id")
	}

	record, err := s.issuedRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IssuedItemResponse{}, apperror.NotFound("issued item")
		}
		return IssuedItemResponse{}, apperror.Store("failed to load issued item", err)
	}

	return s.toIssuedResponse(record), nil
}

func (s *issuanceService) List(ctx context.Context, page, limit int, filter IssuedFilter) ([]IssuedItemResponse, int64, error) {
	page, limit = pagination.Clamp(page, limit)

	repoFilter := repository.IssuedItemFilter{}
	if filter.HolderID != "" {
		holderID, err := uuid.Parse(filter.HolderID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid holder id")
		}
		repoFilter.HolderID = &holderID
	}
	if filter.ActiveOnly {
		returned := false
		repoFilter.Returned = &returned
	}
	if filter.OverdueOnly {
		now := s.now()
		repoFilter.OverdueAt = &now
	}

	records, total, err := s.issuedRepo.List(ctx, page, limit, repoFilter)
	if err != nil {
		return nil, 0, apperror.Store("failed to list issued items", err)
	}

	res := make([]IssuedItemResponse, 0, len(records))
	for i := range records {
		res = append(res, s.toIssuedResponse(&records[i]))
	}
	return res, total, nil
}

func (s *issuanceService) ListTransfers(ctx context.Context, page, limit int, issuedItemID string) ([]TransferResponse, int64, error) {
	page, limit = pagination.Clamp(page, limit)

	var itemID *uuid.UUID
	if issuedItemID != "" {
		parsed, err := uuid.Parse(issuedItemID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid issued item id")
		}
		itemID = &parsed
	}

	transfers, total, err := s.transferRepo.List(ctx, page, limit, itemID)
	if err != nil {
		return nil, 0, apperror.Store("failed to list transfers", err)
	}

	res := make([]TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		resp := TransferResponse{
			ID:           t.ID.String(),
			IssuedItemID: t.IssuedItemID.String(),
			FromUserID:   t.FromUserID.String(),
			ToUserID:     t.ToUserID.String(),
			Notes:        t.Notes,
			CreatedAt:    t.CreatedAt.Format(time.RFC3339),
		}
		if t.FromUser != nil {
			resp.FromUser = t.FromUser.Username
		}
		if t.ToUser != nil {
			resp.ToUser = t.ToUser.Username
		}
		res = append(res, resp)
	}
	return res, total, nil
}

func (s *issuanceService) toIssuedResponse(record *model.IssuedItem) IssuedItemResponse {
	now := s.now()
	resp := IssuedItemResponse{
		ID:          record.ID.String(),
		ItemID:      record.ItemID.String(),
		HolderID:    record.HolderID.String(),
		Quantity:    record.Quantity,
		IssuedAt:    record.IssuedAt.Format(time.RFC3339),
		ReturnDue:   record.ReturnDue.Format(time.RFC3339),
		Returned:    record.Returned,
		Overdue:     record.IsOverdue(now),
		DaysOverdue: record.DaysOverdue(now),
		IssuedTo:    record.IssuedTo,
		Notes:       record.Notes,
	}
	if record.RequestID != nil {
		resp.RequestID = record.RequestID.String()
	}
	if record.ReturnedAt != nil {
		resp.ReturnedAt = record.ReturnedAt.Format(time.RFC3339)
	}
	if record.Item != nil {
		resp.ItemName = record.Item.Name
	}
	if record.Holder != nil {
		resp.HolderName = record.Holder.Username
	}
	return resp
}
