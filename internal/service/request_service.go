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
type RequestLineInput struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type SubmitRequestInput struct {
	Lines []RequestLineInput `json:"lines" binding:"required,min=1,dive"`
}

type DecisionInput struct {
	Notes string `json:"notes"`
	// Optional replacement lines applied at approval time instead of the
	// stored ones.
	OverrideLines []RequestLineInput `json:"override_lines" binding:"omitempty,min=1,dive"`
}

type RequestLineResponse struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

type RequestResponse struct {
	ID            string                `json:"id"`
	RequesterID   string                `json:"requester_id"`
	RequesterName string                `json:"requester_name,omitempty"`
	Status        string                `json:"status"`
	Issued        bool                  `json:"issued"`
	AdminNotes    string                `json:"admin_notes,omitempty"`
	Lines         []RequestLineResponse `json:"lines"`
	CreatedAt     string                `json:"created_at"`
}

// RequestService drives a request from submission through approval or
// rejection. Status moves one way: pending -> approved | rejected.
type RequestService interface {
	// Submit creates a pending request. Availability is deliberately not
	// checked here: stock is contended at approval time, first approval wins.
	Submit(ctx context.Context, userID string, input SubmitRequestInput) (RequestResponse, error)
	// EditLines replaces the line items of a still-pending request.
	EditLines(ctx context.Context, userID string, requestID string, lines []RequestLineInput) (RequestResponse, error)
	// Approve checks every line against on-hand stock and deducts all of
	// them in one transaction. Any shortfall aborts the whole approval with
	// no partial deduction.
	Approve(ctx context.Context, adminID string, requestID string, input DecisionInput) (RequestResponse, error)
	Reject(ctx context.Context, adminID string, requestID string, notes string) (RequestResponse, error)
	IsIssued(ctx context.Context, requestID string) (bool, error)
	Get(ctx context.Context, requestID string) (RequestResponse, error)
	List(ctx context.Context, page, limit int, status string, requesterID string) ([]RequestResponse, int64, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	itemRepo    repository.StockItemRepository
	issuedRepo  repository.IssuedItemRepository
	auditRepo   repository.AuditRepository
	ledger      LedgerService
	txManager   repository.TransactionManager
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	itemRepo repository.StockItemRepository,
	issuedRepo repository.IssuedItemRepository,
	auditRepo repository.AuditRepository,
	ledger LedgerService,
	txManager repository.TransactionManager,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		itemRepo:    itemRepo,
		issuedRepo:  issuedRepo,
		auditRepo:   auditRepo,
		ledger:      ledger,
		txManager:   txManager,
	}
}

func (s *requestService) Submit(ctx context.Context, userID string, input SubmitRequestInput) (RequestResponse, error) {
	requesterID, err := uuid.Parse(userID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid user id")
	}

	lines, err := s.buildLines(ctx, input.Lines)
	if err != nil {
		return RequestResponse{}, err
	}

	request := model.Request{
		RequesterID: requesterID,
		Status:      model.RequestPending,
		Lines:       lines,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, &request); err != nil {
			return apperror.Store("failed to create request", err)
		}

		details, _ := json.Marshal(map[string]interface{}{"lines": toLineResponses(lines)})
		audit := &model.AuditLog{
			UserID:   &requesterID,
			Action:   model.ActionSubmitRequest,
			EntityID: request.ID.String(),
			Details:  string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return apperror.Store("failed to write audit log", err)
		}
		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.toResponse(ctx, &request)
}

func (s *requestService) EditLines(ctx context.Context, userID string, requestID string, lines []RequestLineInput) (RequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}
	if len(lines) == 0 {
		return RequestResponse{}, apperror.Validation("a request must keep at least one line; reject it instead")
	}

	newLines, err := s.buildLines(ctx, lines)
	if err != nil {
		return RequestResponse{}, err
	}

	var request *model.Request
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		request, txErr = s.requestRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("request")
			}
			return apperror.Store("failed to load request", txErr)
		}

		if request.Status != model.RequestPending {
			return apperror.InvalidState("cannot edit a %s request", request.Status)
		}

		if txErr := s.requestRepo.ReplaceLines(txCtx, id, newLines); txErr != nil {
			return apperror.Store("failed to replace request lines", txErr)
		}
		request.Lines = newLines

		details, _ := json.Marshal(map[string]interface{}{"lines": toLineResponses(newLines)})
		audit := &model.AuditLog{
			UserID:   parseUserID(userID),
			Action:   model.ActionEditRequestLines,
			EntityID: request.ID.String(),
			Details:  string(details),
		}
		if txErr := s.auditRepo.Log(txCtx, audit); txErr != nil {
			return apperror.Store("failed to write audit log", txErr)
		}
		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.toResponse(ctx, request)
}

func (s *requestService) Approve(ctx context.Context, adminID string, requestID string, input DecisionInput) (RequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}
	approverID, err := uuid.Parse(adminID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid user id")
	}

	var request *model.Request
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		request, txErr = s.requestRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("request")
			}
			return apperror.Store("failed to load request", txErr)
		}

		if request.Status != model.RequestPending {
			return apperror.InvalidState("request is already %s", request.Status)
		}

		lines := request.Lines
		if len(input.OverrideLines) > 0 {
			lines, txErr = s.buildLines(txCtx, input.OverrideLines)
			if txErr != nil {
				return txErr
			}
			if txErr := s.requestRepo.ReplaceLines(txCtx, id, lines); txErr != nil {
				return apperror.Store("failed to replace request lines", txErr)
			}
			request.Lines = lines
		}

		deductions := make([]LineDeduction, 0, len(lines))
		for _, line := range lines {
			deductions = append(deductions, LineDeduction{ItemID: line.ItemID, Quantity: line.Quantity})
		}
		// Joins this transaction: all line checks precede all deductions,
		// and a shortfall rolls everything back.
		if txErr := s.ledger.DeductLines(txCtx, deductions); txErr != nil {
			return txErr
		}

		now := time.Now()
		request.Status = model.RequestApproved
		request.AdminNotes = input.Notes
		request.ApprovedBy = &approverID
		request.DecidedAt = &now
		if txErr := s.requestRepo.Update(txCtx, request); txErr != nil {
			return apperror.Store("failed to update request", txErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"notes": input.Notes,
			"lines": toLineResponses(lines),
		})
		audit := &model.AuditLog{
			UserID:   &approverID,
			Action:   model.ActionApproveRequest,
			EntityID: request.ID.String(),
			Details:  string(details),
		}
		if txErr := s.auditRepo.Log(txCtx, audit); txErr != nil {
			return apperror.Store("failed to write audit log", txErr)
		}
		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.toResponse(ctx, request)
}

func (s *requestService) Reject(ctx context.Context, adminID string, requestID string, notes string) (RequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}
	approverID, err := uuid.Parse(adminID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid user id")
	}

	var request *model.Request
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		request, txErr = s.requestRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("request")
			}
			return apperror.Store("failed to load request", txErr)
		}

		if request.Status != model.RequestPending {
			return apperror.InvalidState("request is already %s", request.Status)
		}

		now := time.Now()
		request.Status = model.RequestRejected
		request.AdminNotes = notes
		request.ApprovedBy = &approverID
		request.DecidedAt = &now
		if txErr := s.requestRepo.Update(txCtx, request); txErr != nil {
			return apperror.Store("failed to update request", txErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"notes": notes})
		audit := &model.AuditLog{
			UserID:   &approverID,
			Action:   model.ActionRejectRequest,
			EntityID: request.ID.String(),
			Details:  string(details),
		}
		if txErr := s.auditRepo.Log(txCtx, audit); txErr != nil {
			return apperror.Store("failed to write audit log", txErr)
		}
		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.toResponse(ctx, request)
}

func (s *requestService) IsIssued(ctx context.Context, requestID string) (bool, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return false, apperror.Validation("invalid request id")
	}
	issued, err := s.issuedRepo.ExistsForRequest(ctx, id)
	if err != nil {
		return false, apperror.Store("failed to check issued items", err)
	}
	return issued, nil
}

func (s *requestService) Get(ctx context.Context, requestID string) (RequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}

	request, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, apperror.NotFound("request")
		}
		return RequestResponse{}, apperror.Store("failed to load request", err)
	}

	return s.toResponse(ctx, request)
}

func (s *requestService) List(ctx context.Context, page, limit int, status string, requesterID string) ([]RequestResponse, int64, error) {
	page, limit = pagination.Clamp(page, limit)

	var requester *uuid.UUID
	if requesterID != "" {
		parsed, err := uuid.Parse(requesterID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid requester id")
		}
		requester = &parsed
	}

	requests, total, err := s.requestRepo.List(ctx, page, limit, status, requester)
	if err != nil {
		return nil, 0, apperror.Store("failed to list requests", err)
	}

	res := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		resp, err := s.toResponse(ctx, &requests[i])
		if err != nil {
			return nil, 0, err
		}
		res = append(res, resp)
	}

	return res, total, nil
}

// --- Helpers ---

// buildLines validates line inputs and snapshots each item's current name.
func (s *requestService) buildLines(ctx context.Context, inputs []RequestLineInput) ([]model.RequestLine, error) {
	if len(inputs) == 0 {
		return nil, apperror.Validation("a request needs at least one line")
	}

	lines := make([]model.RequestLine, 0, len(inputs))
	for i, input := range inputs {
		if input.Quantity <= 0 {
			return nil, apperror.Validation("line quantity must be positive")
		}
		itemID, err := uuid.Parse(input.ItemID)
		if err != nil {
			return nil, apperror.Validation("invalid item id: %s", input.ItemID)
		}
		item, err := s.itemRepo.FindByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("stock item")
			}
			return nil, apperror.Store("failed to load stock item", err)
		}
		lines = append(lines, model.RequestLine{
			ItemID:   item.ID,
			ItemName: item.Name,
			Quantity: input.Quantity,
			Position: i,
		})
	}
	return lines, nil
}

func toLineResponses(lines []model.RequestLine) []RequestLineResponse {
	res := make([]RequestLineResponse, 0, len(lines))
	for _, line := range lines {
		res = append(res, RequestLineResponse{
			ItemID:   line.ItemID.String(),
			ItemName: line.ItemName,
			Quantity: line.Quantity,
		})
	}
	return res
}

func (s *requestService) toResponse(ctx context.Context, request *model.Request) (RequestResponse, error) {
	issued, err := s.issuedRepo.ExistsForRequest(ctx, request.ID)
	if err != nil {
		return RequestResponse{}, apperror.Store("failed to check issued items", err)
	}

	resp := RequestResponse{
		ID:          request.ID.String(),
		RequesterID: request.RequesterID.String(),
		Status:      request.Status,
		Issued:      issued,
		AdminNotes:  request.AdminNotes,
		Lines:       toLineResponses(request.Lines),
		CreatedAt:   request.CreatedAt.Format(time.RFC3339),
	}
	if request.Requester != nil {
		resp.RequesterName = request.Requester.Username
	}
	return resp, nil
}
