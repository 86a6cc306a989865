package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"

	"stockroom/internal/model"
	"stockroom/internal/repository"
	ws "stockroom/internal/websocket"
	"stockroom/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type RestockRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Vendor   string `json:"vendor"`
	UnitCost string `json:"unit_cost"` // decimal string, optional
	Notes    string `json:"notes"`
}

type DiscardRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Reason   string `json:"reason" binding:"required,oneof=damaged broken expired"`
	Notes    string `json:"notes"`
}

// LineDeduction is one (item, quantity) pair of a multi-line deduction.
type LineDeduction struct {
	ItemID   uuid.UUID
	Quantity int
}

// StockEvent is the payload broadcast over the websocket hub after every
// committed quantity change.
type StockEvent struct {
	Event    string `json:"event"`
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// LedgerService is the single authoritative mutation point for stock item
// quantities. Every operation locks the item row(s) FOR UPDATE inside one
// transaction, so concurrent deltas on the same item serialize.
type LedgerService interface {
	// Restock increases the quantity and appends a purchase history row.
	// The history append is best-effort: it runs after the quantity commit
	// and its failure is logged, never surfaced.
	Restock(ctx context.Context, userID string, itemID string, req RestockRequest) (ItemResponse, error)
	// DeductLines checks every line against on-hand stock before deducting
	// any of them. A shortfall on any line aborts the whole call with
	// InsufficientStock and no quantity is touched.
	DeductLines(ctx context.Context, lines []LineDeduction) error
	Deduct(ctx context.Context, itemID uuid.UUID, quantity int) error
	// Credit adds quantity back on return. No upper bound check: the prior
	// deduction is what fixed the amount.
	Credit(ctx context.Context, itemID uuid.UUID, quantity int) error
	// Discard removes damaged/broken/expired quantity and records a
	// DiscardedItem audit row in the same transaction.
	Discard(ctx context.Context, userID string, itemID string, req DiscardRequest) (ItemResponse, error)
}

type ledgerService struct {
	itemRepo     repository.StockItemRepository
	purchaseRepo repository.PurchaseRepository
	discardRepo  repository.DiscardRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewLedgerService(
	itemRepo repository.StockItemRepository,
	purchaseRepo repository.PurchaseRepository,
	discardRepo repository.DiscardRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) LedgerService {
	return &ledgerService{
		itemRepo:     itemRepo,
		purchaseRepo: purchaseRepo,
		discardRepo:  discardRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

func (s *ledgerService) Restock(ctx context.Context, userID string, itemID string, req RestockRequest) (ItemResponse, error) {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return ItemResponse{}, apperror.Validation("invalid item id")
	}
	if req.Quantity <= 0 {
		return ItemResponse{}, apperror.Validation("restock quantity must be positive")
	}

	unitCost := decimal.Zero
	if req.UnitCost != "" {
		parsed, parseErr := decimal.NewFromString(req.UnitCost)
		if parseErr != nil {
			return ItemResponse{}, apperror.Validation("invalid unit_cost")
		}
		unitCost = parsed
	}

	var item *model.StockItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		item, txErr = s.itemRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("stock item")
			}
			return apperror.Store("failed to load stock item", txErr)
		}

		item.Quantity += req.Quantity
		if txErr := s.itemRepo.UpdateQuantity(txCtx, item.ID, item.Quantity); txErr != nil {
			return apperror.Store("failed to update stock quantity", txErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"quantity_added": req.Quantity,
			"vendor":         req.Vendor,
			"stock_after":    item.Quantity,
		})
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionRestockItem,
			EntityID:   item.ID.String(),
			EntityName: item.Name,
			Details:    string(details),
		}
		if txErr := s.auditRepo.Log(txCtx, audit); txErr != nil {
			return apperror.Store("failed to write audit log", txErr)
		}
		return nil
	})
	if err != nil {
		return ItemResponse{}, err
	}

	// Purchase history is supplementary audit data, not authoritative stock
	// state: the quantity update above is already committed, and a failure
	// here must not undo it or surface to the caller.
	purchase := &model.PurchaseHistory{
		ItemID:        item.ID,
		Vendor:        req.Vendor,
		QuantityAdded: req.Quantity,
		UnitCost:      unitCost,
		Notes:         req.Notes,
	}
	if histErr := s.purchaseRepo.Create(ctx, purchase); histErr != nil {
		log.Printf("WARNING: purchase history append failed for item %s: %v", item.ID, histErr)
	}

	s.broadcastStockUpdate(item)
	return toItemResponse(item), nil
}

func (s *ledgerService) DeductLines(ctx context.Context, lines []LineDeduction) error {
	if len(lines) == 0 {
		return apperror.Validation("no lines to deduct")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return apperror.Validation("deduction quantity must be positive")
		}
	}

	// Several lines may name the same item; fold them into one total per
	// item so each row is locked, checked and written exactly once.
	totals := make(map[uuid.UUID]int, len(lines))
	order := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, seen := totals[line.ItemID]; !seen {
			order = append(order, line.ItemID)
		}
		totals[line.ItemID] += line.Quantity
	}

	// Lock rows in a stable order so two concurrent multi-line deductions
	// cannot deadlock.
	lockOrder := make([]uuid.UUID, len(order))
	copy(lockOrder, order)
	sort.Slice(lockOrder, func(i, j int) bool {
		return lockOrder[i].String() < lockOrder[j].String()
	})

	var updated []*model.StockItem
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		updated = updated[:0]
		locked := make(map[uuid.UUID]*model.StockItem, len(lockOrder))
		for _, id := range lockOrder {
			item, err := s.itemRepo.FindByIDForUpdate(txCtx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.NotFound("stock item")
				}
				return apperror.Store("failed to load stock item", err)
			}
			locked[id] = item
		}

		// Shortfalls are reported against the first offending line as the
		// caller wrote it, not in lock order.
		for _, id := range order {
			item := locked[id]
			if item.Quantity < totals[id] {
				return apperror.InsufficientStock(item.ID.String(), item.Name, totals[id], item.Quantity)
			}
		}

		// Every line checked out; apply all deltas.
		for _, id := range order {
			item := locked[id]
			item.Quantity -= totals[id]
			if err := s.itemRepo.UpdateQuantity(txCtx, item.ID, item.Quantity); err != nil {
				return apperror.Store("failed to update stock quantity", err)
			}
			updated = append(updated, item)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Events go out only once the quantities are committed; a rollback in a
	// joined transaction must not leak a phantom update to clients.
	for _, item := range updated {
		s.broadcastStockUpdate(item)
	}
	return nil
}

func (s *ledgerService) Deduct(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return s.DeductLines(ctx, []LineDeduction{{ItemID: itemID, Quantity: quantity}})
}

func (s *ledgerService) Credit(ctx context.Context, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return apperror.Validation("credit quantity must be positive")
	}

	var item *model.StockItem
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		item, txErr = s.itemRepo.FindByIDForUpdate(txCtx, itemID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("stock item")
			}
			return apperror.Store("failed to load stock item", txErr)
		}

		item.Quantity += quantity
		if err := s.itemRepo.UpdateQuantity(txCtx, item.ID, item.Quantity); err != nil {
			return apperror.Store("failed to update stock quantity", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcastStockUpdate(item)
	return nil
}

func (s *ledgerService) Discard(ctx context.Context, userID string, itemID string, req DiscardRequest) (ItemResponse, error) {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return ItemResponse{}, apperror.Validation("invalid item id")
	}
	if req.Quantity <= 0 {
		return ItemResponse{}, apperror.Validation("discard quantity must be positive")
	}
	if !model.ValidDiscardReason(req.Reason) {
		return ItemResponse{}, apperror.Validation("invalid discard reason: must be damaged, broken or expired")
	}

	var item *model.StockItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		item, txErr = s.itemRepo.FindByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("stock item")
			}
			return apperror.Store("failed to load stock item", txErr)
		}

		if item.Quantity < req.Quantity {
			return apperror.InsufficientStock(item.ID.String(), item.Name, req.Quantity, item.Quantity)
		}

		item.Quantity -= req.Quantity
		if txErr := s.itemRepo.UpdateQuantity(txCtx, item.ID, item.Quantity); txErr != nil {
			return apperror.Store("failed to update stock quantity", txErr)
		}

		discard := &model.DiscardedItem{
			ItemID:      item.ID,
			Quantity:    req.Quantity,
			Reason:      req.Reason,
			DiscardedBy: parseUserID(userID),
			Notes:       req.Notes,
		}
		if txErr := s.discardRepo.Create(txCtx, discard); txErr != nil {
			return apperror.Store("failed to record discarded item", txErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"quantity":    req.Quantity,
			"reason":      req.Reason,
			"stock_after": item.Quantity,
		})
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionDiscardItem,
			EntityID:   item.ID.String(),
			EntityName: item.Name,
			Details:    string(details),
		}
		if txErr := s.auditRepo.Log(txCtx, audit); txErr != nil {
			return apperror.Store("failed to write audit log", txErr)
		}
		return nil
	})
	if err != nil {
		return ItemResponse{}, err
	}

	s.broadcastStockUpdate(item)
	return toItemResponse(item), nil
}

func (s *ledgerService) broadcastStockUpdate(item *model.StockItem) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(StockEvent{
		Event:    "stock_updated",
		ItemID:   item.ID.String(),
		ItemName: item.Name,
		Quantity: item.Quantity,
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}
