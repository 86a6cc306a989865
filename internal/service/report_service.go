package service

import (
	"context"
	"time"

	"stockroom/internal/model"
	"stockroom/internal/repository"
	"stockroom/pkg/apperror"
	"stockroom/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockSummary struct {
	ItemCount       int64          `json:"item_count"`
	TotalQuantity   int64          `json:"total_quantity"`
	LowStockItems   []LowStockItem `json:"low_stock_items"`
	ActiveIssued    int64          `json:"active_issued"`
	OverdueIssued   int64          `json:"overdue_issued"`
	PendingRequests int64          `json:"pending_requests"`
}

type LowStockItem struct {
	ItemID   string `json:"item_id" gorm:"column:item_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	UnitType string `json:"unit_type" gorm:"column:unit_type"`
}

type ExpiringItem struct {
	ItemID      string    `json:"item_id" gorm:"column:item_id"`
	Name        string    `json:"name"`
	BatchNumber string    `json:"batch_number" gorm:"column:batch_number"`
	ExpiryDate  time.Time `json:"expiry_date" gorm:"column:expiry_date"`
	Quantity    int       `json:"quantity"`
}

type DiscardSummary struct {
	Reason        string `json:"reason"`
	TotalQuantity int64  `json:"total_quantity" gorm:"column:total_quantity"`
	Entries       int64  `json:"entries"`
}

type PurchaseRecord struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	ItemName      string    `json:"item_name,omitempty"`
	QuantityAdded int       `json:"quantity_added"`
	UnitCost      string    `json:"unit_cost"`
	Vendor        string    `json:"vendor,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type DiscardRecord struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	ItemName    string    `json:"item_name,omitempty"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
	DiscardedBy string    `json:"discarded_by,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportService serves read-only aggregates and history listings for
// dashboards. Nothing here mutates state.
type ReportService interface {
	StockSummary(ctx context.Context, lowStockThreshold int) (StockSummary, error)
	ExpiringItems(ctx context.Context, withinDays int) ([]ExpiringItem, error)
	DiscardsByReason(ctx context.Context) ([]DiscardSummary, error)
	PurchaseHistory(ctx context.Context, page, limit int, itemID string) ([]PurchaseRecord, int64, error)
	DiscardLog(ctx context.Context, page, limit int, itemID, reason string) ([]DiscardRecord, int64, error)
}

type reportService struct {
	db           *gorm.DB
	purchaseRepo repository.PurchaseRepository
	discardRepo  repository.DiscardRepository
}

func NewReportService(db *gorm.DB, purchaseRepo repository.PurchaseRepository, discardRepo repository.DiscardRepository) ReportService {
	return &reportService{db: db, purchaseRepo: purchaseRepo, discardRepo: discardRepo}
}

func (s *reportService) StockSummary(ctx context.Context, lowStockThreshold int) (StockSummary, error) {
	var summary StockSummary

	db := s.db.WithContext(ctx)

	if err := db.Model(&model.StockItem{}).Count(&summary.ItemCount).Error; err != nil {
		return StockSummary{}, apperror.Store("failed to count stock items", err)
	}

	var totals struct {
		Total int64
	}
	if err := db.Model(&model.StockItem{}).
		Select("COALESCE(SUM(quantity), 0) as total").
		Scan(&totals).Error; err != nil {
		return StockSummary{}, apperror.Store("failed to sum stock quantities", err)
	}
	summary.TotalQuantity = totals.Total

	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}
	if err := db.Model(&model.StockItem{}).
		Select("id as item_id, name, quantity, unit_type").
		Where("quantity <= ?", lowStockThreshold).
		Order("quantity asc").
		Limit(20).
		Scan(&summary.LowStockItems).Error; err != nil {
		return StockSummary{}, apperror.Store("failed to list low stock items", err)
	}

	if err := db.Model(&model.IssuedItem{}).
		Where("returned = false").
		Count(&summary.ActiveIssued).Error; err != nil {
		return StockSummary{}, apperror.Store("failed to count active issued items", err)
	}

	if err := db.Model(&model.IssuedItem{}).
		Where("returned = false AND return_due < ?", time.Now()).
		Count(&summary.OverdueIssued).Error; err != nil {
		return StockSummary{}, apperror.Store("failed to count overdue issued items", err)
	}

	if err := db.Model(&model.Request{}).
		Where("status = ?", model.RequestPending).
		Count(&summary.PendingRequests).Error; err != nil {
		return StockSummary{}, apperror.Store("failed to count pending requests", err)
	}

	return summary, nil
}

func (s *reportService) ExpiringItems(ctx context.Context, withinDays int) ([]ExpiringItem, error) {
	if withinDays <= 0 {
		withinDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, withinDays)

	var items []ExpiringItem
	if err := s.db.WithContext(ctx).Model(&model.StockItem{}).
		Select("id as item_id, name, batch_number, expiry_date, quantity").
		Where("category = ? AND expiry_date IS NOT NULL AND expiry_date <= ?", model.CategoryMedical, cutoff).
		Order("expiry_date asc").
		Scan(&items).Error; err != nil {
		return nil, apperror.Store("failed to list expiring items", err)
	}

	return items, nil
}

func (s *reportService) DiscardsByReason(ctx context.Context) ([]DiscardSummary, error) {
	var summaries []DiscardSummary
	if err := s.db.WithContext(ctx).Model(&model.DiscardedItem{}).
		Select("reason, SUM(quantity) as total_quantity, COUNT(*) as entries").
		Group("reason").
		Order("total_quantity DESC").
		Scan(&summaries).Error; err != nil {
		return nil, apperror.Store("failed to aggregate discards", err)
	}

	return summaries, nil
}

func (s *reportService) PurchaseHistory(ctx context.Context, page, limit int, itemID string) ([]PurchaseRecord, int64, error) {
	page, limit = pagination.Clamp(page, limit)

	var filter *uuid.UUID
	if itemID != "" {
		id, err := uuid.Parse(itemID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid item id")
		}
		filter = &id
	}

	purchases, total, err := s.purchaseRepo.List(ctx, page, limit, filter)
	if err != nil {
		return nil, 0, apperror.Store("failed to list purchase history", err)
	}

	records := make([]PurchaseRecord, 0, len(purchases))
	for _, p := range purchases {
		record := PurchaseRecord{
			ID:            p.ID.String(),
			ItemID:        p.ItemID.String(),
			QuantityAdded: p.QuantityAdded,
			UnitCost:      p.UnitCost.StringFixed(2),
			Vendor:        p.Vendor,
			CreatedAt:     p.CreatedAt,
		}
		if p.Item != nil {
			record.ItemName = p.Item.Name
		}
		records = append(records, record)
	}
	return records, total, nil
}

func (s *reportService) DiscardLog(ctx context.Context, page, limit int, itemID, reason string) ([]DiscardRecord, int64, error) {
	page, limit = pagination.Clamp(page, limit)

	var filter *uuid.UUID
	if itemID != "" {
		id, err := uuid.Parse(itemID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid item id")
		}
		filter = &id
	}
	if reason != "" && !model.ValidDiscardReason(reason) {
		return nil, 0, apperror.Validation("invalid discard reason: must be damaged, broken or expired")
	}

	discards, total, err := s.discardRepo.List(ctx, page, limit, filter, reason)
	if err != nil {
		return nil, 0, apperror.Store("failed to list discards", err)
	}

	records := make([]DiscardRecord, 0, len(discards))
	for _, d := range discards {
		record := DiscardRecord{
			ID:        d.ID.String(),
			ItemID:    d.ItemID.String(),
			Quantity:  d.Quantity,
			Reason:    d.Reason,
			Notes:     d.Notes,
			CreatedAt: d.CreatedAt,
		}
		if d.Item != nil {
			record.ItemName = d.Item.Name
		}
		if d.User != nil {
			record.DiscardedBy = d.User.Username
		}
		records = append(records, record)
	}
	return records, total, nil
}
