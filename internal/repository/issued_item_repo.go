package repository

import (
	"context"
	"time"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IssuedItemFilter narrows List results.
type IssuedItemFilter struct {
	HolderID  *uuid.UUID
	RequestID *uuid.UUID
	Returned  *bool
	OverdueAt *time.Time // only active items whose return_due is before this instant
}

type IssuedItemRepository interface {
	Create(ctx context.Context, item *model.IssuedItem) error
	Update(ctx context.Context, item *model.IssuedItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.IssuedItem, error)
	// FindByIDForUpdate locks the row so return and transfer serialize on the
	// returned flag.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.IssuedItem, error)
	List(ctx context.Context, page, limit int, filter IssuedItemFilter) ([]model.IssuedItem, int64, error)
	ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error)
}

type issuedItemRepository struct {
	db *gorm.DB
}

func NewIssuedItemRepository(db *gorm.DB) IssuedItemRepository {
	return &issuedItemRepository{db: db}
}

func (r *issuedItemRepository) Create(ctx context.Context, item *model.IssuedItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *issuedItemRepository) Update(ctx context.Context, item *model.IssuedItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *issuedItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.IssuedItem, error) {
	var item model.IssuedItem
	if err := GetDB(ctx, r.db).Preload("Item").Preload("Holder").
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *issuedItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.IssuedItem, error) {
	var item model.IssuedItem
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *issuedItemRepository) List(ctx context.Context, page, limit int, filter IssuedItemFilter) ([]model.IssuedItem, int64, error) {
	var items []model.IssuedItem
	var total int64

	base := GetDB(ctx, r.db).Model(&model.IssuedItem{})
	base = applyIssuedFilter(base, filter)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := applyIssuedFilter(GetDB(ctx, r.db), filter).
		Preload("Item").Preload("Holder").
		Order("created_at desc").Offset(offset).Limit(limit)
	if err := fetch.Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func applyIssuedFilter(db *gorm.DB, filter IssuedItemFilter) *gorm.DB {
	if filter.HolderID != nil {
		db = db.Where("holder_id = ?", *filter.HolderID)
	}
	if filter.RequestID != nil {
		db = db.Where("request_id = ?", *filter.RequestID)
	}
	if filter.Returned != nil {
		db = db.Where("returned = ?", *filter.Returned)
	}
	if filter.OverdueAt != nil {
		db = db.Where("returned = false AND return_due < ?", *filter.OverdueAt)
	}
	return db
}

func (r *issuedItemRepository) ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.IssuedItem{}).
		Where("request_id = ?", requestID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
