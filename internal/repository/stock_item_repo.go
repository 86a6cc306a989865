package repository

import (
	"context"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockItemRepository interface {
	Create(ctx context.Context, item *model.StockItem) error
	Update(ctx context.Context, item *model.StockItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockItem, error)
	// FindByIDForUpdate locks the item row for the duration of the enclosing
	// transaction. All Ledger read-modify-write cycles go through this.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StockItem, error)
	List(ctx context.Context, page, limit int, search, category string) ([]model.StockItem, int64, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
}

type stockItemRepository struct {
	db *gorm.DB
}

func NewStockItemRepository(db *gorm.DB) StockItemRepository {
	return &stockItemRepository{db: db}
}

func (r *stockItemRepository) Create(ctx context.Context, item *model.StockItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *stockItemRepository) Update(ctx context.Context, item *model.StockItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *stockItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.StockItem{}).Error
}

func (r *stockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	var item model.StockItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *stockItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	var item model.StockItem
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *stockItemRepository) List(ctx context.Context, page, limit int, search, category string) ([]model.StockItem, int64, error) {
	var items []model.StockItem
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockItem{})
	if search != "" {
		db = db.Where("name ILIKE ?", "%"+search+"%")
	}
	if category != "" {
		db = db.Where("category = ?", category)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *stockItemRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return GetDB(ctx, r.db).Model(&model.StockItem{}).Where("id = ?", id).Update("quantity", quantity).Error
}
