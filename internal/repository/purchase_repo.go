package repository

import (
	"context"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *model.PurchaseHistory) error
	List(ctx context.Context, page, limit int, itemID *uuid.UUID) ([]model.PurchaseHistory, int64, error)
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *model.PurchaseHistory) error {
	return GetDB(ctx, r.db).Create(purchase).Error
}

func (r *purchaseRepository) List(ctx context.Context, page, limit int, itemID *uuid.UUID) ([]model.PurchaseHistory, int64, error) {
	var purchases []model.PurchaseHistory
	var total int64

	db := GetDB(ctx, r.db).Model(&model.PurchaseHistory{})
	if itemID != nil {
		db = db.Where("item_id = ?", *itemID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Item").
		Order("created_at desc").Offset(offset).Limit(limit).
		Find(&purchases).Error; err != nil {
		return nil, 0, err
	}

	return purchases, total, nil
}
