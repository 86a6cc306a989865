package repository

import (
	"context"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DiscardRepository interface {
	Create(ctx context.Context, discard *model.DiscardedItem) error
	List(ctx context.Context, page, limit int, itemID *uuid.UUID, reason string) ([]model.DiscardedItem, int64, error)
}

type discardRepository struct {
	db *gorm.DB
}

func NewDiscardRepository(db *gorm.DB) DiscardRepository {
	return &discardRepository{db: db}
}

func (r *discardRepository) Create(ctx context.Context, discard *model.DiscardedItem) error {
	return GetDB(ctx, r.db).Create(discard).Error
}

func (r *discardRepository) List(ctx context.Context, page, limit int, itemID *uuid.UUID, reason string) ([]model.DiscardedItem, int64, error) {
	var discards []model.DiscardedItem
	var total int64

	db := GetDB(ctx, r.db).Model(&model.DiscardedItem{})
	if itemID != nil {
		db = db.Where("item_id = ?", *itemID)
	}
	if reason != "" {
		db = db.Where("reason = ?", reason)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Item").Preload("User").
		Order("created_at desc").Offset(offset).Limit(limit).
		Find(&discards).Error; err != nil {
		return nil, 0, err
	}

	return discards, total, nil
}
