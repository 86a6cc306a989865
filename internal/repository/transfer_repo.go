package repository

import (
	"context"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransferRepository interface {
	Create(ctx context.Context, transfer *model.Transfer) error
	List(ctx context.Context, page, limit int, issuedItemID *uuid.UUID) ([]model.Transfer, int64, error)
}

type transferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) Create(ctx context.Context, transfer *model.Transfer) error {
	return GetDB(ctx, r.db).Create(transfer).Error
}

func (r *transferRepository) List(ctx context.Context, page, limit int, issuedItemID *uuid.UUID) ([]model.Transfer, int64, error) {
	var transfers []model.Transfer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Transfer{})
	if issuedItemID != nil {
		db = db.Where("issued_item_id = ?", *issuedItemID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("FromUser").Preload("ToUser").
		Order("created_at desc").Offset(offset).Limit(limit).
		Find(&transfers).Error; err != nil {
		return nil, 0, err
	}

	return transfers, total, nil
}
