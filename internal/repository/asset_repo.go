package repository

import (
	"context"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssetRepository interface {
	Create(ctx context.Context, asset *model.Asset) error
	Update(ctx context.Context, asset *model.Asset) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	FindByItemNumber(ctx context.Context, itemNumber string) (*model.Asset, error)
	List(ctx context.Context, page, limit int, status string) ([]model.Asset, int64, error)
}

type assetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *model.Asset) error {
	return GetDB(ctx, r.db).Create(asset).Error
}

func (r *assetRepository) Update(ctx context.Context, asset *model.Asset) error {
	return GetDB(ctx, r.db).Save(asset).Error
}

func (r *assetRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	var asset model.Asset
	if err := GetDB(ctx, r.db).First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	var asset model.Asset
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) FindByItemNumber(ctx context.Context, itemNumber string) (*model.Asset, error) {
	var asset model.Asset
	if err := GetDB(ctx, r.db).Where("item_number = ?", itemNumber).First(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) List(ctx context.Context, page, limit int, status string) ([]model.Asset, int64, error) {
	var assets []model.Asset
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Asset{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&assets).Error; err != nil {
		return nil, 0, err
	}

	return assets, total, nil
}
