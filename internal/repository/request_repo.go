package repository

import (
	"context"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	Update(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	// FindByIDForUpdate locks the request row so concurrent approve/reject
	// calls serialize on the status check.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, page, limit int, status string, requesterID *uuid.UUID) ([]model.Request, int64, error)
	ReplaceLines(ctx context.Context, requestID uuid.UUID, lines []model.RequestLine) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) Update(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Omit("Lines").Save(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Requester").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).
		Where("request_id = ?", id).Order("position asc").
		Find(&req.Lines).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, page, limit int, status string, requesterID *uuid.UUID) ([]model.Request, int64, error) {
	var requests []model.Request
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Request{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if requesterID != nil {
		db = db.Where("requester_id = ?", *requesterID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Requester").
		Order("created_at desc").Offset(offset).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) ReplaceLines(ctx context.Context, requestID uuid.UUID, lines []model.RequestLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("request_id = ?", requestID).Delete(&model.RequestLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].RequestID = requestID
	}
	return db.Create(&lines).Error
}
