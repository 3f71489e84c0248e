package repository

import (
	"context"
	"errors"

	"stonemarket/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleRepo is append-only: sales are created once and never updated.
// The unique index on reservation_id backs the exactly-once guarantee.
type SaleRepo interface {
	Create(ctx context.Context, s *models.Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	GetByReservation(ctx context.Context, reservationID uuid.UUID) (*models.Sale, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Sale, int64, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Sale, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepo(db *gorm.DB) SaleRepo { return &saleRepo{db: db} }

func (r *saleRepo) Create(ctx context.Context, s *models.Sale) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *saleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var s models.Sale
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *saleRepo) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*models.Sale, error) {
	var s models.Sale
	err := r.db.WithContext(ctx).First(&s, "reservation_id = ?", reservationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *saleRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Sale, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Sale{}).Where("seller_id = ?", sellerID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var list []models.Sale
	err := q.Order("sold_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

func (r *saleRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Sale, error) {
	var list []models.Sale
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("sold_at ASC").
		Find(&list).Error
	return list, err
}
