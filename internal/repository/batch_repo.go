package repository

import (
	"context"
	"errors"
	"strings"

	"stonemarket/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchListFilter struct {
	IndustryID *uuid.UUID
	Query      string // by product_ref
	OnlyActive *bool
	Limit      int
	Offset     int
}

// BatchRepo owns the batch rows and is the only place the four slab
// counters are mutated. Every ledger movement is a single conditional
// UPDATE so concurrent callers cannot oversell: the losing caller sees
// RowsAffected == 0.
type BatchRepo interface {
	Create(ctx context.Context, b *models.Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Batch, error)
	List(ctx context.Context, f BatchListFilter) ([]models.Batch, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)

	// Ledger movements (atomic check-and-move):
	// Reserve: if available >= qty then available -= qty; reserved += qty
	Reserve(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error)
	// Release: if reserved >= qty then reserved -= qty; available += qty
	Release(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error)
	// ConvertToSold: if reserved >= qty then reserved -= qty; sold += qty
	ConvertToSold(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error)
	// Deactivate: if available >= qty then available -= qty; inactive += qty
	Deactivate(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error)
	// Reactivate: if inactive >= qty then inactive -= qty; available += qty
	Reactivate(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error)
}

type batchRepo struct{ db *gorm.DB }

func NewBatchRepo(db *gorm.DB) BatchRepo { return &batchRepo{db: db} }

func (r *batchRepo) Create(ctx context.Context, b *models.Batch) error {
	return r.db.WithContext(ctx).Select("*").Omit("DeletedAt").Create(b).Error
}

func (r *batchRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var b models.Batch
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &b, err
}

func (r *batchRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Batch, error) {
	if len(ids) == 0 {
		return []models.Batch{}, nil
	}
	var list []models.Batch
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *batchRepo) List(ctx context.Context, f BatchListFilter) ([]models.Batch, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Batch{})

	if f.IndustryID != nil {
		q = q.Where("industry_id = ?", *f.IndustryID)
	}
	if f.OnlyActive != nil {
		q = q.Where("is_active = ?", *f.OnlyActive)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		q = q.Where("lower(product_ref) LIKE lower(?)", "%"+s+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.Batch
	if err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *batchRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Batch{}).Where("id = ?", id).Updates(fields).Error
}

func (r *batchRepo) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Batch{}, "id = ?", id)
	return tx.RowsAffected > 0, tx.Error
}

func (r *batchRepo) Reserve(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE batches
SET available_slabs = available_slabs - @q,
    reserved_slabs  = reserved_slabs  + @q,
    updated_at = now()
WHERE id = @bid
  AND deleted_at IS NULL
  AND available_slabs >= @q
`, map[string]any{
		"bid": batchID,
		"q":   qty,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *batchRepo) Release(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE batches
SET reserved_slabs  = reserved_slabs  - @q,
    available_slabs = available_slabs + @q,
    updated_at = now()
WHERE id = @bid
  AND reserved_slabs >= @q
`, map[string]any{
		"bid": batchID,
		"q":   qty,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *batchRepo) ConvertToSold(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE batches
SET reserved_slabs = reserved_slabs - @q,
    sold_slabs     = sold_slabs     + @q,
    updated_at = now()
WHERE id = @bid
  AND reserved_slabs >= @q
`, map[string]any{
		"bid": batchID,
		"q":   qty,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *batchRepo) Deactivate(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE batches
SET available_slabs = available_slabs - @q,
    inactive_slabs  = inactive_slabs  + @q,
    updated_at = now()
WHERE id = @bid
  AND available_slabs >= @q
`, map[string]any{
		"bid": batchID,
		"q":   qty,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *batchRepo) Reactivate(ctx context.Context, batchID uuid.UUID, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE batches
SET inactive_slabs  = inactive_slabs  - @q,
    available_slabs = available_slabs + @q,
    updated_at = now()
WHERE id = @bid
  AND inactive_slabs >= @q
`, map[string]any{
		"bid": batchID,
		"q":   qty,
	})
	return tx.RowsAffected > 0, tx.Error
}
