package repository

import (
	"context"
	"errors"
	"time"

	"stonemarket/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationRepo persists reservation rows. Status transitions are
// conditional on the current status so a concurrent sweep and a manual
// approve/reject cannot both win; the loser sees RowsAffected == 0.
type ReservationRepo interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Reservation, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]models.Reservation, int64, error)

	// Transitions from ACTIVE.
	MarkApproved(ctx context.Context, id uuid.UUID) (bool, error)
	MarkRejected(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// Transition from APPROVED.
	MarkConverted(ctx context.Context, id uuid.UUID) (bool, error)

	// ListExpiredActive returns ACTIVE reservations whose deadline has
	// passed, for the background sweep.
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepo(db *gorm.DB) ReservationRepo { return &reservationRepo{db: db} }

func (r *reservationRepo) Create(ctx context.Context, res *models.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &res, err
}

func (r *reservationRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Reservation, error) {
	var list []models.Reservation
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]models.Reservation, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("requester_id = ?", requesterID)

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

	var list []models.Reservation
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

func (r *reservationRepo) markFrom(ctx context.Context, id uuid.UUID, from models.ReservationStatus, fields map[string]any) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return tx.RowsAffected > 0, tx.Error
}

func (r *reservationRepo) MarkApproved(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.markFrom(ctx, id, models.ReservationActive, map[string]any{
		"status": models.ReservationApproved,
	})
}

func (r *reservationRepo) MarkRejected(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.markFrom(ctx, id, models.ReservationActive, map[string]any{
		"status":        models.ReservationRejected,
		"reject_reason": reason,
	})
}

func (r *reservationRepo) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.markFrom(ctx, id, models.ReservationActive, map[string]any{
		"status": models.ReservationCancelled,
	})
}

func (r *reservationRepo) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	// expires_at is checked here too so a sweep fed a stale list cannot
	// expire a reservation that was extended meanwhile
	tx := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ? AND expires_at < ?", id, models.ReservationActive, now).
		Update("status", models.ReservationExpired)
	return tx.RowsAffected > 0, tx.Error
}

func (r *reservationRepo) MarkConverted(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.markFrom(ctx, id, models.ReservationApproved, map[string]any{
		"status": models.ReservationConverted,
	})
}

func (r *reservationRepo) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	if limit <= 0 {
		limit = 200
	}
	var list []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.ReservationActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
