package repository

import (
	"context"
	"errors"

	"stonemarket/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GrantRepo persists sharing grants. The unique (batch_id, grantee_id)
// index keeps one active grant per pair; re-granting upserts the
// negotiated price.
type GrantRepo interface {
	Upsert(ctx context.Context, g *models.SharingGrant) error
	Get(ctx context.Context, batchID, granteeID uuid.UUID) (*models.SharingGrant, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.SharingGrant, error)
	ListByGrantee(ctx context.Context, granteeID uuid.UUID) ([]models.SharingGrant, error)
	Revoke(ctx context.Context, batchID, granteeID uuid.UUID) (bool, error)
}

type grantRepo struct{ db *gorm.DB }

func NewGrantRepo(db *gorm.DB) GrantRepo { return &grantRepo{db: db} }

func (r *grantRepo) Upsert(ctx context.Context, g *models.SharingGrant) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "batch_id"}, {Name: "grantee_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"negotiated_price":      g.NegotiatedPrice,
				"negotiated_price_unit": g.NegotiatedPriceUnit,
			}),
		}).
		Create(g).Error
}

func (r *grantRepo) Get(ctx context.Context, batchID, granteeID uuid.UUID) (*models.SharingGrant, error) {
	var g models.SharingGrant
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND grantee_id = ?", batchID, granteeID).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &g, err
}

func (r *grantRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.SharingGrant, error) {
	var list []models.SharingGrant
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *grantRepo) ListByGrantee(ctx context.Context, granteeID uuid.UUID) ([]models.SharingGrant, error) {
	var list []models.SharingGrant
	err := r.db.WithContext(ctx).
		Where("grantee_id = ?", granteeID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *grantRepo) Revoke(ctx context.Context, batchID, granteeID uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("batch_id = ? AND grantee_id = ?", batchID, granteeID).
		Delete(&models.SharingGrant{})
	return tx.RowsAffected > 0, tx.Error
}
