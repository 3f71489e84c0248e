package service

import (
	"context"
	"time"

	"stonemarket/internal/models"
	"stonemarket/internal/repository"

	"github.com/google/uuid"
)

type sharingService struct {
	repo *repository.Repository
	now  func() time.Time
}

func NewSharingService(repo *repository.Repository) *sharingService {
	return &sharingService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *sharingService) ownedBatch(ctx context.Context, batchID uuid.UUID) (*models.Batch, error) {
	_, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.Batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBatchNotFound
	}
	if !canManageBatch(role, industryID, b) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *sharingService) GrantBatch(ctx context.Context, in GrantInput) (*models.SharingGrant, error) {
	if _, err := s.ownedBatch(ctx, in.BatchID); err != nil {
		return nil, err
	}
	if in.NegotiatedPriceUnit != nil && !in.NegotiatedPriceUnit.Valid() {
		return nil, ErrInvalidPriceUnit
	}

	g := &models.SharingGrant{
		BatchID:             in.BatchID,
		GranteeID:           in.GranteeID,
		NegotiatedPrice:     in.NegotiatedPrice,
		NegotiatedPriceUnit: in.NegotiatedPriceUnit,
		CreatedAt:           s.now(),
	}
	if err := s.repo.Grants.Upsert(ctx, g); err != nil {
		return nil, err
	}
	return s.repo.Grants.Get(ctx, in.BatchID, in.GranteeID)
}

// GrantCatalog shares every active batch of the caller's industry at
// list price; per-batch negotiated prices are set afterwards with
// GrantBatch.
func (s *sharingService) GrantCatalog(ctx context.Context, granteeID uuid.UUID) ([]models.SharingGrant, error) {
	_, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if role != RoleAdmin && role != RoleIndustry {
		return nil, ErrForbidden
	}
	if industryID == uuid.Nil {
		return nil, ErrForbidden
	}

	active := true
	batches, _, err := s.repo.Batches.List(ctx, repository.BatchListFilter{
		IndustryID: &industryID,
		OnlyActive: &active,
		Limit:      1000,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	granted := make([]models.SharingGrant, 0, len(batches))
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		for i := range batches {
			g := models.SharingGrant{
				BatchID:   batches[i].ID,
				GranteeID: granteeID,
				CreatedAt: now,
			}
			if err := tx.Grants.Upsert(ctx, &g); err != nil {
				return err
			}
			granted = append(granted, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return granted, nil
}

func (s *sharingService) RevokeGrant(ctx context.Context, batchID, granteeID uuid.UUID) (bool, error) {
	if _, err := s.ownedBatch(ctx, batchID); err != nil {
		return false, err
	}
	return s.repo.Grants.Revoke(ctx, batchID, granteeID)
}

func (s *sharingService) ListGrantsForBatch(ctx context.Context, batchID uuid.UUID) ([]models.SharingGrant, error) {
	if _, err := s.ownedBatch(ctx, batchID); err != nil {
		return nil, err
	}
	return s.repo.Grants.ListByBatch(ctx, batchID)
}

func (s *sharingService) ListMyGrants(ctx context.Context) ([]models.SharingGrant, error) {
	actor, _, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Grants.ListByGrantee(ctx, actor)
}
