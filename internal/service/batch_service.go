package service

import (
	"context"
	"strings"
	"time"

	"stonemarket/internal/models"
	"stonemarket/internal/pricing"
	"stonemarket/internal/repository"

	"github.com/google/uuid"
)

type batchService struct {
	repo *repository.Repository
	snap SnapshotCache
	now  func() time.Time
}

// SnapshotCache is an optional read cache for batch views; entries expire
// by TTL, so reads through it are eventually consistent. Owner-side edits
// invalidate eagerly; counter movements from reservations and sales are
// only TTL-bounded.
type SnapshotCache interface {
	GetBatchView(ctx context.Context, batchID uuid.UUID) (*BatchView, bool)
	SetBatchView(ctx context.Context, v *BatchView)
	InvalidateBatch(ctx context.Context, batchID uuid.UUID)
}

func NewBatchService(repo *repository.Repository, snap SnapshotCache) *batchService {
	return &batchService{
		repo: repo,
		snap: snap,
		now:  time.Now,
	}
}

func requireAuth(ctx context.Context) (uuid.UUID, uuid.UUID, Role, error) {
	actor, ok := ActorIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, "", ErrUnauthorized
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, "", ErrUnauthorized
	}
	industry, _ := IndustryIDFromContext(ctx)
	return actor, industry, role, nil
}

// canManageBatch holds for admins and for industry-side actors of the
// owning tenant. Brokers never manage batches.
func canManageBatch(role Role, industryID uuid.UUID, b *models.Batch) bool {
	if role == RoleAdmin {
		return true
	}
	if role == RoleIndustry || role == RoleSeller {
		return industryID != uuid.Nil && industryID == b.IndustryID
	}
	return false
}

// canApprove is the approval authority gate: the owning industry itself
// or an admin, not the industry's sellers.
func canApprove(role Role, industryID uuid.UUID, b *models.Batch) bool {
	if role == RoleAdmin {
		return true
	}
	return role == RoleIndustry && industryID == b.IndustryID
}

func toBatchView(b *models.Batch) *BatchView {
	return &BatchView{
		Batch:         *b,
		SummaryStatus: b.Status(),
		TotalAreaM2:   pricing.BatchAreaM2(b, b.TotalSlabs),
	}
}

func (s *batchService) CreateBatch(ctx context.Context, in BatchInput) (*models.Batch, error) {
	_, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if role != RoleAdmin && role != RoleIndustry {
		return nil, ErrForbidden
	}
	if role == RoleIndustry && in.IndustryID != industryID {
		return nil, ErrForbidden
	}

	if in.TotalSlabs <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !in.PriceUnit.Valid() {
		return nil, ErrInvalidPriceUnit
	}

	now := s.now()
	b := &models.Batch{
		IndustryID:     in.IndustryID,
		ProductRef:     strings.TrimSpace(in.ProductRef),
		HeightCM:       in.HeightCM,
		WidthCM:        in.WidthCM,
		ThicknessCM:    in.ThicknessCM,
		TotalSlabs:     in.TotalSlabs,
		AvailableSlabs: in.TotalSlabs,
		UnitPrice:      in.UnitPrice,
		PriceUnit:      in.PriceUnit,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Batches.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *batchService) GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchView, error) {
	if s.snap != nil {
		if v, ok := s.snap.GetBatchView(ctx, batchID); ok {
			return v, nil
		}
	}

	b, err := s.repo.Batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBatchNotFound
	}

	v := toBatchView(b)
	if s.snap != nil {
		s.snap.SetBatchView(ctx, v)
	}
	return v, nil
}

func (s *batchService) ListBatches(ctx context.Context, f BatchListFilter) ([]BatchView, int64, error) {
	list, total, err := s.repo.Batches.List(ctx, repository.BatchListFilter{
		IndustryID: f.IndustryID,
		Query:      f.Query,
		OnlyActive: f.OnlyActive,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	views := make([]BatchView, 0, len(list))
	for i := range list {
		views = append(views, *toBatchView(&list[i]))
	}
	return views, total, nil
}

func (s *batchService) UpdateBatch(ctx context.Context, batchID uuid.UUID, patch BatchPatch) (*models.Batch, error) {
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

	fields := map[string]any{}
	if patch.ProductRef != nil {
		fields["product_ref"] = strings.TrimSpace(*patch.ProductRef)
	}
	if patch.UnitPrice != nil {
		fields["unit_price"] = *patch.UnitPrice
	}
	if patch.PriceUnit != nil {
		if !patch.PriceUnit.Valid() {
			return nil, ErrInvalidPriceUnit
		}
		fields["price_unit"] = *patch.PriceUnit
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}

	if len(fields) == 0 {
		return b, nil
	}
	fields["updated_at"] = s.now()

	if err := s.repo.Batches.UpdateFields(ctx, batchID, fields); err != nil {
		return nil, err
	}
	s.invalidate(ctx, batchID)
	return s.repo.Batches.GetByID(ctx, batchID)
}

func (s *batchService) invalidate(ctx context.Context, batchID uuid.UUID) {
	if s.snap != nil {
		s.snap.InvalidateBatch(ctx, batchID)
	}
}

func (s *batchService) DeleteBatch(ctx context.Context, batchID uuid.UUID) (bool, error) {
	_, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return false, err
	}

	b, err := s.repo.Batches.GetByID(ctx, batchID)
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, ErrBatchNotFound
	}
	if !canManageBatch(role, industryID, b) {
		return false, ErrForbidden
	}
	if b.ReservedSlabs > 0 {
		return false, ErrBatchHasReservations
	}

	deleted, err := s.repo.Batches.SoftDelete(ctx, batchID)
	if deleted {
		s.invalidate(ctx, batchID)
	}
	return deleted, err
}

func (s *batchService) DeactivateSlabs(ctx context.Context, batchID uuid.UUID, qty int32) (*models.Batch, error) {
	return s.moveAdministrative(ctx, batchID, qty, s.repo.Batches.Deactivate,
		func(b *models.Batch) int32 { return b.AvailableSlabs })
}

func (s *batchService) ReactivateSlabs(ctx context.Context, batchID uuid.UUID, qty int32) (*models.Batch, error) {
	return s.moveAdministrative(ctx, batchID, qty, s.repo.Batches.Reactivate,
		func(b *models.Batch) int32 { return b.InactiveSlabs })
}

func (s *batchService) moveAdministrative(ctx context.Context, batchID uuid.UUID, qty int32, move func(context.Context, uuid.UUID, int32) (bool, error), pool func(*models.Batch) int32) (*models.Batch, error) {
	_, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
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

	ok, err := move(ctx, batchID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &InsufficientStockError{Requested: qty, Available: pool(b)}
	}

	s.invalidate(ctx, batchID)
	return s.repo.Batches.GetByID(ctx, batchID)
}
