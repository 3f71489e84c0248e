package service

import (
	"context"
	"time"

	"stonemarket/internal/models"
	"stonemarket/internal/pricing"
	"stonemarket/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type reservationService struct {
	repo          *repository.Repository
	bus           EventBus
	log           *zap.Logger
	defaultExpiry time.Duration
	now           func() time.Time
}

func NewReservationService(repo *repository.Repository, bus EventBus, log *zap.Logger, defaultExpiry time.Duration) *reservationService {
	if bus == nil {
		bus = NopBus{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if defaultExpiry <= 0 {
		defaultExpiry = 7 * 24 * time.Hour
	}
	return &reservationService{
		repo:          repo,
		bus:           bus,
		log:           log,
		defaultExpiry: defaultExpiry,
		now:           time.Now,
	}
}

func (s *reservationService) publish(ctx context.Context, e ReservationEvent) {
	if err := s.bus.PublishReservationEvent(ctx, e); err != nil {
		s.log.Warn("failed to publish reservation event",
			zap.String("type", e.Type),
			zap.String("reservation_id", e.ReservationID.String()),
			zap.Error(err))
	}
}

func (s *reservationService) CreateReservation(ctx context.Context, in ReservationInput) (*models.Reservation, error) {
	actor, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	b, err := s.repo.Batches.GetByID(ctx, in.BatchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBatchNotFound
	}
	if !b.IsActive {
		return nil, ErrBatchInactive
	}

	// Owner-side actors reserve at the list price. Anyone else needs an
	// active sharing grant, which also resolves the applicable price.
	viaGrant := false
	price, unit := b.UnitPrice, b.PriceUnit
	if !canManageBatch(role, industryID, b) {
		grant, err := s.repo.Grants.Get(ctx, in.BatchID, actor)
		if err != nil {
			return nil, err
		}
		if grant == nil {
			return nil, ErrForbidden
		}
		viaGrant = true
		price, unit = pricing.ResolveApplicablePrice(b, grant)
	}

	now := s.now()
	expiresAt := now.Add(s.defaultExpiry)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, ErrExpiryInPast
		}
		expiresAt = *in.ExpiresAt
	}

	res := &models.Reservation{
		BatchID:         in.BatchID,
		RequesterID:     actor,
		CustomerName:    in.CustomerName,
		CustomerContact: in.CustomerContact,
		Quantity:        in.Quantity,
		UnitPrice:       price,
		PriceUnit:       unit,
		Status:          models.ReservationActive,
		ViaGrant:        viaGrant,
		Notes:           in.Notes,
		ExpiresAt:       expiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Ledger decrement and reservation row commit together or not at all.
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		ok, err := tx.Batches.Reserve(ctx, in.BatchID, in.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			fresh, err := tx.Batches.GetByID(ctx, in.BatchID)
			if err != nil {
				return err
			}
			available := int32(0)
			if fresh != nil {
				available = fresh.AvailableSlabs
			}
			return &InsufficientStockError{Requested: in.Quantity, Available: available}
		}
		return tx.Reservations.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ReservationEvent{
		Type:          EventReservationCreated,
		ReservationID: res.ID,
		BatchID:       res.BatchID,
		RequesterID:   res.RequesterID,
		Quantity:      res.Quantity,
		OccurredAt:    now,
	})
	return res, nil
}

func (s *reservationService) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	actor, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	if res.RequesterID != actor {
		b, err := s.repo.Batches.GetByID(ctx, res.BatchID)
		if err != nil {
			return nil, err
		}
		if b == nil || !canManageBatch(role, industryID, b) {
			return nil, ErrForbidden
		}
	}
	return res, nil
}

func (s *reservationService) ListMyReservations(ctx context.Context, limit, offset int) ([]models.Reservation, int64, error) {
	actor, _, _, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.Reservations.ListByRequester(ctx, actor, limit, offset)
}

// Approve gates conversion; it moves no quantities.
func (s *reservationService) Approve(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	_, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	b, err := s.repo.Batches.GetByID(ctx, res.BatchID)
	if err != nil {
		return nil, err
	}
	if b == nil || !canApprove(role, industryID, b) {
		return nil, ErrForbidden
	}

	ok, err := s.repo.Reservations.MarkApproved(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReservationNotActive
	}

	s.publish(ctx, ReservationEvent{
		Type:          EventReservationApproved,
		ReservationID: res.ID,
		BatchID:       res.BatchID,
		RequesterID:   res.RequesterID,
		Quantity:      res.Quantity,
		OccurredAt:    s.now(),
	})
	return s.repo.Reservations.GetByID(ctx, id)
}

func (s *reservationService) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Reservation, error) {
	_, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	b, err := s.repo.Batches.GetByID(ctx, res.BatchID)
	if err != nil {
		return nil, err
	}
	if b == nil || !canApprove(role, industryID, b) {
		return nil, ErrForbidden
	}

	if err := s.releaseTerminal(ctx, res, func(tx *repository.Repository) (bool, error) {
		return tx.Reservations.MarkRejected(ctx, id, reason)
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, ReservationEvent{
		Type:          EventReservationRejected,
		ReservationID: res.ID,
		BatchID:       res.BatchID,
		RequesterID:   res.RequesterID,
		Quantity:      res.Quantity,
		Reason:        reason,
		OccurredAt:    s.now(),
	})
	return s.repo.Reservations.GetByID(ctx, id)
}

func (s *reservationService) Cancel(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	actor, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	if res.RequesterID != actor && role != RoleAdmin {
		b, err := s.repo.Batches.GetByID(ctx, res.BatchID)
		if err != nil {
			return nil, err
		}
		if b == nil || !canApprove(role, industryID, b) {
			return nil, ErrForbidden
		}
	}

	if err := s.releaseTerminal(ctx, res, func(tx *repository.Repository) (bool, error) {
		return tx.Reservations.MarkCancelled(ctx, id)
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, ReservationEvent{
		Type:          EventReservationCancelled,
		ReservationID: res.ID,
		BatchID:       res.BatchID,
		RequesterID:   res.RequesterID,
		Quantity:      res.Quantity,
		OccurredAt:    s.now(),
	})
	return s.repo.Reservations.GetByID(ctx, id)
}

// releaseTerminal flips an ACTIVE reservation into a terminal state and
// returns its quantity to the available pool, atomically. The conditional
// status update decides the winner under concurrency.
func (s *reservationService) releaseTerminal(ctx context.Context, res *models.Reservation, mark func(tx *repository.Repository) (bool, error)) error {
	return s.repo.WithTx(func(tx *repository.Repository) error {
		ok, err := mark(tx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrReservationNotActive
		}
		released, err := tx.Batches.Release(ctx, res.BatchID, res.Quantity)
		if err != nil {
			return err
		}
		if !released {
			return ErrInvariantViolation
		}
		return nil
	})
}

func (s *reservationService) Expire(ctx context.Context, id uuid.UUID) error {
	res, err := s.repo.Reservations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if res == nil {
		return ErrReservationNotFound
	}
	// Terminal reservations are left untouched: expiry is idempotent.
	if res.Status != models.ReservationActive {
		return nil
	}

	now := s.now()
	if !res.ExpiresAt.Before(now) {
		return nil
	}

	var expired bool
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		ok, err := tx.Reservations.MarkExpired(ctx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			// someone approved/rejected/cancelled it between the read
			// and the conditional update; nothing to do
			return nil
		}
		released, err := tx.Batches.Release(ctx, res.BatchID, res.Quantity)
		if err != nil {
			return err
		}
		if !released {
			return ErrInvariantViolation
		}
		expired = true
		return nil
	})
	if err != nil {
		return err
	}

	if expired {
		s.publish(ctx, ReservationEvent{
			Type:          EventReservationExpired,
			ReservationID: res.ID,
			BatchID:       res.BatchID,
			RequesterID:   res.RequesterID,
			Quantity:      res.Quantity,
			OccurredAt:    now,
		})
	}
	return nil
}

func (s *reservationService) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.repo.Reservations.ListExpiredActive(ctx, s.now(), 0)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, res := range due {
		if err := s.Expire(ctx, res.ID); err != nil {
			// logged and retried on the next cycle
			s.log.Error("failed to expire reservation",
				zap.String("reservation_id", res.ID.String()),
				zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}
