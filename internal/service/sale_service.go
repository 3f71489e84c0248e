package service

import (
	"context"
	"time"

	"stonemarket/internal/models"
	"stonemarket/internal/pricing"
	"stonemarket/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type saleService struct {
	repo *repository.Repository
	bus  EventBus
	log  *zap.Logger
	now  func() time.Time
}

func NewSaleService(repo *repository.Repository, bus EventBus, log *zap.Logger) *saleService {
	if bus == nil {
		bus = NopBus{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &saleService{
		repo: repo,
		bus:  bus,
		log:  log,
		now:  time.Now,
	}
}

// ConfirmSale consumes an APPROVED reservation: the final quantity moves
// to sold, any remainder returns to available, and exactly one sale row
// is written with the commission split fixed at this moment.
func (s *saleService) ConfirmSale(ctx context.Context, in ConfirmSaleInput) (*models.Sale, error) {
	_, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Reservations.GetByID(ctx, in.ReservationID)
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
	if b == nil {
		return nil, ErrBatchNotFound
	}
	if !canApprove(role, industryID, b) {
		return nil, ErrForbidden
	}

	switch res.Status {
	case models.ReservationApproved:
	case models.ReservationConverted:
		return nil, ErrAlreadyConverted
	default:
		return nil, ErrReservationNotApproved
	}

	if in.FinalQuantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.FinalQuantity > res.Quantity {
		return nil, ErrQuantityExceedsReservation
	}

	unitPrice := res.UnitPrice
	if in.FinalUnitPrice != nil {
		unitPrice = *in.FinalUnitPrice
	}

	areaM2 := pricing.BatchAreaM2(b, in.FinalQuantity)
	finalTotal := pricing.TotalPrice(areaM2, unitPrice, res.PriceUnit)

	// Broker margin against the owner's list price at sale time. The
	// split is stored now and never recomputed from mutable inputs.
	commission := decimal.Zero
	if res.ViaGrant {
		ownerTotal := pricing.TotalPrice(areaM2, b.UnitPrice, b.PriceUnit)
		commission = finalTotal.Sub(ownerTotal)
	}
	net := finalTotal.Sub(commission)

	now := s.now()
	sale := &models.Sale{
		ReservationID:   res.ID,
		BatchID:         res.BatchID,
		SellerID:        res.RequesterID,
		CustomerName:    res.CustomerName,
		CustomerContact: res.CustomerContact,
		Quantity:        in.FinalQuantity,
		TotalAreaM2:     areaM2,
		UnitPrice:       unitPrice,
		PriceUnit:       res.PriceUnit,
		TotalPrice:      finalTotal,
		Commission:      commission,
		NetAmount:       net,
		InvoiceRef:      in.InvoiceRef,
		SoldAt:          now,
	}

	err = s.repo.WithTx(func(tx *repository.Repository) error {
		// The conditional APPROVED→CONVERTED flip is the only writer
		// allowed to continue; a concurrent confirm loses here.
		ok, err := tx.Reservations.MarkConverted(ctx, res.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyConverted
		}

		ok, err = tx.Batches.ConvertToSold(ctx, res.BatchID, in.FinalQuantity)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvariantViolation
		}

		if remainder := res.Quantity - in.FinalQuantity; remainder > 0 {
			released, err := tx.Batches.Release(ctx, res.BatchID, remainder)
			if err != nil {
				return err
			}
			if !released {
				return ErrInvariantViolation
			}
		}

		return tx.Sales.Create(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	if err := s.bus.PublishSaleConfirmed(ctx, SaleConfirmedEvent{
		Type:       EventSaleConfirmed,
		SaleID:     sale.ID,
		BatchID:    sale.BatchID,
		SellerID:   sale.SellerID,
		Quantity:   sale.Quantity,
		TotalPrice: sale.TotalPrice,
		Commission: sale.Commission,
		OccurredAt: now,
	}); err != nil {
		s.log.Warn("failed to publish sale event",
			zap.String("sale_id", sale.ID.String()),
			zap.Error(err))
	}

	return sale, nil
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	actor, industryID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	sale, err := s.repo.Sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}

	if sale.SellerID != actor {
		b, err := s.repo.Batches.GetByID(ctx, sale.BatchID)
		if err != nil {
			return nil, err
		}
		if b == nil || !canManageBatch(role, industryID, b) {
			return nil, ErrForbidden
		}
	}
	return sale, nil
}

func (s *saleService) ListMySales(ctx context.Context, limit, offset int) ([]models.Sale, int64, error) {
	actor, _, _, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.Sales.ListBySeller(ctx, actor, limit, offset)
}
