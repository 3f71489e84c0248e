package service

import (
	"context"
	"time"

	"stonemarket/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BatchInput struct {
	IndustryID  uuid.UUID
	ProductRef  string
	HeightCM    decimal.Decimal
	WidthCM     decimal.Decimal
	ThicknessCM decimal.Decimal
	TotalSlabs  int32
	UnitPrice   decimal.Decimal
	PriceUnit   models.PriceUnit
}

type BatchPatch struct {
	ProductRef *string
	UnitPrice  *decimal.Decimal
	PriceUnit  *models.PriceUnit
	IsActive   *bool
}

type BatchListFilter struct {
	IndustryID *uuid.UUID
	Query      string
	OnlyActive *bool
	Limit      int
	Offset     int
}

// BatchView is a batch with its derived summary status and total area.
type BatchView struct {
	models.Batch
	SummaryStatus models.BatchStatus
	TotalAreaM2   decimal.Decimal
}

type ReservationInput struct {
	BatchID         uuid.UUID
	Quantity        int32
	CustomerName    string
	CustomerContact string
	Notes           string
	// ExpiresAt nil means the configured default applies.
	ExpiresAt *time.Time
}

type GrantInput struct {
	BatchID             uuid.UUID
	GranteeID           uuid.UUID
	NegotiatedPrice     *decimal.Decimal
	NegotiatedPriceUnit *models.PriceUnit
}

type ConfirmSaleInput struct {
	ReservationID uuid.UUID
	FinalQuantity int32
	// FinalUnitPrice nil confirms at the reserved price.
	FinalUnitPrice *decimal.Decimal
	InvoiceRef     *string
}

type BatchService interface {
	CreateBatch(ctx context.Context, in BatchInput) (*models.Batch, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchView, error)
	ListBatches(ctx context.Context, f BatchListFilter) ([]BatchView, int64, error)
	UpdateBatch(ctx context.Context, batchID uuid.UUID, patch BatchPatch) (*models.Batch, error)
	DeleteBatch(ctx context.Context, batchID uuid.UUID) (bool, error)

	// Administrative ledger movements, not reachable from a reservation flow.
	DeactivateSlabs(ctx context.Context, batchID uuid.UUID, qty int32) (*models.Batch, error)
	ReactivateSlabs(ctx context.Context, batchID uuid.UUID, qty int32) (*models.Batch, error)
}

type SharingService interface {
	GrantBatch(ctx context.Context, in GrantInput) (*models.SharingGrant, error)
	// GrantCatalog shares every active batch of the owner's catalog.
	GrantCatalog(ctx context.Context, granteeID uuid.UUID) ([]models.SharingGrant, error)
	RevokeGrant(ctx context.Context, batchID, granteeID uuid.UUID) (bool, error)
	ListGrantsForBatch(ctx context.Context, batchID uuid.UUID) ([]models.SharingGrant, error)
	ListMyGrants(ctx context.Context) ([]models.SharingGrant, error)
}

type ReservationService interface {
	CreateReservation(ctx context.Context, in ReservationInput) (*models.Reservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	ListMyReservations(ctx context.Context, limit, offset int) ([]models.Reservation, int64, error)

	Approve(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Reservation, error)

	// Expire is system-triggered and idempotent: expiring a terminal
	// reservation is a no-op.
	Expire(ctx context.Context, id uuid.UUID) error
	// ExpireDue runs one sweep cycle and returns how many reservations
	// were expired.
	ExpireDue(ctx context.Context) (int, error)
}

type SaleService interface {
	ConfirmSale(ctx context.Context, in ConfirmSaleInput) (*models.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	ListMySales(ctx context.Context, limit, offset int) ([]models.Sale, int64, error)
}
