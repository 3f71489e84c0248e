package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lifecycle events are plain records handed to the bus fire-and-forget;
// delivery failures are logged by the publisher, never surfaced to the
// caller.

const (
	EventReservationCreated   = "reservation.created"
	EventReservationApproved  = "reservation.approved"
	EventReservationRejected  = "reservation.rejected"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationExpired   = "reservation.expired"
	EventSaleConfirmed        = "sale.confirmed"
)

type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID uuid.UUID `json:"reservation_id"`
	BatchID       uuid.UUID `json:"batch_id"`
	RequesterID   uuid.UUID `json:"requester_id"`
	Quantity      int32     `json:"quantity"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type SaleConfirmedEvent struct {
	Type       string          `json:"type"`
	SaleID     uuid.UUID       `json:"sale_id"`
	BatchID    uuid.UUID       `json:"batch_id"`
	SellerID   uuid.UUID       `json:"seller_id"`
	Quantity   int32           `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Commission decimal.Decimal `json:"commission"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type EventBus interface {
	PublishReservationEvent(ctx context.Context, e ReservationEvent) error
	PublishSaleConfirmed(ctx context.Context, e SaleConfirmedEvent) error
}

// NopBus discards events; used in tests and when no broker is configured.
type NopBus struct{}

func (NopBus) PublishReservationEvent(context.Context, ReservationEvent) error { return nil }
func (NopBus) PublishSaleConfirmed(context.Context, SaleConfirmedEvent) error  { return nil }
