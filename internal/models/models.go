package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceUnit is the area unit a per-unit price is quoted in.
type PriceUnit string

const (
	PriceUnitM2  PriceUnit = "M2"
	PriceUnitFT2 PriceUnit = "FT2"
)

func (u PriceUnit) Valid() bool {
	return u == PriceUnitM2 || u == PriceUnitFT2
}

// BatchStatus is a summary derived from the slab counters; only manual
// deactivation is stored state (IsActive).
type BatchStatus string

const (
	BatchAvailable BatchStatus = "AVAILABLE"
	BatchReserved  BatchStatus = "RESERVED"
	BatchSold      BatchStatus = "SOLD"
	BatchInactive  BatchStatus = "INACTIVE"
)

// Batch is a lot of identically-dimensioned slabs owned by one industry.
// Invariant: TotalSlabs == AvailableSlabs + ReservedSlabs + SoldSlabs + InactiveSlabs.
type Batch struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	IndustryID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductRef string    `gorm:"type:text;not null"`

	// Dimensions in centimeters.
	HeightCM    decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	WidthCM     decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	ThicknessCM decimal.Decimal `gorm:"type:numeric(10,2);not null"`

	TotalSlabs     int32 `gorm:"not null"`
	AvailableSlabs int32 `gorm:"not null;default:0"`
	ReservedSlabs  int32 `gorm:"not null;default:0"`
	SoldSlabs      int32 `gorm:"not null;default:0"`
	InactiveSlabs  int32 `gorm:"not null;default:0"`

	UnitPrice decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	PriceUnit PriceUnit       `gorm:"type:text;not null;default:'M2'"`

	IsActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time      `gorm:"not null;default:now();index"`
	UpdatedAt time.Time      `gorm:"not null;default:now()"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Batch) TableName() string { return "batches" }

// Status derives the summary status from the counters. A manually
// deactivated batch reports INACTIVE regardless of counters.
func (b *Batch) Status() BatchStatus {
	switch {
	case !b.IsActive:
		return BatchInactive
	case b.AvailableSlabs > 0:
		return BatchAvailable
	case b.ReservedSlabs > 0:
		return BatchReserved
	case b.SoldSlabs == b.TotalSlabs && b.TotalSlabs > 0:
		return BatchSold
	default:
		return BatchInactive
	}
}

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationApproved  ReservationStatus = "APPROVED"
	ReservationRejected  ReservationStatus = "REJECTED"
	ReservationExpired   ReservationStatus = "EXPIRED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationConverted ReservationStatus = "CONVERTED"
)

// Terminal reports whether no further transition is possible.
// APPROVED is not terminal: it still converts to a sale.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationRejected, ReservationExpired, ReservationCancelled, ReservationConverted:
		return true
	}
	return false
}

// Reservation is a time-bounded claim against a batch's available pool.
// Rows are never deleted; terminal status is the audit trail.
type Reservation struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID     uuid.UUID `gorm:"type:uuid;not null;index"`
	RequesterID uuid.UUID `gorm:"type:uuid;not null;index"`

	CustomerName    string `gorm:"type:text"`
	CustomerContact string `gorm:"type:text"`

	Quantity  int32             `gorm:"not null"`
	UnitPrice decimal.Decimal   `gorm:"type:numeric(14,4);not null"`
	PriceUnit PriceUnit         `gorm:"type:text;not null"`
	Status    ReservationStatus `gorm:"type:text;not null;default:'ACTIVE';index"`

	// ViaGrant is fixed at creation so the commission split at sale time
	// does not depend on a grant that may have been revoked since.
	ViaGrant bool `gorm:"not null;default:false"`

	Notes        string  `gorm:"type:text"`
	RejectReason *string `gorm:"type:text"`

	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Reservation) TableName() string { return "reservations" }

// SharingGrant lets a non-owning seller or broker see and reserve from a
// batch, optionally at a negotiated price. At most one grant per
// (batch, grantee) pair; revocation deletes the row.
type SharingGrant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_sharing_grants_batch_grantee"`
	GranteeID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_sharing_grants_batch_grantee"`

	NegotiatedPrice     *decimal.Decimal `gorm:"type:numeric(14,4)"`
	NegotiatedPriceUnit *PriceUnit       `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (SharingGrant) TableName() string { return "sharing_grants" }

// Sale is the immutable record emitted once per converted reservation.
// Commission and net are computed at confirmation time and never recomputed.
type Sale struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReservationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	BatchID       uuid.UUID `gorm:"type:uuid;not null;index"`
	SellerID      uuid.UUID `gorm:"type:uuid;not null;index"`

	CustomerName    string `gorm:"type:text"`
	CustomerContact string `gorm:"type:text"`

	Quantity    int32           `gorm:"not null"`
	TotalAreaM2 decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	PriceUnit   PriceUnit       `gorm:"type:text;not null"`

	TotalPrice decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	Commission decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	NetAmount  decimal.Decimal `gorm:"type:numeric(14,4);not null"`

	InvoiceRef *string   `gorm:"type:text"`
	SoldAt     time.Time `gorm:"not null;default:now();index"`
}

func (Sale) TableName() string { return "sales" }
