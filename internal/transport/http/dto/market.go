package dto

import (
	"time"

	"stonemarket/internal/models"
	"stonemarket/internal/pricing"
	"stonemarket/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateBatchRequest struct {
	// IndustryID is honored for admins; everyone else creates into their
	// own tenant.
	IndustryID  *uuid.UUID      `json:"industry_id"`
	ProductRef  string          `json:"product_ref" binding:"required"`
	HeightCM    decimal.Decimal `json:"height_cm" binding:"required"`
	WidthCM     decimal.Decimal `json:"width_cm" binding:"required"`
	ThicknessCM decimal.Decimal `json:"thickness_cm" binding:"required"`
	TotalSlabs  int32           `json:"total_slabs" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	PriceUnit   string          `json:"price_unit" binding:"required,oneof=M2 FT2"`
}

type UpdateBatchRequest struct {
	ProductRef *string          `json:"product_ref"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	PriceUnit  *string          `json:"price_unit" binding:"omitempty,oneof=M2 FT2"`
	IsActive   *bool            `json:"is_active"`
}

type MoveSlabsRequest struct {
	Quantity int32 `json:"quantity" binding:"required,gt=0"`
}

type BatchResponse struct {
	ID         uuid.UUID `json:"id"`
	IndustryID uuid.UUID `json:"industry_id"`
	ProductRef string    `json:"product_ref"`

	HeightCM    decimal.Decimal `json:"height_cm"`
	WidthCM     decimal.Decimal `json:"width_cm"`
	ThicknessCM decimal.Decimal `json:"thickness_cm"`

	TotalSlabs     int32 `json:"total_slabs"`
	AvailableSlabs int32 `json:"available_slabs"`
	ReservedSlabs  int32 `json:"reserved_slabs"`
	SoldSlabs      int32 `json:"sold_slabs"`
	InactiveSlabs  int32 `json:"inactive_slabs"`

	UnitPrice decimal.Decimal `json:"unit_price"`
	PriceUnit string          `json:"price_unit"`
	// UnitPriceFT2 is the quoted price converted to the other unit for
	// display; the stored unit stays authoritative.
	UnitPriceConverted decimal.Decimal `json:"unit_price_converted"`
	ConvertedUnit      string          `json:"converted_unit"`

	Status      string          `json:"status"`
	TotalAreaM2 decimal.Decimal `json:"total_area_m2"`
	IsActive    bool            `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToBatchResponse(b *models.Batch, status models.BatchStatus, totalAreaM2 decimal.Decimal) BatchResponse {
	other := models.PriceUnitFT2
	if b.PriceUnit == models.PriceUnitFT2 {
		other = models.PriceUnitM2
	}
	converted := pricing.ConvertUnitPrice(b.UnitPrice, b.PriceUnit, other)
	return BatchResponse{
		ID:                 b.ID,
		IndustryID:         b.IndustryID,
		ProductRef:         b.ProductRef,
		HeightCM:           b.HeightCM,
		WidthCM:            b.WidthCM,
		ThicknessCM:        b.ThicknessCM,
		TotalSlabs:         b.TotalSlabs,
		AvailableSlabs:     b.AvailableSlabs,
		ReservedSlabs:      b.ReservedSlabs,
		SoldSlabs:          b.SoldSlabs,
		InactiveSlabs:      b.InactiveSlabs,
		UnitPrice:          b.UnitPrice,
		PriceUnit:          string(b.PriceUnit),
		UnitPriceConverted: converted.Round(4),
		ConvertedUnit:      string(other),
		Status:             string(status),
		TotalAreaM2:        totalAreaM2.Round(4),
		IsActive:           b.IsActive,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func ToBatchView(v *service.BatchView) BatchResponse {
	return ToBatchResponse(&v.Batch, v.SummaryStatus, v.TotalAreaM2)
}

type BatchListResponse struct {
	Items []BatchResponse `json:"items"`
	Total int64           `json:"total"`
}

type CreateReservationRequest struct {
	BatchID         uuid.UUID  `json:"batch_id" binding:"required"`
	Quantity        int32      `json:"quantity" binding:"required,gt=0"`
	CustomerName    string     `json:"customer_name"`
	CustomerContact string     `json:"customer_contact"`
	Notes           string     `json:"notes"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

type RejectReservationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ReservationResponse struct {
	ID          uuid.UUID `json:"id"`
	BatchID     uuid.UUID `json:"batch_id"`
	RequesterID uuid.UUID `json:"requester_id"`

	CustomerName    string `json:"customer_name,omitempty"`
	CustomerContact string `json:"customer_contact,omitempty"`

	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	PriceUnit string          `json:"price_unit"`
	Status    string          `json:"status"`
	ViaGrant  bool            `json:"via_grant"`

	Notes        string  `json:"notes,omitempty"`
	RejectReason *string `json:"reject_reason,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToReservationResponse(r *models.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:              r.ID,
		BatchID:         r.BatchID,
		RequesterID:     r.RequesterID,
		CustomerName:    r.CustomerName,
		CustomerContact: r.CustomerContact,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		PriceUnit:       string(r.PriceUnit),
		Status:          string(r.Status),
		ViaGrant:        r.ViaGrant,
		Notes:           r.Notes,
		RejectReason:    r.RejectReason,
		ExpiresAt:       r.ExpiresAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type ReservationListResponse struct {
	Items []ReservationResponse `json:"items"`
	Total int64                 `json:"total"`
}

type GrantRequest struct {
	BatchID             uuid.UUID        `json:"batch_id" binding:"required"`
	GranteeID           uuid.UUID        `json:"grantee_id" binding:"required"`
	NegotiatedPrice     *decimal.Decimal `json:"negotiated_price"`
	NegotiatedPriceUnit *string          `json:"negotiated_price_unit" binding:"omitempty,oneof=M2 FT2"`
}

type GrantCatalogRequest struct {
	GranteeID uuid.UUID `json:"grantee_id" binding:"required"`
}

type GrantResponse struct {
	ID        uuid.UUID `json:"id"`
	BatchID   uuid.UUID `json:"batch_id"`
	GranteeID uuid.UUID `json:"grantee_id"`

	NegotiatedPrice     *decimal.Decimal `json:"negotiated_price,omitempty"`
	NegotiatedPriceUnit *string          `json:"negotiated_price_unit,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func ToGrantResponse(g *models.SharingGrant) GrantResponse {
	var unit *string
	if g.NegotiatedPriceUnit != nil {
		s := string(*g.NegotiatedPriceUnit)
		unit = &s
	}
	return GrantResponse{
		ID:                  g.ID,
		BatchID:             g.BatchID,
		GranteeID:           g.GranteeID,
		NegotiatedPrice:     g.NegotiatedPrice,
		NegotiatedPriceUnit: unit,
		CreatedAt:           g.CreatedAt,
	}
}

type ConfirmSaleRequest struct {
	ReservationID  uuid.UUID        `json:"reservation_id" binding:"required"`
	FinalQuantity  int32            `json:"final_quantity" binding:"required,gt=0"`
	FinalUnitPrice *decimal.Decimal `json:"final_unit_price"`
	InvoiceRef     *string          `json:"invoice_ref"`
}

type SaleResponse struct {
	ID            uuid.UUID `json:"id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	BatchID       uuid.UUID `json:"batch_id"`
	SellerID      uuid.UUID `json:"seller_id"`

	CustomerName    string `json:"customer_name,omitempty"`
	CustomerContact string `json:"customer_contact,omitempty"`

	Quantity    int32           `json:"quantity"`
	TotalAreaM2 decimal.Decimal `json:"total_area_m2"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PriceUnit   string          `json:"price_unit"`

	TotalPrice decimal.Decimal `json:"total_price"`
	Commission decimal.Decimal `json:"commission"`
	NetAmount  decimal.Decimal `json:"net_amount"`

	InvoiceRef *string   `json:"invoice_ref,omitempty"`
	SoldAt     time.Time `json:"sold_at"`
}

func ToSaleResponse(s *models.Sale) SaleResponse {
	return SaleResponse{
		ID:              s.ID,
		ReservationID:   s.ReservationID,
		BatchID:         s.BatchID,
		SellerID:        s.SellerID,
		CustomerName:    s.CustomerName,
		CustomerContact: s.CustomerContact,
		Quantity:        s.Quantity,
		TotalAreaM2:     s.TotalAreaM2.Round(4),
		UnitPrice:       s.UnitPrice,
		PriceUnit:       string(s.PriceUnit),
		TotalPrice:      s.TotalPrice.Round(2),
		Commission:      s.Commission.Round(2),
		NetAmount:       s.NetAmount.Round(2),
		InvoiceRef:      s.InvoiceRef,
		SoldAt:          s.SoldAt,
	}
}

type SaleListResponse struct {
	Items []SaleResponse `json:"items"`
	Total int64          `json:"total"`
}
