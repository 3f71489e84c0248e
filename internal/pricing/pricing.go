// Package pricing holds the pure price and area conversions used across
// the platform. All monetary math runs on decimals; rounding happens only
// at display boundaries, never between operations.
package pricing

import (
	"stonemarket/internal/models"

	"github.com/shopspring/decimal"
)

// SquareFeetPerM2 is the fixed area-conversion constant: 1 m² = 10.76391042 ft².
var SquareFeetPerM2 = decimal.NewFromFloat(10.76391042)

var cm2PerM2 = decimal.NewFromInt(10000)

// ConvertUnitPrice converts a price-per-unit-area between units. A price
// per m² is larger than the same price per ft², so m²→ft² divides by the
// constant and ft²→m² multiplies.
func ConvertUnitPrice(price decimal.Decimal, from, to models.PriceUnit) decimal.Decimal {
	if from == to {
		return price
	}
	if from == models.PriceUnitM2 && to == models.PriceUnitFT2 {
		return price.Div(SquareFeetPerM2)
	}
	return price.Mul(SquareFeetPerM2)
}

// AreaToFT2 converts a canonical m² area to ft².
func AreaToFT2(areaM2 decimal.Decimal) decimal.Decimal {
	return areaM2.Mul(SquareFeetPerM2)
}

// SlabAreaM2 computes the face area of one slab from its dimensions in
// centimeters.
func SlabAreaM2(heightCM, widthCM decimal.Decimal) decimal.Decimal {
	return heightCM.Mul(widthCM).Div(cm2PerM2)
}

// BatchAreaM2 computes the total face area for qty slabs of a batch.
func BatchAreaM2(b *models.Batch, qty int32) decimal.Decimal {
	return SlabAreaM2(b.HeightCM, b.WidthCM).Mul(decimal.NewFromInt32(qty))
}

// TotalPrice computes the price of an area given a unit price. Area is
// always passed canonically in m²; when the price is quoted per ft² the
// area is converted first.
func TotalPrice(totalAreaM2, unitPrice decimal.Decimal, unit models.PriceUnit) decimal.Decimal {
	if unit == models.PriceUnitFT2 {
		return AreaToFT2(totalAreaM2).Mul(unitPrice)
	}
	return totalAreaM2.Mul(unitPrice)
}

// ResolveApplicablePrice returns the unit price and unit that apply to a
// given actor: a negotiated price on the sharing grant overrides the
// batch's list price.
func ResolveApplicablePrice(b *models.Batch, grant *models.SharingGrant) (decimal.Decimal, models.PriceUnit) {
	if grant != nil && grant.NegotiatedPrice != nil {
		unit := b.PriceUnit
		if grant.NegotiatedPriceUnit != nil {
			unit = *grant.NegotiatedPriceUnit
		}
		return *grant.NegotiatedPrice, unit
	}
	return b.UnitPrice, b.PriceUnit
}
