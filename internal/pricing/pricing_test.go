package pricing

import (
	"testing"

	"stonemarket/internal/models"

	"github.com/shopspring/decimal"
)

func TestConvertUnitPrice_Identity(t *testing.T) {
	p := decimal.NewFromInt(500)

	got := ConvertUnitPrice(p, models.PriceUnitM2, models.PriceUnitM2)
	if !got.Equal(p) {
		t.Fatalf("expected identity, got %s", got)
	}

	got = ConvertUnitPrice(p, models.PriceUnitFT2, models.PriceUnitFT2)
	if !got.Equal(p) {
		t.Fatalf("expected identity, got %s", got)
	}
}

func TestConvertUnitPrice_Direction(t *testing.T) {
	perM2 := decimal.NewFromInt(1076)

	perFT2 := ConvertUnitPrice(perM2, models.PriceUnitM2, models.PriceUnitFT2)
	if !perFT2.LessThan(perM2) {
		t.Fatalf("price per ft2 must be smaller than price per m2, got %s", perFT2)
	}

	back := ConvertUnitPrice(perFT2, models.PriceUnitFT2, models.PriceUnitM2)
	if back.Sub(perM2).Abs().GreaterThan(decimal.NewFromFloat(0.0001)) {
		t.Fatalf("round-trip mismatch: %s != %s", back, perM2)
	}
}

func TestSlabAreaM2(t *testing.T) {
	// 180cm x 320cm slab = 5.76 m²
	area := SlabAreaM2(decimal.NewFromInt(180), decimal.NewFromInt(320))
	if !area.Equal(decimal.NewFromFloat(5.76)) {
		t.Fatalf("expected 5.76, got %s", area)
	}
}

func TestTotalPrice(t *testing.T) {
	areaM2 := decimal.NewFromInt(10)

	// per m²: direct
	total := TotalPrice(areaM2, decimal.NewFromInt(500), models.PriceUnitM2)
	if !total.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected 5000, got %s", total)
	}

	// per ft²: area converted first
	total = TotalPrice(areaM2, decimal.NewFromInt(50), models.PriceUnitFT2)
	want := decimal.NewFromFloat(10).Mul(SquareFeetPerM2).Mul(decimal.NewFromInt(50))
	if !total.Equal(want) {
		t.Fatalf("expected %s, got %s", want, total)
	}
}

func TestResolveApplicablePrice(t *testing.T) {
	b := &models.Batch{
		UnitPrice: decimal.NewFromInt(500),
		PriceUnit: models.PriceUnitM2,
	}

	// no grant: list price
	price, unit := ResolveApplicablePrice(b, nil)
	if !price.Equal(b.UnitPrice) || unit != models.PriceUnitM2 {
		t.Fatalf("expected list price, got %s %s", price, unit)
	}

	// grant without negotiated price: still list price
	price, unit = ResolveApplicablePrice(b, &models.SharingGrant{})
	if !price.Equal(b.UnitPrice) || unit != models.PriceUnitM2 {
		t.Fatalf("expected list price for plain grant, got %s %s", price, unit)
	}

	// negotiated price overrides, unit from the grant
	negotiated := decimal.NewFromInt(55)
	ft2 := models.PriceUnitFT2
	price, unit = ResolveApplicablePrice(b, &models.SharingGrant{
		NegotiatedPrice:     &negotiated,
		NegotiatedPriceUnit: &ft2,
	})
	if !price.Equal(negotiated) || unit != models.PriceUnitFT2 {
		t.Fatalf("expected negotiated price, got %s %s", price, unit)
	}

	// negotiated price without unit falls back to the batch unit
	price, unit = ResolveApplicablePrice(b, &models.SharingGrant{NegotiatedPrice: &negotiated})
	if !price.Equal(negotiated) || unit != models.PriceUnitM2 {
		t.Fatalf("expected negotiated price with batch unit, got %s %s", price, unit)
	}
}
