package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stonemarket/internal/migrate"
	"stonemarket/internal/models"
	"stonemarket/internal/repository"
	"stonemarket/internal/service"
	"stonemarket/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	db           *gorm.DB
	repos        *repository.Repository
	batches      service.BatchService
	reservations service.ReservationService
	sharing      service.SharingService
	sales        service.SaleService

	industryID uuid.UUID
	ownerID    uuid.UUID
	brokerID   uuid.UUID
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateMarketDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repos := repository.New(db)
	return &env{
		db:           db,
		repos:        repos,
		batches:      service.NewBatchService(repos, nil),
		reservations: service.NewReservationService(repos, service.NopBus{}, zap.NewNop(), 7*24*time.Hour),
		sharing:      service.NewSharingService(repos),
		sales:        service.NewSaleService(repos, service.NopBus{}, zap.NewNop()),
		industryID:   uuid.New(),
		ownerID:      uuid.New(),
		brokerID:     uuid.New(),
	}
}

func authCtx(actor, industry uuid.UUID, role service.Role) context.Context {
	ctx := service.WithActorID(context.Background(), actor)
	ctx = service.WithIndustryID(ctx, industry)
	return service.WithRole(ctx, role)
}

func (e *env) ownerCtx() context.Context {
	return authCtx(e.ownerID, e.industryID, service.RoleIndustry)
}

func (e *env) brokerCtx() context.Context {
	return authCtx(e.brokerID, uuid.Nil, service.RoleBroker)
}

func (e *env) createBatch(t *testing.T, total int32) *models.Batch {
	t.Helper()
	b, err := e.batches.CreateBatch(e.ownerCtx(), service.BatchInput{
		IndustryID:  e.industryID,
		ProductRef:  "Verde Alpi",
		HeightCM:    decimal.NewFromInt(180),
		WidthCM:     decimal.NewFromInt(320),
		ThicknessCM: decimal.NewFromInt(3),
		TotalSlabs:  total,
		UnitPrice:   decimal.NewFromInt(120),
		PriceUnit:   models.PriceUnitM2,
	})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	return b
}

func (e *env) batchCounters(t *testing.T, id uuid.UUID) *models.Batch {
	t.Helper()
	b, err := e.repos.Batches.GetByID(context.Background(), id)
	if err != nil || b == nil {
		t.Fatalf("GetByID: %+v err=%v", b, err)
	}
	return b
}

func TestReservationRejectRestoresAvailability(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	res, err := e.reservations.CreateReservation(e.ownerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 5,
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	after := e.batchCounters(t, b.ID)
	if after.AvailableSlabs != 5 || after.ReservedSlabs != 5 {
		t.Fatalf("counters after reserve: %+v", after)
	}

	rejected, err := e.reservations.Reject(e.ownerCtx(), res.ID, "customer withdrew")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != models.ReservationRejected || rejected.RejectReason == nil || *rejected.RejectReason != "customer withdrew" {
		t.Fatalf("rejected state: %+v", rejected)
	}

	restored := e.batchCounters(t, b.ID)
	if restored.AvailableSlabs != 10 || restored.ReservedSlabs != 0 {
		t.Fatalf("counters after reject: %+v", restored)
	}

	// rejecting again is refused: the reservation is terminal
	if _, err := e.reservations.Reject(e.ownerCtx(), res.ID, "again"); !errors.Is(err, service.ErrReservationNotActive) {
		t.Fatalf("second Reject: want ErrReservationNotActive, got %v", err)
	}
}

func TestReservationInsufficientStock(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	_, err := e.reservations.CreateReservation(e.ownerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 11,
	})
	var ise *service.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if ise.Requested != 11 || ise.Available != 10 {
		t.Fatalf("error detail: %+v", ise)
	}

	// the failed attempt must not leak reserved slabs
	after := e.batchCounters(t, b.ID)
	if after.AvailableSlabs != 10 || after.ReservedSlabs != 0 {
		t.Fatalf("counters after failed reserve: %+v", after)
	}
}

func TestReservationExpiryValidation(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	past := time.Now().Add(-time.Minute)
	_, err := e.reservations.CreateReservation(e.ownerCtx(), service.ReservationInput{
		BatchID:   b.ID,
		Quantity:  1,
		ExpiresAt: &past,
	})
	if !errors.Is(err, service.ErrExpiryInPast) {
		t.Fatalf("want ErrExpiryInPast, got %v", err)
	}

	// default expiry applies when none is given
	res, err := e.reservations.CreateReservation(e.ownerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if res.ExpiresAt.Before(time.Now().Add(6 * 24 * time.Hour)) {
		t.Fatalf("default expiry too early: %v", res.ExpiresAt)
	}
}

func TestBrokerNeedsGrantToReserve(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	_, err := e.reservations.CreateReservation(e.brokerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 1,
	})
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("want ErrForbidden without grant, got %v", err)
	}

	if _, err := e.sharing.GrantBatch(e.ownerCtx(), service.GrantInput{
		BatchID:   b.ID,
		GranteeID: e.brokerID,
	}); err != nil {
		t.Fatalf("GrantBatch: %v", err)
	}

	res, err := e.reservations.CreateReservation(e.brokerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("CreateReservation via grant: %v", err)
	}
	if !res.ViaGrant {
		t.Fatalf("reservation should be marked via grant: %+v", res)
	}
	// without a negotiated price the list price applies
	if !res.UnitPrice.Equal(decimal.NewFromInt(120)) || res.PriceUnit != models.PriceUnitM2 {
		t.Fatalf("price snapshot: %+v", res)
	}
}

func TestSaleConfirmFullAndDoubleConfirm(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	res, err := e.reservations.CreateReservation(e.ownerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 5,
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := e.reservations.Approve(e.ownerCtx(), res.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	sale, err := e.sales.ConfirmSale(e.ownerCtx(), service.ConfirmSaleInput{
		ReservationID: res.ID,
		FinalQuantity: 5,
	})
	if err != nil {
		t.Fatalf("ConfirmSale: %v", err)
	}

	// single slab face is 1.80m x 3.20m = 5.76 m²; 5 slabs at 120/m²
	wantArea := decimal.NewFromFloat(28.8)
	wantTotal := decimal.NewFromFloat(3456)
	if !sale.TotalAreaM2.Equal(wantArea) || !sale.TotalPrice.Equal(wantTotal) {
		t.Fatalf("sale math: area=%s total=%s", sale.TotalAreaM2, sale.TotalPrice)
	}
	if !sale.Commission.IsZero() {
		t.Fatalf("owner sale should carry no commission: %s", sale.Commission)
	}

	after := e.batchCounters(t, b.ID)
	if after.SoldSlabs != 5 || after.ReservedSlabs != 0 || after.AvailableSlabs != 5 {
		t.Fatalf("counters after sale: %+v", after)
	}

	if _, err := e.sales.ConfirmSale(e.ownerCtx(), service.ConfirmSaleInput{
		ReservationID: res.ID,
		FinalQuantity: 5,
	}); !errors.Is(err, service.ErrAlreadyConverted) {
		t.Fatalf("second confirm: want ErrAlreadyConverted, got %v", err)
	}
}

func TestSalePartialConfirmReleasesRemainder(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	res, err := e.reservations.CreateReservation(e.ownerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 5,
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if _, err := e.reservations.Approve(e.ownerCtx(), res.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	sale, err := e.sales.ConfirmSale(e.ownerCtx(), service.ConfirmSaleInput{
		ReservationID: res.ID,
		FinalQuantity: 3,
	})
	if err != nil {
		t.Fatalf("ConfirmSale: %v", err)
	}
	if sale.Quantity != 3 {
		t.Fatalf("sale quantity: %d", sale.Quantity)
	}

	after := e.batchCounters(t, b.ID)
	if after.SoldSlabs != 3 || after.ReservedSlabs != 0 || after.AvailableSlabs != 7 {
		t.Fatalf("counters after partial sale: %+v", after)
	}

	// confirming more than reserved is refused up front
	res2, _ := e.reservations.CreateReservation(e.ownerCtx(), service.ReservationInput{BatchID: b.ID, Quantity: 2})
	if _, err := e.reservations.Approve(e.ownerCtx(), res2.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := e.sales.ConfirmSale(e.ownerCtx(), service.ConfirmSaleInput{
		ReservationID: res2.ID,
		FinalQuantity: 3,
	}); !errors.Is(err, service.ErrQuantityExceedsReservation) {
		t.Fatalf("want ErrQuantityExceedsReservation, got %v", err)
	}
}

func TestSaleCommissionOnGrantedReservation(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	negotiated := decimal.NewFromInt(150)
	if _, err := e.sharing.GrantBatch(e.ownerCtx(), service.GrantInput{
		BatchID:         b.ID,
		GranteeID:       e.brokerID,
		NegotiatedPrice: &negotiated,
	}); err != nil {
		t.Fatalf("GrantBatch: %v", err)
	}

	res, err := e.reservations.CreateReservation(e.brokerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 2,
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if !res.UnitPrice.Equal(negotiated) {
		t.Fatalf("negotiated price not applied: %s", res.UnitPrice)
	}

	if _, err := e.reservations.Approve(e.ownerCtx(), res.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	sale, err := e.sales.ConfirmSale(e.ownerCtx(), service.ConfirmSaleInput{
		ReservationID: res.ID,
		FinalQuantity: 2,
	})
	if err != nil {
		t.Fatalf("ConfirmSale: %v", err)
	}

	// 2 slabs x 5.76 m² = 11.52 m²; 150/m² vs list 120/m²
	wantTotal := decimal.NewFromFloat(1728)
	wantCommission := decimal.NewFromFloat(345.6)
	wantNet := decimal.NewFromFloat(1382.4)
	if !sale.TotalPrice.Equal(wantTotal) {
		t.Fatalf("total: %s", sale.TotalPrice)
	}
	if !sale.Commission.Equal(wantCommission) {
		t.Fatalf("commission: %s", sale.Commission)
	}
	if !sale.NetAmount.Equal(wantNet) {
		t.Fatalf("net: %s", sale.NetAmount)
	}
	if sale.SellerID != e.brokerID {
		t.Fatalf("seller: %s", sale.SellerID)
	}
}

func TestExpireSweepIsIdempotent(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	res, err := e.reservations.CreateReservation(e.ownerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 4,
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	// not due yet: expiring is a no-op
	if err := e.reservations.Expire(context.Background(), res.ID); err != nil {
		t.Fatalf("Expire before deadline: %v", err)
	}
	if got, _ := e.repos.Reservations.GetByID(context.Background(), res.ID); got.Status != models.ReservationActive {
		t.Fatalf("premature expiry: %+v", got)
	}

	// push the deadline into the past and sweep
	if err := e.db.Exec(`UPDATE reservations SET expires_at = now() - interval '1 hour' WHERE id = ?`, res.ID).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	expired, err := e.reservations.ExpireDue(context.Background())
	if err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}
	if expired != 1 {
		t.Fatalf("want 1 expired, got %d", expired)
	}

	after := e.batchCounters(t, b.ID)
	if after.AvailableSlabs != 10 || after.ReservedSlabs != 0 {
		t.Fatalf("counters after expiry: %+v", after)
	}

	// second sweep finds nothing and the status stays EXPIRED
	expired, err = e.reservations.ExpireDue(context.Background())
	if err != nil || expired != 0 {
		t.Fatalf("second sweep: expired=%d err=%v", expired, err)
	}
	if err := e.reservations.Expire(context.Background(), res.ID); err != nil {
		t.Fatalf("Expire on terminal reservation: %v", err)
	}
	got, _ := e.repos.Reservations.GetByID(context.Background(), res.ID)
	if got.Status != models.ReservationExpired {
		t.Fatalf("status after sweeps: %+v", got)
	}
}

func TestApprovalAuthority(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	if _, err := e.sharing.GrantBatch(e.ownerCtx(), service.GrantInput{
		BatchID:   b.ID,
		GranteeID: e.brokerID,
	}); err != nil {
		t.Fatalf("GrantBatch: %v", err)
	}
	res, err := e.reservations.CreateReservation(e.brokerCtx(), service.ReservationInput{
		BatchID:  b.ID,
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	// the requesting broker cannot approve their own reservation
	if _, err := e.reservations.Approve(e.brokerCtx(), res.ID); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("broker approve: want ErrForbidden, got %v", err)
	}
	// a seller of the owning industry cannot approve either
	sellerCtx := authCtx(uuid.New(), e.industryID, service.RoleSeller)
	if _, err := e.reservations.Approve(sellerCtx, res.ID); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("seller approve: want ErrForbidden, got %v", err)
	}
	// the owning industry can
	if _, err := e.reservations.Approve(e.ownerCtx(), res.ID); err != nil {
		t.Fatalf("owner approve: %v", err)
	}
	// cancel only works from ACTIVE; the approved reservation refuses
	if _, err := e.reservations.Cancel(e.brokerCtx(), res.ID); !errors.Is(err, service.ErrReservationNotActive) {
		t.Fatalf("cancel after approve: want ErrReservationNotActive, got %v", err)
	}
}

func TestBatchAdministrativeMoves(t *testing.T) {
	e := setup(t)
	b := e.createBatch(t, 10)

	got, err := e.batches.DeactivateSlabs(e.ownerCtx(), b.ID, 4)
	if err != nil {
		t.Fatalf("DeactivateSlabs: %v", err)
	}
	if got.AvailableSlabs != 6 || got.InactiveSlabs != 4 {
		t.Fatalf("after deactivate: %+v", got)
	}

	got, err = e.batches.ReactivateSlabs(e.ownerCtx(), b.ID, 1)
	if err != nil {
		t.Fatalf("ReactivateSlabs: %v", err)
	}
	if got.AvailableSlabs != 7 || got.InactiveSlabs != 3 {
		t.Fatalf("after reactivate: %+v", got)
	}

	// over-reactivating reports the inactive pool, not the available one
	_, err = e.batches.ReactivateSlabs(e.ownerCtx(), b.ID, 5)
	var ise *service.InsufficientStockError
	if !errors.As(err, &ise) || ise.Available != 3 {
		t.Fatalf("over-reactivate: %v", err)
	}
}

func TestGrantCatalogSharesActiveBatches(t *testing.T) {
	e := setup(t)
	b1 := e.createBatch(t, 5)
	b2 := e.createBatch(t, 3)

	// a deactivated batch stays out of the bulk share
	inactive := false
	if _, err := e.batches.UpdateBatch(e.ownerCtx(), b2.ID, service.BatchPatch{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}

	grants, err := e.sharing.GrantCatalog(e.ownerCtx(), e.brokerID)
	if err != nil {
		t.Fatalf("GrantCatalog: %v", err)
	}
	if len(grants) != 1 || grants[0].BatchID != b1.ID {
		t.Fatalf("catalog grants: %+v", grants)
	}

	mine, err := e.sharing.ListMyGrants(e.brokerCtx())
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListMyGrants: len=%d err=%v", len(mine), err)
	}
}
