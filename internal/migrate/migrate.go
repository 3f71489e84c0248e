package migrate

import (
	"context"

	"stonemarket/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto, pg_trgm
	CreateChecks           bool // CHECK constraints, including ledger conservation
	CreateIndexes          bool // indexes and UNIQUE
	CreateFKsViaSQL        bool // FKs via Exec after AutoMigrate
	CreateUpdatedAtTrigger bool // updated_at triggers
	CreateSearchIndexes    bool // GIN trgm for product_ref search
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
		CreateSearchIndexes:    true,
	}
}

func MigrateMarketDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("starting trading database migration")

	if opt.CreateExtensions {
		log.Info("creating postgres extensions")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("pgcrypto error", zap.Error(err))
			return err
		}
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error; err != nil {
			log.Error("pg_trgm error", zap.Error(err))
			return err
		}
	}

	log.Info("creating tables: batches, reservations, sharing_grants, sales")
	if err := db.AutoMigrate(&models.Batch{}, &models.Reservation{}, &models.SharingGrant{}, &models.Sale{}); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		log.Info("creating updated_at triggers")
		if err := db.Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_batches_updated ON batches;
CREATE TRIGGER trg_batches_updated BEFORE UPDATE ON batches
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_reservations_updated ON reservations;
CREATE TRIGGER trg_reservations_updated BEFORE UPDATE ON reservations
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("triggers error", zap.Error(err))
			return err
		}
	}

	if opt.CreateChecks {
		log.Info("creating CHECK constraints")

		// The ledger conservation invariant lives in the schema too:
		// a desynchronized counter update fails in the database itself.
		if err := db.Exec(`
ALTER TABLE batches
	DROP CONSTRAINT IF EXISTS chk_batches_slab_conservation,
	ADD CONSTRAINT chk_batches_slab_conservation
	CHECK (total_slabs = available_slabs + reserved_slabs + sold_slabs + inactive_slabs);
`).Error; err != nil {
			log.Error("chk slab conservation", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE batches
	DROP CONSTRAINT IF EXISTS chk_batches_counters_non_negative,
	ADD CONSTRAINT chk_batches_counters_non_negative
	CHECK (available_slabs >= 0 AND reserved_slabs >= 0 AND sold_slabs >= 0 AND inactive_slabs >= 0);
`).Error; err != nil {
			log.Error("chk counters non-negative", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE batches
	DROP CONSTRAINT IF EXISTS chk_batches_price_non_negative,
	ADD CONSTRAINT chk_batches_price_non_negative
	CHECK (unit_price >= 0);
`).Error; err != nil {
			log.Error("chk price", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE batches
	DROP CONSTRAINT IF EXISTS chk_batches_price_unit_allowed,
	ADD CONSTRAINT chk_batches_price_unit_allowed
	CHECK (price_unit IN ('M2','FT2'));
`).Error; err != nil {
			log.Error("chk price unit", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE reservations
	DROP CONSTRAINT IF EXISTS chk_reservations_quantity_gt_zero,
	ADD CONSTRAINT chk_reservations_quantity_gt_zero
	CHECK (quantity > 0);
`).Error; err != nil {
			log.Error("chk reservations.qty", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE reservations
	DROP CONSTRAINT IF EXISTS chk_reservations_status_allowed,
	ADD CONSTRAINT chk_reservations_status_allowed
	CHECK (status IN ('ACTIVE','APPROVED','REJECTED','EXPIRED','CANCELLED','CONVERTED'));
`).Error; err != nil {
			log.Error("chk reservations.status", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE sales
	DROP CONSTRAINT IF EXISTS chk_sales_quantity_gt_zero,
	ADD CONSTRAINT chk_sales_quantity_gt_zero
	CHECK (quantity > 0);
`).Error; err != nil {
			log.Error("chk sales.qty", zap.Error(err))
			return err
		}
	}

	if opt.CreateIndexes {
		log.Info("creating indexes and unique constraints")

		// one active grant per (batch, grantee)
		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_sharing_grants_batch_grantee
ON sharing_grants (batch_id, grantee_id);
`).Error; err != nil {
			log.Error("ux sharing grants", zap.Error(err))
			return err
		}

		// exactly one sale per reservation
		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_sales_reservation
ON sales (reservation_id);
`).Error; err != nil {
			log.Error("ux sales reservation", zap.Error(err))
			return err
		}

		// the sweep scans ACTIVE reservations by deadline
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_reservations_active_expires
ON reservations (expires_at) WHERE status = 'ACTIVE';
`).Error; err != nil {
			log.Error("ix reservations active expires", zap.Error(err))
			return err
		}

		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_batches_industry_created
ON batches (industry_id, created_at DESC);
`).Error; err != nil {
			log.Error("ix batches industry_created", zap.Error(err))
			return err
		}
	}

	if opt.CreateSearchIndexes {
		log.Info("creating GIN(trgm) search indexes")
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS gin_batches_product_ref_trgm
ON batches USING gin (product_ref gin_trgm_ops);
`).Error; err != nil {
			log.Error("gin product_ref", zap.Error(err))
			return err
		}
	}

	if opt.CreateFKsViaSQL {
		log.Info("creating foreign keys")

		if err := db.Exec(`
ALTER TABLE reservations
  DROP CONSTRAINT IF EXISTS fk_reservations_batch,
  ADD CONSTRAINT fk_reservations_batch
    FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE RESTRICT;
`).Error; err != nil {
			log.Error("fk reservations.batch_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE sharing_grants
  DROP CONSTRAINT IF EXISTS fk_sharing_grants_batch,
  ADD CONSTRAINT fk_sharing_grants_batch
    FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("fk sharing_grants.batch_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE sales
  DROP CONSTRAINT IF EXISTS fk_sales_reservation,
  ADD CONSTRAINT fk_sales_reservation
    FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE RESTRICT;
`).Error; err != nil {
			log.Error("fk sales.reservation_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE sales
  DROP CONSTRAINT IF EXISTS fk_sales_batch,
  ADD CONSTRAINT fk_sales_batch
    FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE RESTRICT;
`).Error; err != nil {
			log.Error("fk sales.batch_id", zap.Error(err))
			return err
		}
	}

	log.Info("trading database migration completed")
	return nil
}
