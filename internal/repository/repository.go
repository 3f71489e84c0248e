package repository

import "gorm.io/gorm"

type Repository struct {
	DB           *gorm.DB
	Batches      BatchRepo
	Reservations ReservationRepo
	Grants       GrantRepo
	Sales        SaleRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:           db,
		Batches:      NewBatchRepo(db),
		Reservations: NewReservationRepo(db),
		Grants:       NewGrantRepo(db),
		Sales:        NewSaleRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// WithTx runs fn with every repo bound to one transaction.
func (r *Repository) WithTx(fn func(tx *Repository) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
