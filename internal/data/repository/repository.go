package repository

import (
	"cinema-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Seat    SeatRepository
	Catalog CatalogRepository
	Booking BookingRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Seat:    NewSeatRepository(db, log),
		Catalog: NewCatalogRepository(db, log),
		Booking: NewBookingRepository(db, log),
	}
}
