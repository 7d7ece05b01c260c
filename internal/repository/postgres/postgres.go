package postgres

import (
	"database/sql"

	"carthago-travel-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.VehicleRepository
	repository.RenterRepository
	repository.ReservationRepository
	repository.BookingRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		VehicleRepository:     NewVehicleRepository(db),
		RenterRepository:      NewRenterRepository(db),
		ReservationRepository: NewReservationRepository(db),
		BookingRepository:     NewBookingRepository(db),
	}
}
