package repository

import (
	"context"
	"time"

	"carthago-travel-backend/internal/domain"
)

type VehicleRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	List(ctx context.Context) ([]domain.Vehicle, error)
	GetMatriculation(ctx context.Context, id int32) (*domain.Matriculation, error)
	SetMatriculationStatus(ctx context.Context, id int32, status domain.MatriculationStatus) error
}

type RenterRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Renter, error)
	GetByLicense(ctx context.Context, licenseNumber string) (*domain.Renter, error)
}

type ReservationRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Reservation, error)
	// GetForConfirmation looks up a reservation matching payment reference,
	// order id and reservation id all at once, as required by the gateway
	// redirect contract.
	GetForConfirmation(ctx context.Context, paymentRef, orderID string, id int32) (*domain.Reservation, error)
	// MarkPaid flips a PENDING reservation to PAID and records the amount.
	// The write is conditional on the current status so a duplicate callback
	// can never double-credit.
	MarkPaid(ctx context.Context, id int32, amountMillimes int64) error

	CreateProlongation(ctx context.Context, req *domain.ProlongationRequest) error
	GetProlongation(ctx context.Context, id int32) (*domain.ProlongationRequest, error)
}

// PaymentInitFunc initiates the external payment for a freshly inserted
// reservation and returns the gateway payment reference. It runs inside the
// booking transaction scope: returning an error rolls back the reservation,
// its hold, and any renter created in the same request.
type PaymentInitFunc func(res *domain.Reservation) (paymentRef string, err error)

// BookingParams carries everything the booking transaction needs. Exactly
// one of RenterID / NewRenter is set: either an existing renter is
// referenced, or a new one is created inside the transaction.
type BookingParams struct {
	RenterID          int32
	NewRenter         *domain.Renter
	VehicleID         int32
	MatriculationID   int32
	PickupDate        time.Time
	DropoffDate       time.Time
	TotalPrice        float64
	PaymentPercentage int32
	Currency          string
	OrderID           string
}

type BookingRepository interface {
	// Book atomically checks availability, persists the PENDING reservation
	// with its hold, and initiates payment. Overlap and maintenance failures
	// surface as domain.ErrConflict.
	Book(ctx context.Context, params BookingParams, initPayment PaymentInitFunc) (*domain.Reservation, error)
	// ExtendReservation applies an approved prolongation: availability check
	// on the extension range, new dropoff date, stretched hold and request
	// status update in one transaction.
	ExtendReservation(ctx context.Context, prolongationID int32) (*domain.Reservation, error)
}
