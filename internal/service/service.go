package service

import (
	"context"
	"io"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/payment"
)

// CreateReservationRequest is the typed boundary for a storefront booking.
// Renter identity is either an existing internal id, or the full contact
// block plus both document uploads for a first-time renter.
type CreateReservationRequest struct {
	RenterID      int32
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	LicenseNumber string

	IdentityDoc     io.Reader
	IdentityDocName string
	LicenseDoc      io.Reader
	LicenseDocName  string

	VehicleID         int32
	MatriculationID   int32
	PickupDate        string
	DropoffDate       string
	PaymentPercentage int32
	Currency          string
}

// CreateReservationResult carries the persisted reservation and the
// gateway URL the client must be redirected to.
type CreateReservationResult struct {
	Reservation *domain.Reservation `json:"reservation"`
	PayURL      string              `json:"pay_url"`
}

// ConfirmResult is the outcome of a verified payment callback. Warning is
// set when the payment was recorded but the notification email failed.
type ConfirmResult struct {
	Reservation *domain.Reservation `json:"reservation"`
	Warning     string              `json:"warning,omitempty"`
}

type ReservationService interface {
	Create(ctx context.Context, req *CreateReservationRequest) (*CreateReservationResult, error)
	Confirm(ctx context.Context, paymentRef, orderID string, reservationID int32) (*ConfirmResult, error)
	RequestProlongation(ctx context.Context, reservationID int32, newDropoffDate string) (*domain.ProlongationRequest, error)
	ApproveProlongation(ctx context.Context, prolongationID int32) (*domain.Reservation, error)
}

type VehicleService interface {
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
	GetVehicle(ctx context.Context, id int32) (*domain.Vehicle, error)
	GetMatriculationAvailability(ctx context.Context, id int32) (*domain.Matriculation, error)
	SetMatriculationStatus(ctx context.Context, id int32, status domain.MatriculationStatus) error
}

type EmailService interface {
	SendReservationConfirmation(ctx context.Context, email, name string, res *domain.Reservation) error
	SendProlongationRejection(ctx context.Context, email, name string, reservationID int32) error
}

// PaymentGateway is the slice of the gateway client the reservation
// service depends on.
type PaymentGateway interface {
	InitPayment(ctx context.Context, req *payment.InitRequest) (*payment.InitResponse, error)
	GetPayment(ctx context.Context, paymentRef string) (*payment.Details, error)
}
