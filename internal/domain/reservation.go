package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusPaid      ReservationStatus = "PAID"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
	ReservationStatusRejected  ReservationStatus = "REJECTED"
)

// Reservation is a car-rental booking. While its status is PENDING, PAID or
// CONFIRMED exactly one unavailable period on its matriculation mirrors the
// [PickupDate, DropoffDate] range; the period is released when the
// reservation reaches a terminal status.
type Reservation struct {
	ID                 int32             `json:"id"`
	RenterID           int32             `json:"renter_id"`
	VehicleID          int32             `json:"vehicle_id"`
	MatriculationID    int32             `json:"matriculation_id"`
	PickupDate         time.Time         `json:"pickup_date"`
	DropoffDate        time.Time         `json:"dropoff_date"`
	TotalPrice         float64           `json:"total_price"`
	PaymentPercentage  int32             `json:"payment_percentage"`
	AmountPaidMillimes int64             `json:"amount_paid_millimes"`
	Currency           string            `json:"currency"`
	OrderID            string            `json:"order_id"`
	PaymentRef         string            `json:"payment_ref"`
	Status             ReservationStatus `json:"status"`
	CreatedOn          time.Time         `json:"created_on"`
	UpdatedOn          time.Time         `json:"updated_on"`
}

type ProlongationStatus string

const (
	ProlongationStatusPending  ProlongationStatus = "PENDING"
	ProlongationStatusApproved ProlongationStatus = "APPROVED"
	ProlongationStatusRejected ProlongationStatus = "REJECTED"
)

// ProlongationRequest asks to extend an active reservation to a later
// dropoff date. It stays PENDING until an admin approves it or the sweep
// rejects it once the requested dropoff date has passed.
type ProlongationRequest struct {
	ID             int32              `json:"id"`
	ReservationID  int32              `json:"reservation_id"`
	NewDropoffDate time.Time          `json:"new_dropoff_date"`
	Status         ProlongationStatus `json:"status"`
	CreatedOn      time.Time          `json:"created_on"`
	UpdatedOn      time.Time          `json:"updated_on"`
}
