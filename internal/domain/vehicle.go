package domain

import "time"

type MatriculationStatus string

const (
	MatriculationStatusAvailable   MatriculationStatus = "AVAILABLE"
	MatriculationStatusRented      MatriculationStatus = "RENTED"
	MatriculationStatusMaintenance MatriculationStatus = "MAINTENANCE"
)

type Vehicle struct {
	ID             int32           `json:"id"`
	Brand          string          `json:"brand"`
	Model          string          `json:"model"`
	Category       string          `json:"category"`
	Seats          int32           `json:"seats"`
	Transmission   string          `json:"transmission"`
	PricePerDay    float64         `json:"price_per_day"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description"`
	Matriculations []Matriculation `json:"matriculations,omitempty"`
	CreatedOn      time.Time       `json:"created_on"`
	UpdatedOn      time.Time       `json:"updated_on"`
}

// Matriculation is a single physically distinct licensed unit (by plate
// number) under a vehicle listing. Its effective availability for a date
// range is derived from status plus the stored unavailable periods.
type Matriculation struct {
	ID        int32               `json:"id"`
	VehicleID int32               `json:"vehicle_id"`
	Plate     string              `json:"plate"`
	Status    MatriculationStatus `json:"status"`
	Periods   []UnavailablePeriod `json:"unavailable_periods,omitempty"`
}

// UnavailablePeriod is a hold blocking a matriculation from being
// double-booked. Holds for one matriculation never overlap each other;
// the pre-insertion overlap check inside the booking transaction keeps
// that invariant.
type UnavailablePeriod struct {
	ID              int32     `json:"id"`
	MatriculationID int32     `json:"matriculation_id"`
	ReservationID   int32     `json:"reservation_id"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}
