package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/repository"
)

// DefaultBookingTimeout bounds a complete booking transaction, including
// row-lock wait time and the in-transaction payment initiation call.
const DefaultBookingTimeout = 15 * time.Second

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

// Book performs the complete reservation in a single transaction.
//
// Concurrency strategy: pessimistic locking. SELECT ... FOR UPDATE on the
// matriculation row serializes concurrent booking attempts for the same
// unit. Two overlapping requests racing for the same date range:
//
//	T1: BEGIN → lock matriculation → overlap check OK → insert → COMMIT
//	T2: BEGIN → lock matriculation (blocks) → overlap check sees T1's hold
//	    → ROLLBACK → domain.ErrConflict
//
// The payment initiation callback runs before COMMIT so a gateway failure
// rolls back the reservation, its hold and any renter created here. The
// context deadline covers the whole transaction.
func (r *bookingRepository) Book(ctx context.Context, p repository.BookingParams, initPayment repository.PaymentInitFunc) (*domain.Reservation, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultBookingTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("booking: begin tx: %w", err)
	}
	// No-op once the tx has been committed.
	defer tx.Rollback()

	// Lock the matriculation row. Concurrent bookings for the same unit
	// block here until this transaction completes.
	var (
		vehicleID int32
		status    domain.MatriculationStatus
	)
	err = tx.QueryRowContext(txCtx, `
		SELECT vehicle_id, status
		FROM matriculations
		WHERE id = $1
		FOR UPDATE
	`, p.MatriculationID).Scan(&vehicleID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "matriculation", ID: p.MatriculationID}
	}
	if err != nil {
		return nil, fmt.Errorf("booking: lock matriculation %d: %w", p.MatriculationID, err)
	}
	if vehicleID != p.VehicleID {
		return nil, &domain.NotFoundError{Entity: "matriculation", ID: p.MatriculationID}
	}

	// Fail closed on units pulled for maintenance.
	if status == domain.MatriculationStatusMaintenance {
		return nil, &domain.ConflictError{Reason: fmt.Sprintf("matriculation %d is in maintenance", p.MatriculationID)}
	}

	// Inclusive-overlap check against existing holds. Runs under the row
	// lock taken above, so the count cannot go stale before the insert.
	var overlapping int
	err = tx.QueryRowContext(txCtx, `
		SELECT COUNT(*)
		FROM unavailable_periods
		WHERE matriculation_id = $1
		  AND $2 <= end_date
		  AND $3 >= start_date
	`, p.MatriculationID, p.PickupDate, p.DropoffDate).Scan(&overlapping)
	if err != nil {
		return nil, fmt.Errorf("booking: overlap check: %w", err)
	}
	if overlapping > 0 {
		return nil, &domain.ConflictError{Reason: fmt.Sprintf("matriculation %d is unavailable for the requested dates", p.MatriculationID)}
	}

	// Resolve or create the renter inside the same transaction so a later
	// failure evicts a renter created for this request.
	renterID := p.RenterID
	if p.NewRenter != nil {
		err = tx.QueryRowContext(txCtx, `
			INSERT INTO renters (first_name, last_name, email, phone, license_number, identity_doc, license_doc, created_on, updated_on)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id
		`, p.NewRenter.FirstName, p.NewRenter.LastName, p.NewRenter.Email, p.NewRenter.Phone,
			p.NewRenter.LicenseNumber, p.NewRenter.IdentityDoc, p.NewRenter.LicenseDoc, time.Now(), time.Now()).Scan(&renterID)
		if err != nil {
			return nil, fmt.Errorf("booking: create renter: %w", err)
		}
		p.NewRenter.ID = renterID
	}

	res := &domain.Reservation{
		RenterID:          renterID,
		VehicleID:         p.VehicleID,
		MatriculationID:   p.MatriculationID,
		PickupDate:        p.PickupDate,
		DropoffDate:       p.DropoffDate,
		TotalPrice:        p.TotalPrice,
		PaymentPercentage: p.PaymentPercentage,
		Currency:          p.Currency,
		OrderID:           p.OrderID,
		Status:            domain.ReservationStatusPending,
	}

	err = tx.QueryRowContext(txCtx, `
		INSERT INTO reservations (renter_id, vehicle_id, matriculation_id, pickup_date, dropoff_date,
			total_price, payment_percentage, amount_paid_millimes, currency, order_id, payment_ref, status, created_on, updated_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, '', $10, $11, $12) RETURNING id
	`, res.RenterID, res.VehicleID, res.MatriculationID, res.PickupDate, res.DropoffDate,
		res.TotalPrice, res.PaymentPercentage, res.Currency, res.OrderID, res.Status, time.Now(), time.Now()).Scan(&res.ID)
	if err != nil {
		return nil, fmt.Errorf("booking: insert reservation: %w", err)
	}

	// The hold mirrors the reservation's date range exactly while the
	// reservation is live.
	_, err = tx.ExecContext(txCtx, `
		INSERT INTO unavailable_periods (matriculation_id, reservation_id, start_date, end_date)
		VALUES ($1, $2, $3, $4)
	`, p.MatriculationID, res.ID, p.PickupDate, p.DropoffDate)
	if err != nil {
		return nil, fmt.Errorf("booking: insert hold: %w", err)
	}

	// Initiate payment while the transaction is still open: a gateway
	// failure must unwind everything above.
	paymentRef, err := initPayment(res)
	if err != nil {
		return nil, err
	}
	res.PaymentRef = paymentRef

	_, err = tx.ExecContext(txCtx, `
		UPDATE reservations SET payment_ref = $1, updated_on = $2 WHERE id = $3
	`, paymentRef, time.Now(), res.ID)
	if err != nil {
		return nil, fmt.Errorf("booking: store payment ref: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("booking: commit: %w", err)
	}
	return res, nil
}

// ExtendReservation applies an approved prolongation request. The extension
// range [current dropoff, new dropoff] gets the same locked availability
// check as a fresh booking; the existing hold is stretched rather than a
// second one inserted, keeping the one-hold-per-live-reservation invariant.
func (r *bookingRepository) ExtendReservation(ctx context.Context, prolongationID int32) (*domain.Reservation, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultBookingTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("extend: begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		reservationID int32
		newDropoff    time.Time
		reqStatus     domain.ProlongationStatus
	)
	err = tx.QueryRowContext(txCtx, `
		SELECT reservation_id, new_dropoff_date, status
		FROM prolongation_requests
		WHERE id = $1
		FOR UPDATE
	`, prolongationID).Scan(&reservationID, &newDropoff, &reqStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "prolongation request", ID: prolongationID}
	}
	if err != nil {
		return nil, fmt.Errorf("extend: lock prolongation %d: %w", prolongationID, err)
	}
	if reqStatus != domain.ProlongationStatusPending {
		return nil, &domain.ConflictError{Reason: fmt.Sprintf("prolongation request %d is already %s", prolongationID, reqStatus)}
	}

	res := &domain.Reservation{}
	err = tx.QueryRowContext(txCtx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`, reservationID).Scan(&res.ID, &res.RenterID, &res.VehicleID, &res.MatriculationID, &res.PickupDate, &res.DropoffDate,
		&res.TotalPrice, &res.PaymentPercentage, &res.AmountPaidMillimes, &res.Currency, &res.OrderID, &res.PaymentRef, &res.Status, &res.CreatedOn, &res.UpdatedOn)
	if err != nil {
		return nil, fmt.Errorf("extend: lock reservation %d: %w", reservationID, err)
	}
	if res.Status != domain.ReservationStatusPaid && res.Status != domain.ReservationStatusConfirmed {
		return nil, &domain.ConflictError{Reason: fmt.Sprintf("reservation %d is %s, not extendable", reservationID, res.Status)}
	}
	if !newDropoff.After(res.DropoffDate) {
		return nil, &domain.ConflictError{Reason: "new dropoff date does not extend the reservation"}
	}

	// Lock the matriculation and check the extension range against every
	// hold except this reservation's own.
	var matStatus domain.MatriculationStatus
	err = tx.QueryRowContext(txCtx, `
		SELECT status FROM matriculations WHERE id = $1 FOR UPDATE
	`, res.MatriculationID).Scan(&matStatus)
	if err != nil {
		return nil, fmt.Errorf("extend: lock matriculation %d: %w", res.MatriculationID, err)
	}

	var overlapping int
	err = tx.QueryRowContext(txCtx, `
		SELECT COUNT(*)
		FROM unavailable_periods
		WHERE matriculation_id = $1
		  AND reservation_id <> $2
		  AND $3 <= end_date
		  AND $4 >= start_date
	`, res.MatriculationID, res.ID, res.DropoffDate, newDropoff).Scan(&overlapping)
	if err != nil {
		return nil, fmt.Errorf("extend: overlap check: %w", err)
	}
	if overlapping > 0 {
		return nil, &domain.ConflictError{Reason: fmt.Sprintf("matriculation %d is unavailable for the extension range", res.MatriculationID)}
	}

	_, err = tx.ExecContext(txCtx, `
		UPDATE reservations SET dropoff_date = $1, updated_on = $2 WHERE id = $3
	`, newDropoff, time.Now(), res.ID)
	if err != nil {
		return nil, fmt.Errorf("extend: update reservation %d: %w", res.ID, err)
	}

	_, err = tx.ExecContext(txCtx, `
		UPDATE unavailable_periods SET end_date = $1 WHERE reservation_id = $2
	`, newDropoff, res.ID)
	if err != nil {
		return nil, fmt.Errorf("extend: stretch hold: %w", err)
	}

	_, err = tx.ExecContext(txCtx, `
		UPDATE prolongation_requests SET status = $1, updated_on = $2 WHERE id = $3
	`, domain.ProlongationStatusApproved, time.Now(), prolongationID)
	if err != nil {
		return nil, fmt.Errorf("extend: update prolongation %d: %w", prolongationID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("extend: commit: %w", err)
	}

	res.DropoffDate = newDropoff
	return res, nil
}
