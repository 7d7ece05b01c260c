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

type reservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

const reservationColumns = `id, renter_id, vehicle_id, matriculation_id, pickup_date, dropoff_date,
	total_price, payment_percentage, amount_paid_millimes, currency, order_id, payment_ref, status, created_on, updated_on`

func scanReservation(row *sql.Row) (*domain.Reservation, error) {
	rv := &domain.Reservation{}
	err := row.Scan(&rv.ID, &rv.RenterID, &rv.VehicleID, &rv.MatriculationID, &rv.PickupDate, &rv.DropoffDate,
		&rv.TotalPrice, &rv.PaymentPercentage, &rv.AmountPaidMillimes, &rv.Currency, &rv.OrderID, &rv.PaymentRef, &rv.Status, &rv.CreatedOn, &rv.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return rv, nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	rv, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "reservation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return rv, nil
}

func (r *reservationRepository) GetForConfirmation(ctx context.Context, paymentRef, orderID string, id int32) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE id = $1 AND payment_ref = $2 AND order_id = $3`
	rv, err := scanReservation(r.db.QueryRowContext(ctx, query, id, paymentRef, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "reservation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation for confirmation: %w", err)
	}
	return rv, nil
}

func (r *reservationRepository) MarkPaid(ctx context.Context, id int32, amountMillimes int64) error {
	// Conditional on PENDING so a duplicate gateway callback is a no-op.
	res, err := r.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, amount_paid_millimes = $2, updated_on = $3
		WHERE id = $4 AND status = $5`,
		domain.ReservationStatusPaid, amountMillimes, time.Now(), id, domain.ReservationStatusPending)
	if err != nil {
		return fmt.Errorf("mark reservation %d paid: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ConflictError{Reason: fmt.Sprintf("reservation %d is not pending", id)}
	}
	return nil
}

func (r *reservationRepository) CreateProlongation(ctx context.Context, req *domain.ProlongationRequest) error {
	query := `INSERT INTO prolongation_requests (reservation_id, new_dropoff_date, status, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, req.ReservationID, req.NewDropoffDate, domain.ProlongationStatusPending, time.Now(), time.Now()).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("create prolongation request: %w", err)
	}
	req.Status = domain.ProlongationStatusPending
	return nil
}

func (r *reservationRepository) GetProlongation(ctx context.Context, id int32) (*domain.ProlongationRequest, error) {
	req := &domain.ProlongationRequest{}
	query := `SELECT id, reservation_id, new_dropoff_date, status, created_on, updated_on
	          FROM prolongation_requests WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&req.ID, &req.ReservationID, &req.NewDropoffDate, &req.Status, &req.CreatedOn, &req.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "prolongation request", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get prolongation request %d: %w", id, err)
	}
	return req, nil
}
