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

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT id, brand, model, category, seats, transmission, price_per_day, currency, description, created_on, updated_on
	          FROM vehicles WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Brand, &v.Model, &v.Category, &v.Seats, &v.Transmission, &v.PricePerDay, &v.Currency, &v.Description, &v.CreatedOn, &v.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "vehicle", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle %d: %w", id, err)
	}

	mats, err := r.listMatriculations(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Matriculations = mats
	return v, nil
}

func (r *vehicleRepository) List(ctx context.Context) ([]domain.Vehicle, error) {
	query := `SELECT id, brand, model, category, seats, transmission, price_per_day, currency, description, created_on, updated_on
	          FROM vehicles ORDER BY brand, model`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Brand, &v.Model, &v.Category, &v.Seats, &v.Transmission, &v.PricePerDay, &v.Currency, &v.Description, &v.CreatedOn, &v.UpdatedOn); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *vehicleRepository) listMatriculations(ctx context.Context, vehicleID int32) ([]domain.Matriculation, error) {
	query := `SELECT id, vehicle_id, plate, status FROM matriculations WHERE vehicle_id = $1 ORDER BY plate`
	rows, err := r.db.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list matriculations for vehicle %d: %w", vehicleID, err)
	}
	defer rows.Close()

	var mats []domain.Matriculation
	for rows.Next() {
		var m domain.Matriculation
		if err := rows.Scan(&m.ID, &m.VehicleID, &m.Plate, &m.Status); err != nil {
			return nil, fmt.Errorf("scan matriculation: %w", err)
		}
		mats = append(mats, m)
	}
	return mats, rows.Err()
}

func (r *vehicleRepository) GetMatriculation(ctx context.Context, id int32) (*domain.Matriculation, error) {
	m := &domain.Matriculation{}
	query := `SELECT id, vehicle_id, plate, status FROM matriculations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.VehicleID, &m.Plate, &m.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "matriculation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get matriculation %d: %w", id, err)
	}

	periods, err := r.listPeriods(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Periods = periods
	return m, nil
}

func (r *vehicleRepository) listPeriods(ctx context.Context, matriculationID int32) ([]domain.UnavailablePeriod, error) {
	query := `SELECT id, matriculation_id, reservation_id, start_date, end_date
	          FROM unavailable_periods WHERE matriculation_id = $1 ORDER BY start_date`
	rows, err := r.db.QueryContext(ctx, query, matriculationID)
	if err != nil {
		return nil, fmt.Errorf("list periods for matriculation %d: %w", matriculationID, err)
	}
	defer rows.Close()

	var periods []domain.UnavailablePeriod
	for rows.Next() {
		var p domain.UnavailablePeriod
		if err := rows.Scan(&p.ID, &p.MatriculationID, &p.ReservationID, &p.StartDate, &p.EndDate); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *vehicleRepository) SetMatriculationStatus(ctx context.Context, id int32, status domain.MatriculationStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE matriculations SET status = $1, updated_on = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set matriculation %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "matriculation", ID: id}
	}
	return nil
}
