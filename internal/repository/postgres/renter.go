package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/repository"
)

type renterRepository struct {
	db *sql.DB
}

func NewRenterRepository(db *sql.DB) repository.RenterRepository {
	return &renterRepository{db: db}
}

const renterColumns = `id, first_name, last_name, email, phone, license_number, identity_doc, license_doc, created_on, updated_on`

func scanRenter(row *sql.Row) (*domain.Renter, error) {
	u := &domain.Renter{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.LicenseNumber, &u.IdentityDoc, &u.LicenseDoc, &u.CreatedOn, &u.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *renterRepository) GetByID(ctx context.Context, id int32) (*domain.Renter, error) {
	query := `SELECT ` + renterColumns + ` FROM renters WHERE id = $1`
	u, err := scanRenter(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "renter", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get renter %d: %w", id, err)
	}
	return u, nil
}

func (r *renterRepository) GetByLicense(ctx context.Context, licenseNumber string) (*domain.Renter, error) {
	query := `SELECT ` + renterColumns + ` FROM renters WHERE license_number = $1`
	u, err := scanRenter(r.db.QueryRowContext(ctx, query, licenseNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "renter", ID: licenseNumber}
	}
	if err != nil {
		return nil, fmt.Errorf("get renter by license: %w", err)
	}
	return u, nil
}
