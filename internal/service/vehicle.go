package service

import (
	"context"
	"fmt"

	"carthago-travel-backend/internal/cache"
	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/logger"
	"carthago-travel-backend/internal/repository"
)

type vehicleService struct {
	vehicleRepo repository.VehicleRepository
	catalog     *cache.CatalogCache
}

// NewVehicleService wires the catalog reads through the redis cache.
// catalog may be nil, in which case every read hits the database.
func NewVehicleService(vehicleRepo repository.VehicleRepository, catalog *cache.CatalogCache) VehicleService {
	return &vehicleService{
		vehicleRepo: vehicleRepo,
		catalog:     catalog,
	}
}

func (s *vehicleService) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	if s.catalog != nil {
		if vehicles, ok := s.catalog.Get(ctx); ok {
			return vehicles, nil
		}
	}

	vehicles, err := s.vehicleRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.catalog != nil {
		s.catalog.Set(ctx, vehicles)
	}
	return vehicles, nil
}

func (s *vehicleService) GetVehicle(ctx context.Context, id int32) (*domain.Vehicle, error) {
	return s.vehicleRepo.GetByID(ctx, id)
}

// GetMatriculationAvailability returns one unit with its booked periods,
// for the storefront date picker.
func (s *vehicleService) GetMatriculationAvailability(ctx context.Context, id int32) (*domain.Matriculation, error) {
	return s.vehicleRepo.GetMatriculation(ctx, id)
}

// SetMatriculationStatus lets the back office pull a car out of the fleet
// or return it. RENTED is owned by the reconciliation sweep and cannot be
// set or overridden by hand.
func (s *vehicleService) SetMatriculationStatus(ctx context.Context, id int32, status domain.MatriculationStatus) error {
	if status != domain.MatriculationStatusAvailable && status != domain.MatriculationStatusMaintenance {
		ve := domain.NewValidationError()
		ve.Add("status", "must be AVAILABLE or MAINTENANCE")
		return ve
	}

	mat, err := s.vehicleRepo.GetMatriculation(ctx, id)
	if err != nil {
		return err
	}
	if mat.Status == domain.MatriculationStatusRented {
		return &domain.ConflictError{Reason: fmt.Sprintf("matriculation %d is on rent until the sweep returns it", id)}
	}

	if err := s.vehicleRepo.SetMatriculationStatus(ctx, id, status); err != nil {
		return err
	}

	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}

	logger.Info("Matriculation status updated", "matriculation_id", id, "status", status)
	return nil
}
