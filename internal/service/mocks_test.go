package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/payment"
	"carthago-travel-backend/internal/repository"
)

// MockBookingRepo
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Book(ctx context.Context, params repository.BookingParams, initPayment repository.PaymentInitFunc) (*domain.Reservation, error) {
	args := m.Called(ctx, params, initPayment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockBookingRepo) ExtendReservation(ctx context.Context, prolongationID int32) (*domain.Reservation, error) {
	args := m.Called(ctx, prolongationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

// MockReservationRepo
type MockReservationRepo struct {
	mock.Mock
}

func (m *MockReservationRepo) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) GetForConfirmation(ctx context.Context, paymentRef, orderID string, id int32) (*domain.Reservation, error) {
	args := m.Called(ctx, paymentRef, orderID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) MarkPaid(ctx context.Context, id int32, amountMillimes int64) error {
	args := m.Called(ctx, id, amountMillimes)
	return args.Error(0)
}
func (m *MockReservationRepo) CreateProlongation(ctx context.Context, req *domain.ProlongationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
func (m *MockReservationRepo) GetProlongation(ctx context.Context, id int32) (*domain.ProlongationRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProlongationRequest), args.Error(1)
}

// MockVehicleRepo
type MockVehicleRepo struct {
	mock.Mock
}

func (m *MockVehicleRepo) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}
func (m *MockVehicleRepo) List(ctx context.Context) ([]domain.Vehicle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}
func (m *MockVehicleRepo) GetMatriculation(ctx context.Context, id int32) (*domain.Matriculation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Matriculation), args.Error(1)
}
func (m *MockVehicleRepo) SetMatriculationStatus(ctx context.Context, id int32, status domain.MatriculationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockRenterRepo
type MockRenterRepo struct {
	mock.Mock
}

func (m *MockRenterRepo) GetByID(ctx context.Context, id int32) (*domain.Renter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Renter), args.Error(1)
}
func (m *MockRenterRepo) GetByLicense(ctx context.Context, licenseNumber string) (*domain.Renter, error) {
	args := m.Called(ctx, licenseNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Renter), args.Error(1)
}

// MockGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) InitPayment(ctx context.Context, req *payment.InitRequest) (*payment.InitResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.InitResponse), args.Error(1)
}
func (m *MockGateway) GetPayment(ctx context.Context, paymentRef string) (*payment.Details, error) {
	args := m.Called(ctx, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Details), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendReservationConfirmation(ctx context.Context, email, name string, res *domain.Reservation) error {
	args := m.Called(ctx, email, name, res)
	return args.Error(0)
}
func (m *MockEmailService) SendProlongationRejection(ctx context.Context, email, name string, reservationID int32) error {
	args := m.Called(ctx, email, name, reservationID)
	return args.Error(0)
}
