package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/payment"
	"carthago-travel-backend/internal/repository"
	"carthago-travel-backend/internal/service"
	"carthago-travel-backend/internal/storage"
)

func newTestDocStore(t *testing.T) *storage.DocumentStore {
	t.Helper()
	docs, err := storage.NewDocumentStore(t.TempDir(), 5)
	require.NoError(t, err)
	return docs
}

func TestReservationService_Create(t *testing.T) {
	ctx := context.Background()

	vehicle := &domain.Vehicle{
		ID:          2,
		Brand:       "Peugeot",
		Model:       "208",
		PricePerDay: 100,
		Currency:    "TND",
	}
	renter := &domain.Renter{ID: 7, FirstName: "Amira", LastName: "Ben Salah", Email: "amira@test.tn"}

	baseReq := func() *service.CreateReservationRequest {
		return &service.CreateReservationRequest{
			RenterID:          7,
			VehicleID:         2,
			MatriculationID:   4,
			PickupDate:        "2026-09-01",
			DropoffDate:       "2026-09-06",
			PaymentPercentage: 30,
			Currency:          "TND",
		}
	}

	t.Run("Success", func(t *testing.T) {
		bookingRepo := new(MockBookingRepo)
		reservationRepo := new(MockReservationRepo)
		vehicleRepo := new(MockVehicleRepo)
		renterRepo := new(MockRenterRepo)
		gateway := new(MockGateway)
		emailSvc := new(MockEmailService)
		svc := service.NewReservationService(bookingRepo, reservationRepo, vehicleRepo, renterRepo, gateway, emailSvc, newTestDocStore(t), "https://carthago.test")

		renterRepo.On("GetByID", ctx, int32(7)).Return(renter, nil)
		vehicleRepo.On("GetByID", ctx, int32(2)).Return(vehicle, nil)

		// 5 days at 100/day hits the 5% band: 475 total, 30% deposit, 142500 millimes.
		gateway.On("InitPayment", ctx, mock.MatchedBy(func(req *payment.InitRequest) bool {
			return req.AmountMillimes == 142500 && req.Currency == "TND" && req.Email == "amira@test.tn"
		})).Return(&payment.InitResponse{PaymentRef: "pay-ref-1", PayURL: "https://gateway.test/pay/pay-ref-1"}, nil)

		persisted := &domain.Reservation{
			ID:                11,
			RenterID:          7,
			VehicleID:         2,
			MatriculationID:   4,
			TotalPrice:        475,
			PaymentPercentage: 30,
			Currency:          "TND",
			Status:            domain.ReservationStatusPending,
		}
		bookingRepo.On("Book", ctx, mock.AnythingOfType("repository.BookingParams"), mock.AnythingOfType("repository.PaymentInitFunc")).
			Run(func(args mock.Arguments) {
				params := args.Get(1).(repository.BookingParams)
				assert.Equal(t, int32(7), params.RenterID)
				assert.Nil(t, params.NewRenter)
				assert.Equal(t, 475.0, params.TotalPrice)
				assert.NotEmpty(t, params.OrderID)

				persisted.OrderID = params.OrderID
				initPayment := args.Get(2).(repository.PaymentInitFunc)
				ref, err := initPayment(persisted)
				require.NoError(t, err)
				persisted.PaymentRef = ref
			}).
			Return(persisted, nil)

		res, err := svc.Create(ctx, baseReq())
		require.NoError(t, err)
		assert.Equal(t, "https://gateway.test/pay/pay-ref-1", res.PayURL)
		assert.Equal(t, "pay-ref-1", res.Reservation.PaymentRef)
		assert.Equal(t, domain.ReservationStatusPending, res.Reservation.Status)
		bookingRepo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("Rejects invalid input before any repository call", func(t *testing.T) {
		bookingRepo := new(MockBookingRepo)
		svc := service.NewReservationService(bookingRepo, new(MockReservationRepo), new(MockVehicleRepo), new(MockRenterRepo), new(MockGateway), new(MockEmailService), newTestDocStore(t), "https://carthago.test")

		req := baseReq()
		req.DropoffDate = "2026-09-03" // 2 days, below the 3-day minimum
		req.PaymentPercentage = 50
		req.Currency = "EUR"

		_, err := svc.Create(ctx, req)
		require.Error(t, err)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "dropoff_date")
		assert.Contains(t, ve.Fields, "payment_percentage")
		assert.Contains(t, ve.Fields, "currency")
		bookingRepo.AssertNotCalled(t, "Book")
	})

	t.Run("Requires contact details and documents for a new renter", func(t *testing.T) {
		svc := service.NewReservationService(new(MockBookingRepo), new(MockReservationRepo), new(MockVehicleRepo), new(MockRenterRepo), new(MockGateway), new(MockEmailService), newTestDocStore(t), "https://carthago.test")

		req := baseReq()
		req.RenterID = 0

		_, err := svc.Create(ctx, req)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "first_name")
		assert.Contains(t, ve.Fields, "license_number")
		assert.Contains(t, ve.Fields, "identity_doc")
		assert.Contains(t, ve.Fields, "license_doc")
	})

	newRenterReq := func() *service.CreateReservationRequest {
		req := baseReq()
		req.RenterID = 0
		req.FirstName = "Amira"
		req.LastName = "Ben Salah"
		req.Email = "amira@test.tn"
		req.Phone = "+216 20 123 456"
		req.LicenseNumber = "TN-12345"
		req.IdentityDoc = strings.NewReader("identity scan")
		req.IdentityDocName = "identity.jpg"
		req.LicenseDoc = strings.NewReader("license scan")
		req.LicenseDocName = "license.jpg"
		return req
	}

	t.Run("A known license reuses the renter record", func(t *testing.T) {
		bookingRepo := new(MockBookingRepo)
		vehicleRepo := new(MockVehicleRepo)
		renterRepo := new(MockRenterRepo)
		dir := t.TempDir()
		docs, err := storage.NewDocumentStore(dir, 5)
		require.NoError(t, err)
		svc := service.NewReservationService(bookingRepo, new(MockReservationRepo), vehicleRepo, renterRepo, new(MockGateway), new(MockEmailService), docs, "https://carthago.test")

		renterRepo.On("GetByLicense", ctx, "TN-12345").Return(renter, nil)
		vehicleRepo.On("GetByID", ctx, int32(2)).Return(vehicle, nil)
		bookingRepo.On("Book", ctx, mock.MatchedBy(func(params repository.BookingParams) bool {
			return params.RenterID == 7 && params.NewRenter == nil
		}), mock.AnythingOfType("repository.PaymentInitFunc")).
			Return(&domain.Reservation{ID: 12, RenterID: 7, Status: domain.ReservationStatusPending}, nil)

		_, err = svc.Create(ctx, newRenterReq())
		require.NoError(t, err)
		bookingRepo.AssertExpectations(t)

		// Nothing was staged for a renter we already know.
		entries, err := os.ReadDir(filepath.Join(dir, "staging"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Staged documents are discarded when booking fails", func(t *testing.T) {
		bookingRepo := new(MockBookingRepo)
		vehicleRepo := new(MockVehicleRepo)
		renterRepo := new(MockRenterRepo)
		dir := t.TempDir()
		docs, err := storage.NewDocumentStore(dir, 5)
		require.NoError(t, err)
		svc := service.NewReservationService(bookingRepo, new(MockReservationRepo), vehicleRepo, renterRepo, new(MockGateway), new(MockEmailService), docs, "https://carthago.test")

		renterRepo.On("GetByLicense", ctx, "TN-12345").
			Return(nil, &domain.NotFoundError{Entity: "renter", ID: "TN-12345"})
		vehicleRepo.On("GetByID", ctx, int32(2)).Return(vehicle, nil)
		bookingRepo.On("Book", ctx, mock.MatchedBy(func(params repository.BookingParams) bool {
			return params.NewRenter != nil &&
				params.NewRenter.LicenseNumber == "TN-12345" &&
				params.NewRenter.IdentityDoc != "" &&
				params.NewRenter.LicenseDoc != ""
		}), mock.AnythingOfType("repository.PaymentInitFunc")).
			Return(nil, &domain.ConflictError{Reason: "matriculation 4 is already reserved for the requested dates"})

		_, err = svc.Create(ctx, newRenterReq())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConflict)

		// The renter row rolled back with the transaction; the uploads
		// must not survive it.
		entries, err := os.ReadDir(filepath.Join(dir, "staging"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Date conflict surfaces as conflict error", func(t *testing.T) {
		bookingRepo := new(MockBookingRepo)
		vehicleRepo := new(MockVehicleRepo)
		renterRepo := new(MockRenterRepo)
		svc := service.NewReservationService(bookingRepo, new(MockReservationRepo), vehicleRepo, renterRepo, new(MockGateway), new(MockEmailService), newTestDocStore(t), "https://carthago.test")

		renterRepo.On("GetByID", ctx, int32(7)).Return(renter, nil)
		vehicleRepo.On("GetByID", ctx, int32(2)).Return(vehicle, nil)
		bookingRepo.On("Book", ctx, mock.AnythingOfType("repository.BookingParams"), mock.AnythingOfType("repository.PaymentInitFunc")).
			Return(nil, &domain.ConflictError{Reason: "matriculation 4 is already reserved for the requested dates"})

		_, err := svc.Create(ctx, baseReq())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestReservationService_Confirm(t *testing.T) {
	ctx := context.Background()

	pending := func() *domain.Reservation {
		return &domain.Reservation{
			ID:                11,
			RenterID:          7,
			TotalPrice:        475,
			PaymentPercentage: 30,
			Currency:          "TND",
			OrderID:           "order-1",
			PaymentRef:        "pay-ref-1",
			Status:            domain.ReservationStatusPending,
		}
	}
	renter := &domain.Renter{ID: 7, FirstName: "Amira", Email: "amira@test.tn"}

	t.Run("Success", func(t *testing.T) {
		reservationRepo := new(MockReservationRepo)
		renterRepo := new(MockRenterRepo)
		gateway := new(MockGateway)
		emailSvc := new(MockEmailService)
		svc := service.NewReservationService(new(MockBookingRepo), reservationRepo, new(MockVehicleRepo), renterRepo, gateway, emailSvc, newTestDocStore(t), "https://carthago.test")

		reservationRepo.On("GetForConfirmation", ctx, "pay-ref-1", "order-1", int32(11)).Return(pending(), nil)
		gateway.On("GetPayment", ctx, "pay-ref-1").Return(&payment.Details{
			Status:         payment.StatusCompleted,
			AmountMillimes: 142500,
			OrderID:        "order-1",
		}, nil)
		reservationRepo.On("MarkPaid", ctx, int32(11), int64(142500)).Return(nil)
		renterRepo.On("GetByID", ctx, int32(7)).Return(renter, nil)
		emailSvc.On("SendReservationConfirmation", ctx, "amira@test.tn", "Amira", mock.AnythingOfType("*domain.Reservation")).Return(nil)

		result, err := svc.Confirm(ctx, "pay-ref-1", "order-1", 11)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusPaid, result.Reservation.Status)
		assert.Equal(t, int64(142500), result.Reservation.AmountPaidMillimes)
		assert.Empty(t, result.Warning)
		reservationRepo.AssertExpectations(t)
	})

	t.Run("Already paid is idempotent", func(t *testing.T) {
		reservationRepo := new(MockReservationRepo)
		gateway := new(MockGateway)
		svc := service.NewReservationService(new(MockBookingRepo), reservationRepo, new(MockVehicleRepo), new(MockRenterRepo), gateway, new(MockEmailService), newTestDocStore(t), "https://carthago.test")

		paid := pending()
		paid.Status = domain.ReservationStatusPaid
		paid.AmountPaidMillimes = 142500
		reservationRepo.On("GetForConfirmation", ctx, "pay-ref-1", "order-1", int32(11)).Return(paid, nil)

		result, err := svc.Confirm(ctx, "pay-ref-1", "order-1", 11)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusPaid, result.Reservation.Status)
		gateway.AssertNotCalled(t, "GetPayment")
		reservationRepo.AssertNotCalled(t, "MarkPaid")
	})

	t.Run("Rejects amount mismatch", func(t *testing.T) {
		reservationRepo := new(MockReservationRepo)
		gateway := new(MockGateway)
		svc := service.NewReservationService(new(MockBookingRepo), reservationRepo, new(MockVehicleRepo), new(MockRenterRepo), gateway, new(MockEmailService), newTestDocStore(t), "https://carthago.test")

		reservationRepo.On("GetForConfirmation", ctx, "pay-ref-1", "order-1", int32(11)).Return(pending(), nil)
		gateway.On("GetPayment", ctx, "pay-ref-1").Return(&payment.Details{
			Status:         payment.StatusCompleted,
			AmountMillimes: 142499, // one millime short
			OrderID:        "order-1",
		}, nil)

		_, err := svc.Confirm(ctx, "pay-ref-1", "order-1", 11)
		assert.ErrorIs(t, err, domain.ErrAmountMismatch)
		reservationRepo.AssertNotCalled(t, "MarkPaid")
	})

	t.Run("Rejects incomplete payment", func(t *testing.T) {
		reservationRepo := new(MockReservationRepo)
		gateway := new(MockGateway)
		svc := service.NewReservationService(new(MockBookingRepo), reservationRepo, new(MockVehicleRepo), new(MockRenterRepo), gateway, new(MockEmailService), newTestDocStore(t), "https://carthago.test")

		reservationRepo.On("GetForConfirmation", ctx, "pay-ref-1", "order-1", int32(11)).Return(pending(), nil)
		gateway.On("GetPayment", ctx, "pay-ref-1").Return(&payment.Details{
			Status:  payment.StatusPending,
			OrderID: "order-1",
		}, nil)

		_, err := svc.Confirm(ctx, "pay-ref-1", "order-1", 11)
		assert.ErrorIs(t, err, domain.ErrConflict)
		reservationRepo.AssertNotCalled(t, "MarkPaid")
	})

	t.Run("Notification failure yields warning, not error", func(t *testing.T) {
		reservationRepo := new(MockReservationRepo)
		renterRepo := new(MockRenterRepo)
		gateway := new(MockGateway)
		emailSvc := new(MockEmailService)
		svc := service.NewReservationService(new(MockBookingRepo), reservationRepo, new(MockVehicleRepo), renterRepo, gateway, emailSvc, newTestDocStore(t), "https://carthago.test")

		reservationRepo.On("GetForConfirmation", ctx, "pay-ref-1", "order-1", int32(11)).Return(pending(), nil)
		gateway.On("GetPayment", ctx, "pay-ref-1").Return(&payment.Details{
			Status:         payment.StatusCompleted,
			AmountMillimes: 142500,
			OrderID:        "order-1",
		}, nil)
		reservationRepo.On("MarkPaid", ctx, int32(11), int64(142500)).Return(nil)
		renterRepo.On("GetByID", ctx, int32(7)).Return(renter, nil)
		emailSvc.On("SendReservationConfirmation", ctx, "amira@test.tn", "Amira", mock.AnythingOfType("*domain.Reservation")).
			Return(errors.New("smtp unreachable"))

		result, err := svc.Confirm(ctx, "pay-ref-1", "order-1", 11)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusPaid, result.Reservation.Status)
		assert.NotEmpty(t, result.Warning)
	})
}

func TestReservationService_RequestProlongation(t *testing.T) {
	ctx := context.Background()

	paid := &domain.Reservation{
		ID:          11,
		RenterID:    7,
		DropoffDate: mustDay(t, "2026-09-06"),
		Status:      domain.ReservationStatusPaid,
	}

	t.Run("Success", func(t *testing.T) {
		reservationRepo := new(MockReservationRepo)
		svc := service.NewReservationService(new(MockBookingRepo), reservationRepo, new(MockVehicleRepo), new(MockRenterRepo), new(MockGateway), new(MockEmailService), newTestDocStore(t), "https://carthago.test")

		reservationRepo.On("GetByID", ctx, int32(11)).Return(paid, nil)
		reservationRepo.On("CreateProlongation", ctx, mock.AnythingOfType("*domain.ProlongationRequest")).Return(nil)

		req, err := svc.RequestProlongation(ctx, 11, "2026-09-09")
		require.NoError(t, err)
		assert.Equal(t, int32(11), req.ReservationID)
		assert.Equal(t, mustDay(t, "2026-09-09"), req.NewDropoffDate)
	})

	t.Run("New dropoff must extend the reservation", func(t *testing.T) {
		reservationRepo := new(MockReservationRepo)
		svc := service.NewReservationService(new(MockBookingRepo), reservationRepo, new(MockVehicleRepo), new(MockRenterRepo), new(MockGateway), new(MockEmailService), newTestDocStore(t), "https://carthago.test")

		reservationRepo.On("GetByID", ctx, int32(11)).Return(paid, nil)

		_, err := svc.RequestProlongation(ctx, 11, "2026-09-06")
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
		reservationRepo.AssertNotCalled(t, "CreateProlongation")
	})

	t.Run("Only active reservations are extendable", func(t *testing.T) {
		reservationRepo := new(MockReservationRepo)
		svc := service.NewReservationService(new(MockBookingRepo), reservationRepo, new(MockVehicleRepo), new(MockRenterRepo), new(MockGateway), new(MockEmailService), newTestDocStore(t), "https://carthago.test")

		cancelled := *paid
		cancelled.Status = domain.ReservationStatusCancelled
		reservationRepo.On("GetByID", ctx, int32(11)).Return(&cancelled, nil)

		_, err := svc.RequestProlongation(ctx, 11, "2026-09-09")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func mustDay(t *testing.T, s string) (day time.Time) {
	t.Helper()
	day, err := domain.ParseDay(s)
	require.NoError(t, err)
	return day
}
