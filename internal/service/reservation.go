package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/logger"
	"carthago-travel-backend/internal/payment"
	"carthago-travel-backend/internal/pricing"
	"carthago-travel-backend/internal/repository"
	"carthago-travel-backend/internal/storage"
)

// MinRentalDays is the shortest bookable rental.
const MinRentalDays = 3

type reservationService struct {
	bookingRepo     repository.BookingRepository
	reservationRepo repository.ReservationRepository
	vehicleRepo     repository.VehicleRepository
	renterRepo      repository.RenterRepository
	gateway         PaymentGateway
	emailSvc        EmailService
	docs            *storage.DocumentStore
	baseURL         string
}

func NewReservationService(
	bookingRepo repository.BookingRepository,
	reservationRepo repository.ReservationRepository,
	vehicleRepo repository.VehicleRepository,
	renterRepo repository.RenterRepository,
	gateway PaymentGateway,
	emailSvc EmailService,
	docs *storage.DocumentStore,
	baseURL string,
) ReservationService {
	return &reservationService{
		bookingRepo:     bookingRepo,
		reservationRepo: reservationRepo,
		vehicleRepo:     vehicleRepo,
		renterRepo:      renterRepo,
		gateway:         gateway,
		emailSvc:        emailSvc,
		docs:            docs,
		baseURL:         baseURL,
	}
}

func (s *reservationService) Create(ctx context.Context, req *CreateReservationRequest) (*CreateReservationResult, error) {
	pickup, dropoff, err := validateCreateRequest(req)
	if err != nil {
		return nil, err
	}

	// Resolve the renter before touching anything mutable.
	params := repository.BookingParams{
		VehicleID:         req.VehicleID,
		MatriculationID:   req.MatriculationID,
		PickupDate:        pickup,
		DropoffDate:       dropoff,
		PaymentPercentage: req.PaymentPercentage,
		Currency:          req.Currency,
		OrderID:           uuid.New().String(),
	}

	var staged []*storage.StagedFile
	renterEmail := req.Email
	renterFirst := req.FirstName
	renterLast := req.LastName
	renterPhone := req.Phone

	switch {
	case req.RenterID > 0:
		renter, err := s.renterRepo.GetByID(ctx, req.RenterID)
		if err != nil {
			return nil, err
		}
		params.RenterID = renter.ID
		renterEmail = renter.Email
		renterFirst = renter.FirstName
		renterLast = renter.LastName
		renterPhone = renter.Phone

	default:
		// Renters are keyed by license number: reuse an existing record,
		// otherwise stage the document uploads and create one inside the
		// booking transaction.
		existing, err := s.renterRepo.GetByLicense(ctx, req.LicenseNumber)
		switch {
		case err == nil:
			params.RenterID = existing.ID
			renterEmail = existing.Email
			renterFirst = existing.FirstName
			renterLast = existing.LastName
			renterPhone = existing.Phone
		case errors.Is(err, domain.ErrNotFound):
			identity, license, err := s.stageDocuments(req)
			if err != nil {
				return nil, err
			}
			staged = []*storage.StagedFile{identity, license}
			params.NewRenter = &domain.Renter{
				FirstName:     req.FirstName,
				LastName:      req.LastName,
				Email:         req.Email,
				Phone:         req.Phone,
				LicenseNumber: req.LicenseNumber,
				IdentityDoc:   identity.Name,
				LicenseDoc:    license.Name,
			}
		default:
			return nil, err
		}
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		s.docs.Discard(staged...)
		return nil, err
	}

	days := domain.DaysBetween(pickup, dropoff)
	params.TotalPrice = pricing.Total(days, vehicle.PricePerDay)

	var payURL string
	res, err := s.bookingRepo.Book(ctx, params, func(r *domain.Reservation) (string, error) {
		deposit := pricing.Deposit(r.TotalPrice, r.PaymentPercentage)
		init, err := s.gateway.InitPayment(ctx, &payment.InitRequest{
			OrderID:        r.OrderID,
			AmountMillimes: pricing.Millimes(deposit),
			Currency:       r.Currency,
			FirstName:      renterFirst,
			LastName:       renterLast,
			Email:          renterEmail,
			Phone:          renterPhone,
			SuccessURL:     fmt.Sprintf("%s/api/v1/reservations/confirm?reservation_id=%d", s.baseURL, r.ID),
			ErrorURL:       fmt.Sprintf("%s/api/v1/reservations/%d/payment-failed", s.baseURL, r.ID),
		})
		if err != nil {
			return "", err
		}
		payURL = init.PayURL
		return init.PaymentRef, nil
	})
	if err != nil {
		// The transaction rolled back; staged uploads must go with it.
		s.docs.Discard(staged...)
		return nil, err
	}

	// The renter row is durable now; move the documents under it.
	if params.NewRenter != nil {
		for _, f := range staged {
			if _, err := s.docs.CommitRenterDocument(f, params.NewRenter.ID); err != nil {
				logger.Error("Failed to commit renter document", "renter_id", params.NewRenter.ID, "file", f.Name, "error", err)
			}
		}
	}

	logger.Info("Reservation created",
		"reservation_id", res.ID,
		"matriculation_id", res.MatriculationID,
		"renter", renterFirst,
		"total_price", res.TotalPrice,
		"order_id", res.OrderID)

	return &CreateReservationResult{Reservation: res, PayURL: payURL}, nil
}

func (s *reservationService) stageDocuments(req *CreateReservationRequest) (*storage.StagedFile, *storage.StagedFile, error) {
	identity, err := s.docs.Stage(req.IdentityDoc, req.IdentityDocName)
	if err != nil {
		return nil, nil, fmt.Errorf("stage identity document: %w", err)
	}
	license, err := s.docs.Stage(req.LicenseDoc, req.LicenseDocName)
	if err != nil {
		s.docs.Discard(identity)
		return nil, nil, fmt.Errorf("stage license document: %w", err)
	}
	return identity, license, nil
}

// Confirm handles the gateway redirect/webhook. Safe to invoke multiple
// times for the same reservation: once PAID, it returns the same success
// without touching the amount again.
func (s *reservationService) Confirm(ctx context.Context, paymentRef, orderID string, reservationID int32) (*ConfirmResult, error) {
	res, err := s.reservationRepo.GetForConfirmation(ctx, paymentRef, orderID, reservationID)
	if err != nil {
		return nil, err
	}

	if res.Status == domain.ReservationStatusPaid {
		return &ConfirmResult{Reservation: res}, nil
	}
	if res.Status != domain.ReservationStatusPending {
		return nil, &domain.ConflictError{Reason: fmt.Sprintf("reservation %d is %s, not confirmable", res.ID, res.Status)}
	}

	details, err := s.gateway.GetPayment(ctx, paymentRef)
	if err != nil {
		return nil, err
	}
	if details.Status != payment.StatusCompleted {
		return nil, &domain.ConflictError{Reason: fmt.Sprintf("payment %s is %s, not completed", paymentRef, details.Status)}
	}

	// The paid amount must equal the expected deposit to the millime.
	// Anything else is rejected outright, not tolerated.
	expected := pricing.Millimes(pricing.Deposit(res.TotalPrice, res.PaymentPercentage))
	if details.OrderID != res.OrderID || details.AmountMillimes != expected {
		logger.Warn("Payment verification rejected",
			"reservation_id", res.ID,
			"expected_millimes", expected,
			"reported_millimes", details.AmountMillimes,
			"expected_order", res.OrderID,
			"reported_order", details.OrderID)
		return nil, domain.ErrAmountMismatch
	}

	if err := s.reservationRepo.MarkPaid(ctx, res.ID, expected); err != nil {
		return nil, err
	}
	res.Status = domain.ReservationStatusPaid
	res.AmountPaidMillimes = expected

	// Payment state is the durable fact; the notification is best-effort.
	result := &ConfirmResult{Reservation: res}
	renter, err := s.renterRepo.GetByID(ctx, res.RenterID)
	if err == nil {
		err = s.emailSvc.SendReservationConfirmation(ctx, renter.Email, renter.FirstName, res)
	}
	if err != nil {
		logger.Warn("Confirmation notification failed", "reservation_id", res.ID, "error", err)
		result.Warning = "payment recorded, confirmation email could not be sent"
	}

	logger.Info("Reservation paid", "reservation_id", res.ID, "amount_millimes", expected)
	return result, nil
}

func (s *reservationService) RequestProlongation(ctx context.Context, reservationID int32, newDropoffDate string) (*domain.ProlongationRequest, error) {
	newDropoff, err := domain.ParseDay(newDropoffDate)
	if err != nil {
		ve := domain.NewValidationError()
		ve.Add("new_dropoff_date", err.Error())
		return nil, ve
	}

	res, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status != domain.ReservationStatusPaid && res.Status != domain.ReservationStatusConfirmed {
		return nil, &domain.ConflictError{Reason: fmt.Sprintf("reservation %d is %s, not extendable", res.ID, res.Status)}
	}
	if !newDropoff.After(res.DropoffDate) {
		ve := domain.NewValidationError()
		ve.Add("new_dropoff_date", "must be after the current dropoff date")
		return nil, ve
	}

	req := &domain.ProlongationRequest{
		ReservationID:  res.ID,
		NewDropoffDate: newDropoff,
	}
	if err := s.reservationRepo.CreateProlongation(ctx, req); err != nil {
		return nil, err
	}

	logger.Info("Prolongation requested", "reservation_id", res.ID, "new_dropoff", newDropoff.Format(domain.DayFormat))
	return req, nil
}

func (s *reservationService) ApproveProlongation(ctx context.Context, prolongationID int32) (*domain.Reservation, error) {
	res, err := s.bookingRepo.ExtendReservation(ctx, prolongationID)
	if err != nil {
		return nil, err
	}
	logger.Info("Prolongation approved", "prolongation_id", prolongationID, "reservation_id", res.ID)
	return res, nil
}

func validateCreateRequest(req *CreateReservationRequest) (pickup, dropoff time.Time, err error) {
	ve := domain.NewValidationError()

	pickup, perr := domain.ParseDay(req.PickupDate)
	if perr != nil {
		ve.Add("pickup_date", perr.Error())
	}
	dropoff, derr := domain.ParseDay(req.DropoffDate)
	if derr != nil {
		ve.Add("dropoff_date", derr.Error())
	}
	if perr == nil && derr == nil {
		if !dropoff.After(pickup) {
			ve.Add("dropoff_date", "must be after pickup date")
		} else if domain.DaysBetween(pickup, dropoff) < MinRentalDays {
			ve.Add("dropoff_date", fmt.Sprintf("rental must be at least %d days", MinRentalDays))
		}
	}

	if req.PaymentPercentage != 30 && req.PaymentPercentage != 100 {
		ve.Add("payment_percentage", "must be 30 or 100")
	}
	// The gateway accounts in millimes; only TND is convertible.
	if req.Currency != "TND" {
		ve.Add("currency", "only TND is supported")
	}
	if req.VehicleID <= 0 {
		ve.Add("vehicle_id", "required")
	}
	if req.MatriculationID <= 0 {
		ve.Add("matriculation_id", "required")
	}

	if req.RenterID <= 0 {
		if req.FirstName == "" {
			ve.Add("first_name", "required")
		}
		if req.LastName == "" {
			ve.Add("last_name", "required")
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			ve.Add("email", "provide a valid email")
		}
		if req.LicenseNumber == "" {
			ve.Add("license_number", "required")
		}
		// Documents are only mandatory for renters we have never seen;
		// that check happens after the license lookup, but the readers
		// must be present to even attempt a first registration.
		if req.IdentityDoc == nil {
			ve.Add("identity_doc", "identity document upload required for new renters")
		}
		if req.LicenseDoc == nil {
			ve.Add("license_doc", "license document upload required for new renters")
		}
	}

	if ve.HasErrors() {
		return time.Time{}, time.Time{}, ve
	}
	return pickup, dropoff, nil
}
