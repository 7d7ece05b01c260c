package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/service"
)

// maxUploadBytes bounds the whole multipart booking payload, both
// document uploads included.
const maxUploadBytes = 16 << 20

// ReservationHandler serves the storefront booking endpoints
type ReservationHandler struct {
	reservations service.ReservationService
}

func NewReservationHandler(reservations service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// Create handles POST /api/v1/reservations. The payload is multipart so a
// first-time renter can attach identity and license documents in the same
// request that books the car.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		ve := domain.NewValidationError()
		ve.Add("body", "expected multipart form data")
		writeError(w, ve)
		return
	}

	req := &service.CreateReservationRequest{
		RenterID:          formInt32(r, "renter_id"),
		FirstName:         r.FormValue("first_name"),
		LastName:          r.FormValue("last_name"),
		Email:             r.FormValue("email"),
		Phone:             r.FormValue("phone"),
		LicenseNumber:     r.FormValue("license_number"),
		VehicleID:         formInt32(r, "vehicle_id"),
		MatriculationID:   formInt32(r, "matriculation_id"),
		PickupDate:        r.FormValue("pickup_date"),
		DropoffDate:       r.FormValue("dropoff_date"),
		PaymentPercentage: formInt32(r, "payment_percentage"),
		Currency:          r.FormValue("currency"),
	}

	if file, header, err := r.FormFile("identity_doc"); err == nil {
		defer file.Close()
		req.IdentityDoc = file
		req.IdentityDocName = header.Filename
	}
	if file, header, err := r.FormFile("license_doc"); err == nil {
		defer file.Close()
		req.LicenseDoc = file
		req.LicenseDocName = header.Filename
	}

	result, err := h.reservations.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Confirm handles GET /api/v1/reservations/confirm, the gateway redirect
// target after a successful payment.
func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	paymentRef := q.Get("payment_ref")
	orderID := q.Get("orderId")
	reservationID, _ := strconv.ParseInt(q.Get("reservation_id"), 10, 32)

	if paymentRef == "" || orderID == "" || reservationID <= 0 {
		ve := domain.NewValidationError()
		if paymentRef == "" {
			ve.Add("payment_ref", "required")
		}
		if orderID == "" {
			ve.Add("orderId", "required")
		}
		if reservationID <= 0 {
			ve.Add("reservation_id", "required")
		}
		writeError(w, ve)
		return
	}

	result, err := h.reservations.Confirm(r.Context(), paymentRef, orderID, int32(reservationID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RequestProlongation handles POST /api/v1/reservations/{id}/prolongations
func (h *ReservationHandler) RequestProlongation(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt32(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		NewDropoffDate string `json:"new_dropoff_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ve := domain.NewValidationError()
		ve.Add("body", "expected a JSON object")
		writeError(w, ve)
		return
	}

	req, err := h.reservations.RequestProlongation(r.Context(), id, body.NewDropoffDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func formInt32(r *http.Request, field string) int32 {
	v, _ := strconv.ParseInt(r.FormValue(field), 10, 32)
	return int32(v)
}

func pathInt32(r *http.Request, name string) (int32, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 32)
	if err != nil || v <= 0 {
		ve := domain.NewValidationError()
		ve.Add(name, "must be a positive integer")
		return 0, ve
	}
	return int32(v), nil
}
