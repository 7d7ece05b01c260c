package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"carthago-travel-backend/internal/config"
	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/jobs"
	"carthago-travel-backend/internal/logger"
	"carthago-travel-backend/internal/security"
	"carthago-travel-backend/internal/service"
	"carthago-travel-backend/internal/storage"
)

// AdminHandler serves the back-office endpoints
type AdminHandler struct {
	admin        config.AdminConfig
	tokens       security.TokenManager
	sessionTTL   time.Duration
	vehicles     service.VehicleService
	reservations service.ReservationService
	jobRunner    *jobs.JobRunner
	docs         *storage.DocumentStore
}

func NewAdminHandler(
	admin config.AdminConfig,
	tokens security.TokenManager,
	sessionTTL time.Duration,
	vehicles service.VehicleService,
	reservations service.ReservationService,
	jobRunner *jobs.JobRunner,
	docs *storage.DocumentStore,
) *AdminHandler {
	return &AdminHandler{
		admin:        admin,
		tokens:       tokens,
		sessionTTL:   sessionTTL,
		vehicles:     vehicles,
		reservations: reservations,
		jobRunner:    jobRunner,
		docs:         docs,
	}
}

// Login handles POST /api/v1/admin/login and sets the session cookie
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ve := domain.NewValidationError()
		ve.Add("body", "expected a JSON object")
		writeError(w, ve)
		return
	}

	emailOK := subtle.ConstantTimeCompare([]byte(body.Email), []byte(h.admin.Email)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(body.Password)) == nil
	if !emailOK || !passOK {
		logger.Warn("Admin login rejected", "email", body.Email)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	token, err := h.tokens.GenerateSessionToken(body.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "authenticated"})
}

// TriggerReconciliation handles POST /api/v1/admin/jobs/reconcile. The
// sweep runs in the background; the scheduler runs the same code on its
// cron schedule.
func (h *AdminHandler) TriggerReconciliation(w http.ResponseWriter, r *http.Request) {
	go h.jobRunner.RunReconciliationSweep()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reconciliation started"})
}

// SetMatriculationStatus handles PUT /api/v1/admin/matriculations/{id}/status
func (h *AdminHandler) SetMatriculationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt32(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ve := domain.NewValidationError()
		ve.Add("body", "expected a JSON object")
		writeError(w, ve)
		return
	}

	if err := h.vehicles.SetMatriculationStatus(r.Context(), id, domain.MatriculationStatus(body.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

// UploadVehicleImage handles POST /api/v1/admin/vehicles/{id}/image
func (h *AdminHandler) UploadVehicleImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt32(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	// The vehicle must exist before an image gets a home under its id.
	if _, err := h.vehicles.GetVehicle(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		ve := domain.NewValidationError()
		ve.Add("body", "expected multipart form data")
		writeError(w, ve)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		ve := domain.NewValidationError()
		ve.Add("image", "image file required")
		writeError(w, ve)
		return
	}
	defer file.Close()

	key, err := h.docs.SaveVehicleImage(file, header.Filename, id)
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Info("Vehicle image uploaded", "vehicle_id", id, "key", key)
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// ApproveProlongation handles POST /api/v1/admin/prolongations/{id}/approve
func (h *AdminHandler) ApproveProlongation(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt32(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.reservations.ApproveProlongation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
