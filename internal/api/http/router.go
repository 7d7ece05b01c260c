// Package http provides the REST API for the storefront and the admin
// back office.
package http

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"carthago-travel-backend/internal/security"
)

// RouterDeps collects everything the router needs wired in
type RouterDeps struct {
	DB           *sql.DB
	Tokens       security.TokenManager
	Reservations *ReservationHandler
	Vehicles     *VehicleHandler
	Admin        *AdminHandler
}

// NewRouter configures all API routes with their middleware
func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.HandleFunc("/healthz", healthCheck(deps.DB)).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public storefront
	api.HandleFunc("/vehicles", deps.Vehicles.List).Methods("GET")
	api.HandleFunc("/vehicles/{id}", deps.Vehicles.Get).Methods("GET")
	api.HandleFunc("/matriculations/{id}/availability", deps.Vehicles.Availability).Methods("GET")
	api.HandleFunc("/reservations", deps.Reservations.Create).Methods("POST")
	api.HandleFunc("/reservations/confirm", deps.Reservations.Confirm).Methods("GET")
	api.HandleFunc("/reservations/{id}/prolongations", deps.Reservations.RequestProlongation).Methods("POST")

	// Back office
	api.HandleFunc("/admin/login", deps.Admin.Login).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(adminAuthMiddleware(deps.Tokens))
	admin.HandleFunc("/jobs/reconcile", deps.Admin.TriggerReconciliation).Methods("POST")
	admin.HandleFunc("/matriculations/{id}/status", deps.Admin.SetMatriculationStatus).Methods("PUT")
	admin.HandleFunc("/vehicles/{id}/image", deps.Admin.UploadVehicleImage).Methods("POST")
	admin.HandleFunc("/prolongations/{id}/approve", deps.Admin.ApproveProlongation).Methods("POST")

	return r
}

func healthCheck(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
