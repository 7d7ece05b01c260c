package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/logger"
	"carthago-travel-backend/internal/payment"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.Error("Failed to encode response", "error", err)
		}
	}
}

// writeError maps domain errors onto HTTP status codes. Unclassified
// errors become a 500 without leaking internals to the client.
func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid input", Fields: ve.Fields})
		return
	}

	var ge *payment.GatewayError
	if errors.As(err, &ge) {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "payment gateway unavailable"})
		return
	}

	switch {
	case errors.Is(err, domain.ErrAmountMismatch):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, payment.ErrPaymentNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, payment.ErrPaymentExpired):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, payment.ErrUnauthorized):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "payment gateway rejected credentials"})
	default:
		logger.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
