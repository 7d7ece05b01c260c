// Package payment talks to the external payment gateway. The gateway
// accounts in millimes (integer smallest unit); conversion from major units
// happens in the pricing package so both initiation and verification share
// one factor.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"carthago-travel-backend/internal/logger"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	// ErrUnauthorized means the API key was rejected (HTTP 401).
	ErrUnauthorized = errors.New("payment gateway: unauthorized")
	// ErrPaymentNotFound means the payment reference is unknown (HTTP 404).
	ErrPaymentNotFound = errors.New("payment gateway: payment not found")
	// ErrPaymentExpired means the payment session lapsed (HTTP 410).
	ErrPaymentExpired = errors.New("payment gateway: payment expired")
)

// GatewayError covers every other gateway failure mode.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %s failed (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// Client is an HTTP client for the gateway API. Every call is bounded by
// the underlying http.Client timeout; a hung gateway surfaces as an error,
// never as a stuck request handler.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// InitRequest carries a payment initiation.
type InitRequest struct {
	OrderID        string `json:"order_id"`
	AmountMillimes int64  `json:"amount"`
	Currency       string `json:"currency"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	SuccessURL     string `json:"success_url"`
	ErrorURL       string `json:"error_url"`
}

// InitResponse is the gateway's answer to an initiation.
type InitResponse struct {
	PaymentRef string `json:"payment_ref"`
	PayURL     string `json:"pay_url"`
}

// Details is the authoritative state of a payment as reported by the
// gateway, used to verify a confirmation callback.
type Details struct {
	Status         Status `json:"status"`
	AmountMillimes int64  `json:"amount"`
	OrderID        string `json:"order_id"`
	PayerEmail     string `json:"payer_email"`
	PayerPhone     string `json:"payer_phone"`
}

// InitPayment registers a payment intent and returns the redirect URL the
// client must be sent to.
func (c *Client) InitPayment(ctx context.Context, req *InitRequest) (*InitResponse, error) {
	logger.ExternalServiceCall("payment-gateway", "init-payment", "order_id", req.OrderID, "amount", req.AmountMillimes)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: encode init request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments/init-payment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment gateway: build init request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.ExternalServiceResult("payment-gateway", "init-payment", err)
		return nil, &GatewayError{Op: "init-payment", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GatewayError{Op: "init-payment", StatusCode: resp.StatusCode, Message: readErrorBody(resp.Body)}
	}

	var out InitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &GatewayError{Op: "init-payment", StatusCode: resp.StatusCode, Message: "undecodable response"}
	}
	if out.PayURL == "" {
		return nil, &GatewayError{Op: "init-payment", StatusCode: resp.StatusCode, Message: "response missing pay_url"}
	}

	logger.ExternalServiceResult("payment-gateway", "init-payment", nil, "payment_ref", out.PaymentRef)
	return &out, nil
}

// GetPayment fetches the authoritative payment state for a reference.
func (c *Client) GetPayment(ctx context.Context, paymentRef string) (*Details, error) {
	logger.ExternalServiceCall("payment-gateway", "get-payment", "payment_ref", paymentRef)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+paymentRef, nil)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: build status request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.ExternalServiceResult("payment-gateway", "get-payment", err)
		return nil, &GatewayError{Op: "get-payment", Message: err.Error()}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrPaymentNotFound
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusGone:
		return nil, ErrPaymentExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GatewayError{Op: "get-payment", StatusCode: resp.StatusCode, Message: readErrorBody(resp.Body)}
	}

	var out Details
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &GatewayError{Op: "get-payment", StatusCode: resp.StatusCode, Message: "undecodable response"}
	}

	logger.ExternalServiceResult("payment-gateway", "get-payment", nil, "status", out.Status)
	return &out, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(b) == 0 {
		return "no response body"
	}
	return string(b)
}
