package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StripeConfig holds Stripe gateway configuration. With an empty APIKey the
// gateway runs in simulated mode: captures and refunds succeed locally
// without any network call, which is what the demo store driver uses.
type StripeConfig struct {
	APIKey  string
	BaseURL string
}

// StripeGateway captures card payments via the Stripe-compatible API
type StripeGateway struct {
	cfg    StripeConfig
	client *http.Client
	logger *logrus.Logger
}

// NewStripeGateway creates a Stripe gateway client
func NewStripeGateway(cfg StripeConfig, logger *logrus.Logger) *StripeGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	return &StripeGateway{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the backend name used for routing and reference inference
func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) simulated() bool {
	return g.cfg.APIKey == ""
}

type stripeIntentRequest struct {
	Amount      int64  `json:"amount"` // minor units
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Confirm     bool   `json:"confirm"`
}

type stripeIntentResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Capture charges the customer and returns a reference with the "pi_" prefix
func (g *StripeGateway) Capture(ctx context.Context, req *Request) (*Outcome, error) {
	if g.simulated() {
		ref := "pi_" + uuid.NewString()
		g.logger.WithFields(logrus.Fields{
			"gateway":    g.Name(),
			"booking_id": req.BookingID,
			"amount":     req.Amount,
			"mode":       "simulated",
		}).Info("Payment captured")
		return Succeeded(ref, "payment captured via stripe"), nil
	}

	body := stripeIntentRequest{
		Amount:      int64(req.Amount * 100),
		Currency:    req.Currency,
		Description: req.Description,
		Confirm:     true,
	}
	var resp stripeIntentResponse
	if err := g.post(ctx, "/v1/payment_intents", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "succeeded" {
		return Declined(fmt.Sprintf("stripe declined payment: %s", resp.Message)), nil
	}
	return Succeeded(resp.ID, "payment captured via stripe"), nil
}

type stripeRefundRequest struct {
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason,omitempty"`
}

// Refund reverses a previous capture identified by its payment reference
func (g *StripeGateway) Refund(ctx context.Context, req *RefundRequest) (*Outcome, error) {
	if g.simulated() {
		ref := "re_" + uuid.NewString()
		g.logger.WithFields(logrus.Fields{
			"gateway":      g.Name(),
			"original_ref": req.OriginalReference,
			"amount":       req.Amount,
			"mode":         "simulated",
		}).Info("Refund processed")
		return Succeeded(ref, "refund processed via stripe"), nil
	}

	body := stripeRefundRequest{
		PaymentIntent: req.OriginalReference,
		Amount:        int64(req.Amount * 100),
		Reason:        req.Reason,
	}
	var resp stripeIntentResponse
	if err := g.post(ctx, "/v1/refunds", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "succeeded" {
		return Declined(fmt.Sprintf("stripe refund failed: %s", resp.Message)), nil
	}
	return Succeeded(resp.ID, "refund processed via stripe"), nil
}

// ProbeHealth checks whether the gateway is reachable
func (g *StripeGateway) ProbeHealth(ctx context.Context) bool {
	if g.simulated() {
		return true
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/healthcheck", nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func (g *StripeGateway) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("stripe returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse stripe response: %w", err)
	}
	return nil
}
