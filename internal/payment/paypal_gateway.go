package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PayPalConfig holds PayPal gateway configuration. Leaving ClientID empty
// switches the gateway to simulated mode.
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// PayPalGateway captures wallet payments via the PayPal-compatible API.
// Access tokens are cached until shortly before expiry.
type PayPalGateway struct {
	cfg    PayPalConfig
	client *http.Client
	logger *logrus.Logger

	tokenMu     sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewPayPalGateway creates a PayPal gateway client
func NewPayPalGateway(cfg PayPalConfig, logger *logrus.Logger) *PayPalGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-m.paypal.com"
	}
	return &PayPalGateway{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the backend name used for routing and reference inference
func (g *PayPalGateway) Name() string {
	return "paypal"
}

func (g *PayPalGateway) simulated() bool {
	return g.cfg.ClientID == ""
}

type paypalOrderResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Capture charges the customer and returns a reference with the "PAYID-" prefix
func (g *PayPalGateway) Capture(ctx context.Context, req *Request) (*Outcome, error) {
	if g.simulated() {
		ref := "PAYID-" + strings.ToUpper(uuid.NewString()[:18])
		g.logger.WithFields(logrus.Fields{
			"gateway":    g.Name(),
			"booking_id": req.BookingID,
			"amount":     req.Amount,
			"mode":       "simulated",
		}).Info("Payment captured")
		return Succeeded(ref, "payment captured via paypal"), nil
	}

	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"amount": map[string]string{
				"currency_code": req.Currency,
				"value":         fmt.Sprintf("%.2f", req.Amount),
			},
			"description": req.Description,
		}},
	}
	var resp paypalOrderResponse
	if err := g.post(ctx, "/v2/checkout/orders", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "COMPLETED" {
		return Declined(fmt.Sprintf("paypal declined payment: %s", resp.Message)), nil
	}
	return Succeeded(resp.ID, "payment captured via paypal"), nil
}

// Refund reverses a previous capture identified by its payment reference
func (g *PayPalGateway) Refund(ctx context.Context, req *RefundRequest) (*Outcome, error) {
	if g.simulated() {
		ref := "REF-" + strings.ToUpper(uuid.NewString()[:18])
		g.logger.WithFields(logrus.Fields{
			"gateway":      g.Name(),
			"original_ref": req.OriginalReference,
			"amount":       req.Amount,
			"mode":         "simulated",
		}).Info("Refund processed")
		return Succeeded(ref, "refund processed via paypal"), nil
	}

	body := map[string]interface{}{
		"amount": map[string]string{
			"value": fmt.Sprintf("%.2f", req.Amount),
		},
		"note_to_payer": req.Reason,
	}
	var resp paypalOrderResponse
	path := fmt.Sprintf("/v2/payments/captures/%s/refund", req.OriginalReference)
	if err := g.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "COMPLETED" {
		return Declined(fmt.Sprintf("paypal refund failed: %s", resp.Message)), nil
	}
	return Succeeded(resp.ID, "refund processed via paypal"), nil
}

// ProbeHealth checks whether the gateway is reachable by refreshing the
// access token
func (g *PayPalGateway) ProbeHealth(ctx context.Context) bool {
	if g.simulated() {
		return true
	}
	_, err := g.accessToken(ctx)
	return err == nil
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached OAuth token, refreshing it when expired
func (g *PayPalGateway) accessToken(ctx context.Context) (string, error) {
	g.tokenMu.RLock()
	if g.token != "" && time.Now().Before(g.tokenExpiry) {
		token := g.token
		g.tokenMu.RUnlock()
		return token, nil
	}
	g.tokenMu.RUnlock()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	httpReq.SetBasicAuth(g.cfg.ClientID, g.cfg.ClientSecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("paypal token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token request returned status %d", resp.StatusCode)
	}

	var tokenResp paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	g.tokenMu.Lock()
	g.token = tokenResp.AccessToken
	// Refresh a minute early to avoid using a token at the edge of expiry
	g.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)
	g.tokenMu.Unlock()

	return tokenResp.AccessToken, nil
}

func (g *PayPalGateway) post(ctx context.Context, path string, body, out interface{}) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("paypal request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read paypal response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("paypal returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse paypal response: %w", err)
	}
	return nil
}
