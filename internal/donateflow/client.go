package donateflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/validation"
)

// APIError is a non-success answer from the portal API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("portal API returned status %d", e.StatusCode)
	}
	return e.Message
}

// ClientConfig is the public configuration served by GET /api/config.
type ClientConfig struct {
	StripePublicKey string `json:"stripePublicKey"`
	Development     bool   `json:"development"`
}

// WidgetAvailable reports whether the provider widget can be rendered.
func (c ClientConfig) WidgetAvailable() bool {
	return c.StripePublicKey != ""
}

// APIClient talks to the portal API over HTTP.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates an APIClient for the server at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type intentResponse struct {
	ClientSecret  string `json:"clientSecret"`
	DonationID    int64  `json:"donationId"`
	Development   bool   `json:"development"`
	Message       string `json:"message"`
	MockPaymentID string `json:"mockPaymentId"`
}

// CreatePaymentIntent posts the donation to /api/create-payment-intent.
// A 400 answer becomes model.IntentFailed with the server's message.
func (c *APIClient) CreatePaymentIntent(ctx context.Context, in validation.DonationInput, idempotencyKey string) (model.IntentResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/create-payment-intent", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	defer resp.Body.Close()

	var out intentResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return model.IntentFailed{DonationID: out.DonationID, Reason: out.Message}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: out.Message}
	case decodeErr != nil:
		return nil, ErrUnexpectedResponse
	case out.ClientSecret != "":
		return model.IntentIssued{DonationID: out.DonationID, ClientSecret: out.ClientSecret}, nil
	case out.Development:
		return model.DevFallback{DonationID: out.DonationID, MockPaymentID: out.MockPaymentID}, nil
	}
	return nil, ErrUnexpectedResponse
}

// ClientConfig fetches GET /api/config.
func (c *APIClient) ClientConfig(ctx context.Context) (ClientConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/config", nil)
	if err != nil {
		return ClientConfig{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("fetch client config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ClientConfig{}, &APIError{StatusCode: resp.StatusCode}
	}
	var cfg ClientConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("decode client config: %w", err)
	}
	return cfg, nil
}
