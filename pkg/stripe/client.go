// Package stripe provides a lightweight Stripe API client for the portal.
// Uses raw HTTP calls (no SDK) to minimize external dependencies.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIVersion is sent as the Stripe-Version header on every request.
const APIVersion = "2024-06-20"

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.stripe.com"

// webhookTolerance bounds the clock skew of a signed webhook timestamp
// in either direction.
const webhookTolerance = 5 * time.Minute

// ErrNotConfigured は Stripe が設定されていない場合のエラー
var ErrNotConfigured = errors.New("stripe: not configured")

// APIError is an error response returned by the Stripe API.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("stripe: request failed with status %d", e.StatusCode)
	}
	return "stripe: " + e.Message
}

// PaymentIntentParams are the inputs to CreatePaymentIntent.
type PaymentIntentParams struct {
	Amount   int    // minor units
	Currency string // "usd"
	// Metadata is attached to the intent and echoed back on webhooks.
	Metadata map[string]string
	// IdempotencyKey is forwarded as the Idempotency-Key header when set.
	IdempotencyKey string
}

// PaymentIntent is the subset of the PaymentIntent object the portal uses.
type PaymentIntent struct {
	ID           string            `json:"id"`
	Amount       int               `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret"`
	Metadata     map[string]string `json:"metadata"`
}

// WebhookEventObject は payment_intent の data.object
type WebhookEventObject struct {
	ID       string            `json:"id"`
	Object   string            `json:"object"`
	Amount   int               `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// WebhookEvent は Stripe Webhook のイベント
type WebhookEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Data struct {
		Object WebhookEventObject `json:"object"`
	} `json:"data"`
}

// Client は Stripe API クライアントのインターフェース
type Client interface {
	// CreatePaymentIntent creates an intent with automatic payment methods.
	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntent, error)
	// RetrievePaymentIntent fetches an existing intent, including its client secret.
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	// VerifyWebhookSignature は Stripe-Signature ヘッダーを検証する
	VerifyWebhookSignature(payload []byte, sigHeader string) error
	// ParseWebhookEvent は Webhook ペイロードをパースする
	ParseWebhookEvent(payload []byte) (WebhookEvent, error)
}

// RealClient は Stripe API への raw HTTP クライアント実装
type RealClient struct {
	SecretKey     string
	WebhookSecret string // whsec_...
	baseURL       string
	httpClient    *http.Client
}

// NewClient は RealClient を生成する
func NewClient(secretKey, webhookSecret string) *RealClient {
	return &RealClient{
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		baseURL:       DefaultBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at another API host (a test server).
func (c *RealClient) WithBaseURL(baseURL string) *RealClient {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// CreatePaymentIntent は PaymentIntent を作成する
func (c *RealClient) CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntent, error) {
	if c.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	data := url.Values{}
	data.Set("amount", strconv.Itoa(params.Amount))
	data.Set("currency", params.Currency)
	data.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range params.Metadata {
		data.Set("metadata["+k+"]", v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents",
		strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if params.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", params.IdempotencyKey)
	}

	var pi PaymentIntent
	if err := c.do(req, &pi); err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return &pi, nil
}

// RetrievePaymentIntent は既存の PaymentIntent を取得する
func (c *RealClient) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	if c.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var pi PaymentIntent
	if err := c.do(req, &pi); err != nil {
		return nil, fmt.Errorf("stripe retrieve payment intent: %w", err)
	}
	return &pi, nil
}

// do sends req with the secret key and decodes a success body into out.
// Non-2xx responses become *APIError.
func (c *RealClient) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.SecretKey, "")
	req.Header.Set("Stripe-Version", APIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error APIError `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		apiErr := errResp.Error
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// VerifyWebhookSignature は Stripe-Signature ヘッダーを HMAC-SHA256 で検証する
func (c *RealClient) VerifyWebhookSignature(payload []byte, sigHeader string) error {
	if c.WebhookSecret == "" {
		return ErrNotConfigured
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return errors.New("stripe: invalid signature header format")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.New("stripe: invalid timestamp in signature header")
	}
	age := time.Since(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > webhookTolerance {
		return errors.New("stripe: webhook timestamp outside tolerance (replay attack protection)")
	}

	expected := Sign(c.WebhookSecret, timestamp, payload)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return errors.New("stripe: signature verification failed")
}

// Sign returns the hex v1 signature for payload at timestamp.
func Sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhookEvent は Webhook ペイロードのイベントタイプと ID をパースする
func (c *RealClient) ParseWebhookEvent(payload []byte) (WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return WebhookEvent{}, err
	}
	return event, nil
}
