package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/repository"
	"github.com/communityportal/backend/internal/validation"
	pkgstripe "github.com/communityportal/backend/pkg/stripe"
	"github.com/google/uuid"
)

// MockPaymentPrefix marks payment references recorded without a provider.
const MockPaymentPrefix = "dev_"

// ErrIdempotencyConflict is returned when an idempotency key is reused for a
// different donation.
var ErrIdempotencyConflict = errors.New("idempotency key already used for a different donation")

// PaymentProvider creates and looks up payment intents.
type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, params pkgstripe.PaymentIntentParams) (*pkgstripe.PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*pkgstripe.PaymentIntent, error)
}

// DonationService records donations and obtains a payment intent for each.
type DonationService interface {
	// CreatePaymentIntent persists the donation and returns one of
	// model.IntentIssued, model.DevFallback or model.IntentFailed. A non-nil
	// error means validation or storage failed and no variant applies.
	// idempotencyKey is optional; when set it must be a UUID.
	CreatePaymentIntent(ctx context.Context, in validation.DonationInput, idempotencyKey string) (model.IntentResult, error)
	// List returns every donation, most recent first.
	List(ctx context.Context) ([]*model.Donation, error)
}

type donationService struct {
	repo     repository.DonationRepository
	provider PaymentProvider // nil = development fallback
	currency string
	now      func() time.Time
	intn     func(n int) int
}

// NewDonationService creates a DonationService. provider can be nil, in which
// case every donation gets a mock payment reference instead of an intent.
func NewDonationService(repo repository.DonationRepository, provider PaymentProvider, currency string) DonationService {
	if currency == "" {
		currency = "usd"
	}
	return &donationService{
		repo:     repo,
		provider: provider,
		currency: currency,
		now:      time.Now,
		intn:     rand.IntN,
	}
}

func (s *donationService) CreatePaymentIntent(ctx context.Context, in validation.DonationInput, idempotencyKey string) (model.IntentResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	d := in.Donation()

	if idempotencyKey != "" {
		if _, err := uuid.Parse(idempotencyKey); err != nil {
			return nil, validation.NewFieldError("Idempotency-Key", "must be a UUID")
		}
		d.IdempotencyKey = &idempotencyKey

		existing, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
		switch {
		case err == nil:
			return s.replay(ctx, existing, d)
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	if err := s.repo.Create(ctx, d); err != nil {
		if idempotencyKey != "" && errors.Is(err, repository.ErrDuplicate) {
			// 同じキーの並行リクエストが先に作成した
			existing, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
			if err != nil {
				return nil, fmt.Errorf("lookup idempotency key: %w", err)
			}
			return s.replay(ctx, existing, d)
		}
		return nil, fmt.Errorf("record donation: %w", err)
	}
	slog.Info("donation recorded", "donation_id", d.ID, "amount", d.Amount, "frequency", d.Frequency)

	return s.attach(ctx, d)
}

// attach obtains a payment reference for a recorded donation without one.
func (s *donationService) attach(ctx context.Context, d *model.Donation) (model.IntentResult, error) {
	if s.provider == nil {
		mockID := s.mockPaymentID()
		if _, err := s.repo.UpdateStripeID(ctx, d.ID, mockID); err != nil {
			return nil, fmt.Errorf("record mock payment id: %w", err)
		}
		slog.Info("development mode: mock payment recorded", "donation_id", d.ID, "mock_payment_id", mockID)
		return model.DevFallback{DonationID: d.ID, MockPaymentID: mockID}, nil
	}

	params := pkgstripe.PaymentIntentParams{
		Amount:   d.Amount,
		Currency: s.currency,
		Metadata: map[string]string{"donationId": strconv.FormatInt(d.ID, 10)},
	}
	if d.IdempotencyKey != nil {
		params.IdempotencyKey = fmt.Sprintf("donation-%d-%s", d.ID, *d.IdempotencyKey)
	}

	pi, err := s.provider.CreatePaymentIntent(ctx, params)
	if err != nil {
		slog.Warn("payment intent creation failed", "donation_id", d.ID, "error", err)
		return model.IntentFailed{DonationID: d.ID, Reason: providerReason(err)}, nil
	}
	if _, err := s.repo.UpdateStripeID(ctx, d.ID, pi.ID); err != nil {
		return nil, fmt.Errorf("record payment intent id: %w", err)
	}
	slog.Info("payment intent created", "donation_id", d.ID, "payment_intent_id", pi.ID)
	return model.IntentIssued{DonationID: d.ID, ClientSecret: pi.ClientSecret}, nil
}

// replay returns the outcome for a donation already recorded under the same
// idempotency key.
func (s *donationService) replay(ctx context.Context, existing, requested *model.Donation) (model.IntentResult, error) {
	if !sameDonation(existing, requested) {
		return nil, ErrIdempotencyConflict
	}
	slog.Info("idempotent replay", "donation_id", existing.ID)

	if !existing.HasPaymentRef() {
		// 前回は決済プロバイダーが失敗した。同じ行で再試行する
		return s.attach(ctx, existing)
	}
	ref := *existing.StripePaymentID
	if strings.HasPrefix(ref, MockPaymentPrefix) {
		return model.DevFallback{DonationID: existing.ID, MockPaymentID: ref}, nil
	}
	if s.provider == nil {
		return model.IntentFailed{DonationID: existing.ID, Reason: "Payment provider is not configured"}, nil
	}
	pi, err := s.provider.RetrievePaymentIntent(ctx, ref)
	if err != nil {
		slog.Warn("payment intent retrieval failed", "donation_id", existing.ID, "payment_intent_id", ref, "error", err)
		return model.IntentFailed{DonationID: existing.ID, Reason: providerReason(err)}, nil
	}
	return model.IntentIssued{DonationID: existing.ID, ClientSecret: pi.ClientSecret}, nil
}

// sameDonation reports whether two records carry the same donor-supplied fields.
func sameDonation(a, b *model.Donation) bool {
	return a.Amount == b.Amount &&
		a.DonorName == b.DonorName &&
		strings.EqualFold(a.DonorEmail, b.DonorEmail) &&
		a.Anonymous == b.Anonymous &&
		a.Frequency == b.Frequency
}

func (s *donationService) mockPaymentID() string {
	return fmt.Sprintf("%s%d_%d", MockPaymentPrefix, s.now().UnixMilli(), s.intn(1000))
}

// providerReason is the message shown to the donor when the provider fails.
func providerReason(err error) string {
	var apiErr *pkgstripe.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Payment provider is unavailable. Please try again later."
}

func (s *donationService) List(ctx context.Context) ([]*model.Donation, error) {
	return s.repo.List(ctx)
}
