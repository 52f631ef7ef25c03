package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/repository"
	"github.com/communityportal/backend/internal/validation"
	pkgstripe "github.com/communityportal/backend/pkg/stripe"
)

// ---------------------------------------------------------------------------
// memDonationRepo is an in-memory DonationRepository.
// ---------------------------------------------------------------------------

type memDonationRepo struct {
	mu        sync.Mutex
	rows      []*model.Donation
	createErr error
	updateErr error
}

func (r *memDonationRepo) Create(_ context.Context, d *model.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if d.IdempotencyKey != nil {
		for _, row := range r.rows {
			if row.IdempotencyKey != nil && *row.IdempotencyKey == *d.IdempotencyKey {
				return repository.ErrDuplicate
			}
		}
	}
	d.ID = int64(len(r.rows) + 1)
	d.CreatedAt = time.Now()
	d.StripePaymentID = nil
	cp := *d
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memDonationRepo) UpdateStripeID(_ context.Context, id int64, ref string) (*model.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	for _, row := range r.rows {
		if row.ID == id {
			row.StripePaymentID = &ref
			cp := *row
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memDonationRepo) GetByID(_ context.Context, id int64) (*model.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memDonationRepo) GetByIdempotencyKey(_ context.Context, key string) (*model.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.IdempotencyKey != nil && *row.IdempotencyKey == key {
			cp := *row
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memDonationRepo) List(_ context.Context) ([]*model.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Donation, 0, len(r.rows))
	for i := len(r.rows) - 1; i >= 0; i-- {
		out = append(out, r.rows[i])
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// mockProvider is a function-field PaymentProvider.
// ---------------------------------------------------------------------------

type mockProvider struct {
	createFunc   func(ctx context.Context, params pkgstripe.PaymentIntentParams) (*pkgstripe.PaymentIntent, error)
	retrieveFunc func(ctx context.Context, id string) (*pkgstripe.PaymentIntent, error)
	createCalls  int
}

func (m *mockProvider) CreatePaymentIntent(ctx context.Context, params pkgstripe.PaymentIntentParams) (*pkgstripe.PaymentIntent, error) {
	m.createCalls++
	if m.createFunc != nil {
		return m.createFunc(ctx, params)
	}
	return &pkgstripe.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (m *mockProvider) RetrievePaymentIntent(ctx context.Context, id string) (*pkgstripe.PaymentIntent, error) {
	if m.retrieveFunc != nil {
		return m.retrieveFunc(ctx, id)
	}
	return &pkgstripe.PaymentIntent{ID: id, ClientSecret: id + "_secret"}, nil
}

func ahmedDonation() validation.DonationInput {
	form := validation.DonationForm{
		PredefinedAmount: "50",
		DonorDetails: validation.DonorDetails{
			DonorName:  "Ahmed",
			DonorEmail: "ahmed@example.com",
			Frequency:  model.FrequencyOneTime,
		},
	}
	in, err := form.Resolve()
	if err != nil {
		panic(err)
	}
	return in
}

const testKey = "3f1c2b9e-6a0d-4c1e-9a57-2b0f3d8e4c11"

// ---------------------------------------------------------------------------
// Tests: development fallback
// ---------------------------------------------------------------------------

func TestDonationService_DevFallback_Ahmed(t *testing.T) {
	repo := &memDonationRepo{}
	svc := NewDonationService(repo, nil, "usd")

	res, err := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dev, ok := res.(model.DevFallback)
	if !ok {
		t.Fatalf("expected DevFallback, got %T", res)
	}
	if !strings.HasPrefix(dev.MockPaymentID, "dev_") {
		t.Errorf("expected dev_ prefix, got %q", dev.MockPaymentID)
	}

	stored, _ := repo.GetByID(context.Background(), dev.DonationID)
	if stored.Amount != 5000 {
		t.Errorf("expected amount 5000, got %d", stored.Amount)
	}
	if stored.StripePaymentID == nil || *stored.StripePaymentID != dev.MockPaymentID {
		t.Errorf("expected stored ref %q, got %v", dev.MockPaymentID, stored.StripePaymentID)
	}
}

func TestDonationService_DevFallback_MockIDFormat(t *testing.T) {
	repo := &memDonationRepo{}
	svc := NewDonationService(repo, nil, "usd").(*donationService)
	svc.now = func() time.Time { return time.UnixMilli(1718000000123) }
	svc.intn = func(int) int { return 999 }

	res, err := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.(model.DevFallback).MockPaymentID; got != "dev_1718000000123_999" {
		t.Errorf("unexpected mock id %q", got)
	}
}

func TestDonationService_Unconfigured_NeverReturnsClientSecret(t *testing.T) {
	svc := NewDonationService(&memDonationRepo{}, nil, "usd")
	for i := 0; i < 5; i++ {
		res, err := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := res.(model.IntentIssued); ok {
			t.Fatal("unconfigured provider must not issue a client secret")
		}
	}
}

func TestDonationService_WithoutKey_CreatesNewRowEachCall(t *testing.T) {
	repo := &memDonationRepo{}
	svc := NewDonationService(repo, nil, "usd")
	for i := 0; i < 3; i++ {
		if _, err := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(repo.rows) != 3 {
		t.Errorf("expected 3 rows, got %d", len(repo.rows))
	}
}

// ---------------------------------------------------------------------------
// Tests: provider configured
// ---------------------------------------------------------------------------

func TestDonationService_IntentIssued(t *testing.T) {
	repo := &memDonationRepo{}
	var captured pkgstripe.PaymentIntentParams
	provider := &mockProvider{
		createFunc: func(_ context.Context, params pkgstripe.PaymentIntentParams) (*pkgstripe.PaymentIntent, error) {
			captured = params
			return &pkgstripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret_x"}, nil
		},
	}
	svc := NewDonationService(repo, provider, "usd")

	res, err := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	issued, ok := res.(model.IntentIssued)
	if !ok {
		t.Fatalf("expected IntentIssued, got %T", res)
	}
	if issued.ClientSecret != "pi_1_secret_x" {
		t.Errorf("unexpected client secret %q", issued.ClientSecret)
	}
	if captured.Amount != 5000 || captured.Currency != "usd" {
		t.Errorf("unexpected params %+v", captured)
	}
	if captured.Metadata["donationId"] != "1" {
		t.Errorf("expected donationId metadata 1, got %q", captured.Metadata["donationId"])
	}
	stored, _ := repo.GetByID(context.Background(), issued.DonationID)
	if stored.StripePaymentID == nil || *stored.StripePaymentID != "pi_1" {
		t.Errorf("expected pi_1 stored, got %v", stored.StripePaymentID)
	}
}

func TestDonationService_ProviderFailure_LeavesNullRef(t *testing.T) {
	repo := &memDonationRepo{}
	provider := &mockProvider{
		createFunc: func(context.Context, pkgstripe.PaymentIntentParams) (*pkgstripe.PaymentIntent, error) {
			return nil, &pkgstripe.APIError{StatusCode: 400, Message: "Your card was declined."}
		},
	}
	svc := NewDonationService(repo, provider, "usd")

	res, err := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failed, ok := res.(model.IntentFailed)
	if !ok {
		t.Fatalf("expected IntentFailed, got %T", res)
	}
	if failed.Reason != "Your card was declined." {
		t.Errorf("expected provider message, got %q", failed.Reason)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected the donation row to exist, got %d rows", len(repo.rows))
	}
	if repo.rows[0].StripePaymentID != nil {
		t.Errorf("expected null stripePaymentId, got %q", *repo.rows[0].StripePaymentID)
	}
}

func TestDonationService_ProviderTransportError_GenericReason(t *testing.T) {
	provider := &mockProvider{
		createFunc: func(context.Context, pkgstripe.PaymentIntentParams) (*pkgstripe.PaymentIntent, error) {
			return nil, errors.New("dial tcp: i/o timeout")
		},
	}
	svc := NewDonationService(&memDonationRepo{}, provider, "usd")

	res, _ := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), "")
	failed, ok := res.(model.IntentFailed)
	if !ok {
		t.Fatalf("expected IntentFailed, got %T", res)
	}
	if strings.Contains(failed.Reason, "dial tcp") {
		t.Errorf("transport details must not reach the donor: %q", failed.Reason)
	}
}

func TestDonationService_StorageFailure_ReturnsError(t *testing.T) {
	repo := &memDonationRepo{createErr: errors.New("connection refused")}
	provider := &mockProvider{}
	svc := NewDonationService(repo, provider, "usd")

	res, err := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if res != nil {
		t.Errorf("expected no result, got %T", res)
	}
	if provider.createCalls != 0 {
		t.Error("provider must not be called when the donation cannot be recorded")
	}
}

func TestDonationService_InvalidInput(t *testing.T) {
	svc := NewDonationService(&memDonationRepo{}, nil, "usd")
	in := ahmedDonation()
	in.Amount = 0

	_, err := svc.CreatePaymentIntent(context.Background(), in, "")
	var vErr *validation.Error
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *validation.Error, got %v", err)
	}
	if vErr.Field("amount") == "" {
		t.Errorf("expected amount error, got %v", vErr)
	}
}

// ---------------------------------------------------------------------------
// Tests: idempotency
// ---------------------------------------------------------------------------

func TestDonationService_Idempotency_InvalidKey(t *testing.T) {
	svc := NewDonationService(&memDonationRepo{}, nil, "usd")
	_, err := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), "not-a-uuid")
	var vErr *validation.Error
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *validation.Error, got %v", err)
	}
}

func TestDonationService_Idempotency_DevReplay(t *testing.T) {
	repo := &memDonationRepo{}
	svc := NewDonationService(repo, nil, "usd")
	ctx := context.Background()

	first, err := svc.CreatePaymentIntent(ctx, ahmedDonation(), testKey)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.CreatePaymentIntent(ctx, ahmedDonation(), testKey)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first != second {
		t.Errorf("expected identical outcome, got %+v and %+v", first, second)
	}
	if len(repo.rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(repo.rows))
	}
}

func TestDonationService_Idempotency_IssuedReplayRetrievesIntent(t *testing.T) {
	repo := &memDonationRepo{}
	var retrieved string
	provider := &mockProvider{
		createFunc: func(_ context.Context, params pkgstripe.PaymentIntentParams) (*pkgstripe.PaymentIntent, error) {
			if !strings.HasSuffix(params.IdempotencyKey, testKey) {
				t.Errorf("expected key forwarded, got %q", params.IdempotencyKey)
			}
			return &pkgstripe.PaymentIntent{ID: "pi_7", ClientSecret: "pi_7_secret"}, nil
		},
		retrieveFunc: func(_ context.Context, id string) (*pkgstripe.PaymentIntent, error) {
			retrieved = id
			return &pkgstripe.PaymentIntent{ID: id, ClientSecret: "pi_7_secret"}, nil
		},
	}
	svc := NewDonationService(repo, provider, "usd")
	ctx := context.Background()

	if _, err := svc.CreatePaymentIntent(ctx, ahmedDonation(), testKey); err != nil {
		t.Fatalf("first call: %v", err)
	}
	res, err := svc.CreatePaymentIntent(ctx, ahmedDonation(), testKey)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	issued, ok := res.(model.IntentIssued)
	if !ok || issued.ClientSecret != "pi_7_secret" {
		t.Fatalf("expected IntentIssued with secret, got %+v", res)
	}
	if retrieved != "pi_7" {
		t.Errorf("expected pi_7 retrieved, got %q", retrieved)
	}
	if provider.createCalls != 1 {
		t.Errorf("expected one intent creation, got %d", provider.createCalls)
	}
}

func TestDonationService_Idempotency_RetriesAfterFailure(t *testing.T) {
	repo := &memDonationRepo{}
	fail := true
	provider := &mockProvider{
		createFunc: func(context.Context, pkgstripe.PaymentIntentParams) (*pkgstripe.PaymentIntent, error) {
			if fail {
				return nil, &pkgstripe.APIError{Message: "rate limited"}
			}
			return &pkgstripe.PaymentIntent{ID: "pi_9", ClientSecret: "pi_9_secret"}, nil
		},
	}
	svc := NewDonationService(repo, provider, "usd")
	ctx := context.Background()

	res, _ := svc.CreatePaymentIntent(ctx, ahmedDonation(), testKey)
	if _, ok := res.(model.IntentFailed); !ok {
		t.Fatalf("expected IntentFailed, got %T", res)
	}

	fail = false
	res, err := svc.CreatePaymentIntent(ctx, ahmedDonation(), testKey)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	issued, ok := res.(model.IntentIssued)
	if !ok {
		t.Fatalf("expected IntentIssued on retry, got %T", res)
	}
	if issued.DonationID != 1 || len(repo.rows) != 1 {
		t.Errorf("expected retry against the same row, rows=%d id=%d", len(repo.rows), issued.DonationID)
	}
}

func TestDonationService_Idempotency_Conflict(t *testing.T) {
	svc := NewDonationService(&memDonationRepo{}, nil, "usd")
	ctx := context.Background()

	if _, err := svc.CreatePaymentIntent(ctx, ahmedDonation(), testKey); err != nil {
		t.Fatalf("first call: %v", err)
	}
	other := ahmedDonation()
	other.Amount = 2500
	if _, err := svc.CreatePaymentIntent(ctx, other, testKey); !errors.Is(err, ErrIdempotencyConflict) {
		t.Errorf("expected ErrIdempotencyConflict, got %v", err)
	}
}

func TestDonationService_Idempotency_ChangedDetailsAfterFailure(t *testing.T) {
	tests := []struct {
		name   string
		change func(*validation.DonationInput)
	}{
		{"anonymous", func(in *validation.DonationInput) { in.Anonymous = true }},
		{"frequency", func(in *validation.DonationInput) { in.Frequency = model.FrequencyMonthly }},
		{"name", func(in *validation.DonationInput) { in.DonorName = "Ahmed R." }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memDonationRepo{}
			provider := &mockProvider{
				createFunc: func(context.Context, pkgstripe.PaymentIntentParams) (*pkgstripe.PaymentIntent, error) {
					return nil, &pkgstripe.APIError{Message: "rate limited"}
				},
			}
			svc := NewDonationService(repo, provider, "usd")
			ctx := context.Background()

			if _, err := svc.CreatePaymentIntent(ctx, ahmedDonation(), testKey); err != nil {
				t.Fatalf("first call: %v", err)
			}
			changed := ahmedDonation()
			tt.change(&changed)
			if _, err := svc.CreatePaymentIntent(ctx, changed, testKey); !errors.Is(err, ErrIdempotencyConflict) {
				t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
			}
			if provider.createCalls != 1 {
				t.Errorf("conflicting retry must not reach the provider, calls=%d", provider.createCalls)
			}
			row := repo.rows[0]
			if row.Anonymous || row.Frequency != model.FrequencyOneTime || row.DonorName != "Ahmed" {
				t.Errorf("stored row changed: %+v", row)
			}
		})
	}
}

// raceRepo simulates a concurrent insert winning between lookup and create.
type raceRepo struct {
	*memDonationRepo
	lookups int
}

func (r *raceRepo) GetByIdempotencyKey(ctx context.Context, key string) (*model.Donation, error) {
	r.lookups++
	if r.lookups == 1 {
		// 先行リクエストがこの直後に行を作成する
		winner := &model.Donation{Amount: 5000, DonorName: "Ahmed", DonorEmail: "ahmed@example.com", Frequency: "one-time", IdempotencyKey: &key}
		_ = r.memDonationRepo.Create(ctx, winner)
		_, _ = r.memDonationRepo.UpdateStripeID(ctx, winner.ID, "dev_1_1")
		return nil, repository.ErrNotFound
	}
	return r.memDonationRepo.GetByIdempotencyKey(ctx, key)
}

func TestDonationService_Idempotency_ConcurrentDuplicate(t *testing.T) {
	repo := &raceRepo{memDonationRepo: &memDonationRepo{}}
	svc := NewDonationService(repo, nil, "usd")

	res, err := svc.CreatePaymentIntent(context.Background(), ahmedDonation(), testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dev, ok := res.(model.DevFallback)
	if !ok || dev.MockPaymentID != "dev_1_1" {
		t.Errorf("expected the winner's outcome, got %+v", res)
	}
	if len(repo.rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(repo.rows))
	}
}
