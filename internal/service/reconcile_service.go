package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/repository"
	pkgstripe "github.com/communityportal/backend/pkg/stripe"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Webhook event types recorded as payment events.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// WebhookVerifier は Webhook の検証とパースを行うミニマムインターフェース
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, sigHeader string) error
	ParseWebhookEvent(payload []byte) (pkgstripe.WebhookEvent, error)
}

// ReconcileService records provider webhook events against donations.
// Donation rows are never modified here.
type ReconcileService interface {
	// ProcessWebhook verifies and records one webhook delivery. Unhandled
	// event types and redeliveries are accepted without effect.
	// pkgstripe.ErrNotConfigured is returned when no webhook secret is set.
	ProcessWebhook(ctx context.Context, payload []byte, sigHeader string) error
	// Events returns the recorded events for a donation, most recent first.
	Events(ctx context.Context, donationID int64) ([]*model.PaymentEvent, error)
}

type reconcileService struct {
	verifier  WebhookVerifier
	donations repository.DonationRepository
	events    repository.PaymentEventRepository
}

// NewReconcileService creates a ReconcileService.
func NewReconcileService(verifier WebhookVerifier, donations repository.DonationRepository, events repository.PaymentEventRepository) ReconcileService {
	return &reconcileService{verifier: verifier, donations: donations, events: events}
}

func (s *reconcileService) ProcessWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if err := s.verifier.VerifyWebhookSignature(payload, sigHeader); err != nil {
		if errors.Is(err, pkgstripe.ErrNotConfigured) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	event, err := s.verifier.ParseWebhookEvent(payload)
	if err != nil {
		return fmt.Errorf("%w: malformed payload: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case EventPaymentSucceeded, EventPaymentFailed, EventPaymentCanceled:
		return s.record(ctx, event)
	}
	slog.Debug("webhook event ignored", "event_id", event.ID, "type", event.Type)
	return nil
}

func (s *reconcileService) record(ctx context.Context, event pkgstripe.WebhookEvent) error {
	obj := event.Data.Object
	donationID, err := s.donationID(ctx, obj)
	if err != nil {
		return err
	}
	e := &model.PaymentEvent{
		StripeEventID:   event.ID,
		Type:            event.Type,
		PaymentIntentID: obj.ID,
		Amount:          obj.Amount,
		DonationID:      donationID,
	}
	if err := s.events.Create(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			slog.Info("webhook event already recorded", "event_id", event.ID)
			return nil
		}
		return fmt.Errorf("record payment event: %w", err)
	}
	slog.Info("payment event recorded", "event_id", event.ID, "type", event.Type, "payment_intent_id", obj.ID)
	return nil
}

// donationID resolves the donationId metadata to an existing donation.
// Only a missing donation yields an unlinked event; lookup failures are
// returned so the provider redelivers.
func (s *reconcileService) donationID(ctx context.Context, obj pkgstripe.WebhookEventObject) (*int64, error) {
	raw := obj.Metadata["donationId"]
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("webhook donationId metadata is not numeric", "payment_intent_id", obj.ID, "donation_id", raw)
		return nil, nil
	}
	if _, err := s.donations.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("webhook references unknown donation", "payment_intent_id", obj.ID, "donation_id", id)
			return nil, nil
		}
		return nil, fmt.Errorf("lookup donation %d: %w", id, err)
	}
	return &id, nil
}

func (s *reconcileService) Events(ctx context.Context, donationID int64) ([]*model.PaymentEvent, error) {
	return s.events.ListByDonation(ctx, donationID)
}
