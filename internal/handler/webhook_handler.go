package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/communityportal/backend/internal/service"
	pkgstripe "github.com/communityportal/backend/pkg/stripe"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives payment provider events.
type WebhookHandler struct {
	reconcileService service.ReconcileService
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(reconcileService service.ReconcileService) *WebhookHandler {
	return &WebhookHandler{reconcileService: reconcileService}
}

// Stripe handles POST /api/webhooks/stripe.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	err = h.reconcileService.ProcessWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, pkgstripe.ErrNotConfigured):
		writeMessage(w, http.StatusServiceUnavailable, "webhooks are not configured")
	case errors.Is(err, service.ErrInvalidSignature):
		slog.Warn("webhook rejected", "error", err)
		writeMessage(w, http.StatusBadRequest, "invalid signature")
	default:
		writeError(w, r, err, "Failed to process webhook")
	}
}
