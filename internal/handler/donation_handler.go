package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/service"
	"github.com/communityportal/backend/internal/validation"
)

const maxJSONBody = 64 << 10

// IdempotencyHeader carries the client's per-donation key.
const IdempotencyHeader = "Idempotency-Key"

// DonationHandler handles payment intent creation.
type DonationHandler struct {
	donationService service.DonationService
}

// NewDonationHandler creates a DonationHandler.
func NewDonationHandler(donationService service.DonationService) *DonationHandler {
	return &DonationHandler{donationService: donationService}
}

// IntentIssuedResponse is returned when the provider created an intent.
type IntentIssuedResponse struct {
	ClientSecret string `json:"clientSecret"`
	DonationID   int64  `json:"donationId"`
}

// DevFallbackResponse is returned when no provider is configured.
type DevFallbackResponse struct {
	Development   bool   `json:"development"`
	Message       string `json:"message"`
	DonationID    int64  `json:"donationId"`
	MockPaymentID string `json:"mockPaymentId"`
}

// DevFallbackMessage explains a development-mode response.
const DevFallbackMessage = "Donation recorded in development mode (no payment processing)"

// CreatePaymentIntent handles POST /api/create-payment-intent.
func (h *DonationHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var in validation.DonationInput
	if err := validation.DecodeJSON(r.Body, &in); err != nil {
		writeError(w, r, err, "Failed to process donation")
		return
	}

	res, err := h.donationService.CreatePaymentIntent(r.Context(), in, r.Header.Get(IdempotencyHeader))
	if err != nil {
		writeError(w, r, err, "Failed to process donation")
		return
	}

	switch v := res.(type) {
	case model.IntentIssued:
		writeJSON(w, http.StatusOK, IntentIssuedResponse{ClientSecret: v.ClientSecret, DonationID: v.DonationID})
	case model.DevFallback:
		writeJSON(w, http.StatusOK, DevFallbackResponse{
			Development:   true,
			Message:       DevFallbackMessage,
			DonationID:    v.DonationID,
			MockPaymentID: v.MockPaymentID,
		})
	case model.IntentFailed:
		writeMessage(w, http.StatusBadRequest, v.Reason)
	default:
		slog.Error("unknown payment intent result", "type", fmt.Sprintf("%T", res))
		writeMessage(w, http.StatusInternalServerError, "Failed to process donation")
	}
}
