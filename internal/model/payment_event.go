package model

import "time"

// PaymentEvent is an append-only record of a provider webhook event about a
// payment intent. DonationID is nil when the intent carried no donation
// metadata.
type PaymentEvent struct {
	ID              int64     `json:"id"`
	StripeEventID   string    `json:"stripeEventId"`
	Type            string    `json:"type"`
	PaymentIntentID string    `json:"paymentIntentId"`
	DonationID      *int64    `json:"donationId"`
	Amount          int       `json:"amount"`
	CreatedAt       time.Time `json:"createdAt"`
}
