package model

import "time"

// Donation frequencies accepted by the donation form.
const (
	FrequencyOneTime   = "one-time"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// Donation is a recorded donation. StripePaymentID is nil until a provider
// intent id (or a development mock id) has been attached, which happens once.
type Donation struct {
	ID              int64     `json:"id"`
	Amount          int       `json:"amount"` // minor units (cents)
	DonorName       string    `json:"donorName"`
	DonorEmail      string    `json:"donorEmail"`
	Anonymous       bool      `json:"anonymous"`
	Frequency       string    `json:"frequency"`
	StripePaymentID *string   `json:"stripePaymentId"`
	IdempotencyKey  *string   `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
}

// HasPaymentRef reports whether a provider or mock reference is attached.
func (d *Donation) HasPaymentRef() bool {
	return d.StripePaymentID != nil && *d.StripePaymentID != ""
}
