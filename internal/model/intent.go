package model

// IntentResult is the outcome of creating a payment intent for a donation.
// It is one of IntentIssued, DevFallback or IntentFailed.
type IntentResult interface {
	intentResult()
}

// IntentIssued means the provider created an intent. ClientSecret is an
// opaque token for the provider's confirmation widget; it must not be logged
// or stored.
type IntentIssued struct {
	DonationID   int64
	ClientSecret string
}

// DevFallback means no provider is configured and a mock reference was
// recorded instead. There is no client secret on this path.
type DevFallback struct {
	DonationID    int64
	MockPaymentID string
}

// IntentFailed means the provider rejected intent creation. The donation row
// (if DonationID is non-zero) stays without a payment reference.
type IntentFailed struct {
	DonationID int64
	Reason     string
}

func (IntentIssued) intentResult() {}
func (DevFallback) intentResult()  {}
func (IntentFailed) intentResult() {}
