// Package donateflow drives a donor through the donation page: amount
// selection, intent creation, provider confirmation and the terminal states.
//
// A Flow is owned by a single donor session and is not safe for concurrent use.
package donateflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/validation"
	"github.com/google/uuid"
)

// State is a step of the donation page.
type State int

const (
	SelectingAmount State = iota
	Submitting
	AwaitingPaymentWidget
	DevSuccess
	Success
	PaymentFailed
	Abandoned
)

func (s State) String() string {
	switch s {
	case SelectingAmount:
		return "selecting-amount"
	case Submitting:
		return "submitting"
	case AwaitingPaymentWidget:
		return "awaiting-payment-widget"
	case DevSuccess:
		return "dev-success"
	case Success:
		return "success"
	case PaymentFailed:
		return "payment-failed"
	case Abandoned:
		return "abandoned"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrUnexpectedResponse is returned when the server answer matches no
	// known outcome.
	ErrUnexpectedResponse = errors.New("the server did not return the expected data")
	// ErrWidgetUnavailable is returned when an intent was issued but no
	// provider widget can confirm it.
	ErrWidgetUnavailable = errors.New("payment widget is not available")
)

// TransitionError reports a call that is not valid in the current state.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("donateflow: cannot %s while %s", e.Op, e.State)
}

// IntentError carries the reason the server gave for a failed intent.
type IntentError struct {
	DonationID int64
	Reason     string
}

func (e *IntentError) Error() string {
	return e.Reason
}

// IntentCreator submits a donation and returns the server's outcome.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, in validation.DonationInput, idempotencyKey string) (model.IntentResult, error)
}

// PaymentConfirmer confirms an issued intent through the provider widget.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, clientSecret string) error
}

// Flow is the donation page state machine.
type Flow struct {
	creator         IntentCreator
	confirmer       PaymentConfirmer
	widgetAvailable bool
	newKey          func() string

	state         State
	form          validation.DonationForm
	err           error
	key           string
	keyed         validation.DonationInput
	clientSecret  string
	donationID    int64
	mockPaymentID string
}

// New returns a Flow in SelectingAmount with the default form. confirmer may
// be nil when widgetAvailable is false.
func New(creator IntentCreator, confirmer PaymentConfirmer, widgetAvailable bool) *Flow {
	return &Flow{
		creator:         creator,
		confirmer:       confirmer,
		widgetAvailable: widgetAvailable && confirmer != nil,
		newKey:          uuid.NewString,
		state:           SelectingAmount,
		form:            validation.NewDonationForm(),
	}
}

func (f *Flow) State() State                  { return f.state }
func (f *Flow) Form() validation.DonationForm { return f.form }
func (f *Flow) DonationID() int64             { return f.donationID }
func (f *Flow) MockPaymentID() string         { return f.mockPaymentID }

// Err is the last error shown to the donor, if any.
func (f *Flow) Err() error { return f.err }

// Submit resolves the amount and asks the server for a payment intent. On
// any failure the flow returns to SelectingAmount with form retained.
func (f *Flow) Submit(ctx context.Context, form validation.DonationForm) error {
	if f.state != SelectingAmount {
		return &TransitionError{Op: "submit", State: f.state}
	}
	f.form = form
	f.err = nil

	in, err := form.Resolve()
	if err != nil {
		return f.fail(err)
	}
	f.ensureKey(in)

	f.state = Submitting
	res, err := f.creator.CreatePaymentIntent(ctx, in, f.key)
	if err != nil {
		return f.fail(err)
	}

	switch v := res.(type) {
	case model.IntentIssued:
		if !f.widgetAvailable {
			return f.fail(ErrWidgetUnavailable)
		}
		f.donationID = v.DonationID
		f.clientSecret = v.ClientSecret
		f.state = AwaitingPaymentWidget
	case model.DevFallback:
		f.donationID = v.DonationID
		f.mockPaymentID = v.MockPaymentID
		f.state = DevSuccess
	case model.IntentFailed:
		return f.fail(&IntentError{DonationID: v.DonationID, Reason: v.Reason})
	default:
		return f.fail(ErrUnexpectedResponse)
	}
	return nil
}

// ensureKey keeps one idempotency key per logical donation. Changing any
// field of the resolved input starts a new one.
func (f *Flow) ensureKey(in validation.DonationInput) {
	if f.key != "" && in == f.keyed {
		return
	}
	f.key = f.newKey()
	f.keyed = in
}

func (f *Flow) fail(err error) error {
	f.state = SelectingAmount
	f.err = err
	return err
}

// Confirm hands the client secret to the payment widget. A failure moves to
// PaymentFailed, from which Confirm may be called again.
func (f *Flow) Confirm(ctx context.Context) error {
	if f.state != AwaitingPaymentWidget && f.state != PaymentFailed {
		return &TransitionError{Op: "confirm", State: f.state}
	}
	if err := f.confirmer.ConfirmPayment(ctx, f.clientSecret); err != nil {
		f.state = PaymentFailed
		f.err = err
		return err
	}
	f.state = Success
	f.err = nil
	f.clientSecret = ""
	return nil
}

// Reset starts a new donation after a completed one.
func (f *Flow) Reset() error {
	if f.state != Success && f.state != DevSuccess {
		return &TransitionError{Op: "reset", State: f.state}
	}
	f.state = SelectingAmount
	f.form = validation.NewDonationForm()
	f.err = nil
	f.key = ""
	f.keyed = validation.DonationInput{}
	f.clientSecret = ""
	f.donationID = 0
	f.mockPaymentID = ""
	return nil
}

// Cancel abandons the donation without contacting the server.
func (f *Flow) Cancel() error {
	switch f.state {
	case SelectingAmount, AwaitingPaymentWidget, PaymentFailed:
		f.state = Abandoned
		f.clientSecret = ""
		return nil
	}
	return &TransitionError{Op: "cancel", State: f.state}
}
