package validation

import (
	"strconv"
	"strings"

	"github.com/communityportal/backend/internal/model"
)

// MaxAmount is the largest amount in minor units the donations table holds.
const MaxAmount = 2147483647

// Preset choices on the donation form. PresetCustom means CustomAmount holds
// the value.
const (
	PresetCustom  = "custom"
	DefaultPreset = "100"
)

// DonorDetails are the donor fields shared by the insert shape and the
// client form.
type DonorDetails struct {
	DonorName  string `json:"donorName" validate:"required,notblank,max=200"`
	DonorEmail string `json:"donorEmail" validate:"required,email,max=320"`
	Anonymous  bool   `json:"anonymous"`
	Frequency  string `json:"frequency" validate:"required,oneof=one-time monthly quarterly yearly"`
}

// DonationInput is a donation minus id, createdAt and stripePaymentId.
// Amount is in minor units.
type DonationInput struct {
	Amount int `json:"amount" validate:"gt=0,lte=2147483647"`
	DonorDetails
}

// Donation builds the record to persist.
func (in DonationInput) Donation() *model.Donation {
	return &model.Donation{
		Amount:     in.Amount,
		DonorName:  in.DonorName,
		DonorEmail: in.DonorEmail,
		Anonymous:  in.Anonymous,
		Frequency:  in.Frequency,
	}
}

// DonationForm is what the donor fills in: a preset (or "custom" plus a
// whole-unit custom value) instead of an amount in minor units.
type DonationForm struct {
	PredefinedAmount string `json:"predefinedAmount" validate:"omitempty,oneof=25 50 100 custom"`
	CustomAmount     string `json:"customAmount"`
	DonorDetails
}

// NewDonationForm returns a form with the defaults the donation page starts
// from.
func NewDonationForm() DonationForm {
	return DonationForm{
		PredefinedAmount: DefaultPreset,
		DonorDetails:     DonorDetails{Frequency: model.FrequencyOneTime},
	}
}

// ResolveAmount derives the amount in minor units from the preset choice and
// the custom field.
func ResolveAmount(predefined, custom string) (int, error) {
	if predefined == "" {
		predefined = DefaultPreset
	}
	if predefined != PresetCustom {
		n, err := strconv.Atoi(predefined)
		if err != nil || !isPreset(predefined) {
			return 0, fieldErr("predefinedAmount", "must be one of: 25, 50, 100, custom")
		}
		return n * 100, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(custom))
	if err != nil || n <= 0 {
		return 0, fieldErr("customAmount", "Please enter a valid custom amount")
	}
	if n > MaxAmount/100 {
		return 0, fieldErr("customAmount", "must be at most "+strconv.Itoa(MaxAmount/100))
	}
	return n * 100, nil
}

func isPreset(s string) bool {
	switch s {
	case "25", "50", "100":
		return true
	}
	return false
}

// Resolve validates the form and produces the insert shape.
func (f DonationForm) Resolve() (DonationInput, error) {
	if err := Struct(f); err != nil {
		return DonationInput{}, err
	}
	amount, err := ResolveAmount(f.PredefinedAmount, f.CustomAmount)
	if err != nil {
		return DonationInput{}, err
	}
	in := DonationInput{Amount: amount, DonorDetails: f.DonorDetails}
	if err := Struct(in); err != nil {
		return DonationInput{}, err
	}
	return in, nil
}
