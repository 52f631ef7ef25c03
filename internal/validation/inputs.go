package validation

import (
	"strings"

	"github.com/communityportal/backend/internal/model"
)

// RequestTypes offered by the request form.
var RequestTypes = []string{"complaint", "assistance", "counseling", "mediation", "education", "other"}

// RequestInput is a request submission minus id, createdAt, status and the
// file URLs (those come from file intake).
type RequestInput struct {
	FullName    string `json:"fullName" validate:"required,notblank,max=200"`
	Email       string `json:"email" validate:"required,email,max=320"`
	Phone       string `json:"phone" validate:"required,notblank,max=50"`
	Address     string `json:"address" validate:"max=500"`
	RequestType string `json:"requestType" validate:"required,oneof=complaint assistance counseling mediation education other"`
	Subject     string `json:"subject" validate:"required,notblank,max=300"`
	Description string `json:"description" validate:"required,notblank,max=10000"`
}

// Submission builds the record to persist.
func (in RequestInput) Submission(fileURLs []string) *model.RequestSubmission {
	s := &model.RequestSubmission{
		FullName:    in.FullName,
		Email:       in.Email,
		Phone:       in.Phone,
		RequestType: in.RequestType,
		Subject:     in.Subject,
		Description: in.Description,
		FileURLs:    fileURLs,
	}
	if addr := strings.TrimSpace(in.Address); addr != "" {
		s.Address = &addr
	}
	return s
}

// ContactInput is a contact message minus id and createdAt.
type ContactInput struct {
	FullName string `json:"fullName" validate:"required,notblank,max=200"`
	Email    string `json:"email" validate:"required,email,max=320"`
	Subject  string `json:"subject" validate:"required,notblank,max=300"`
	Message  string `json:"message" validate:"required,notblank,max=5000"`
}

// ContactMessage builds the record to persist.
func (in ContactInput) ContactMessage() *model.ContactMessage {
	return &model.ContactMessage{
		FullName: in.FullName,
		Email:    in.Email,
		Subject:  in.Subject,
		Message:  in.Message,
	}
}

// UserInput is an operator account to create.
type UserInput struct {
	Username string `json:"username" validate:"required,notblank,max=100"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}
