package service

import (
	"context"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/validation"
)

// ContactService defines the business logic for contact form submissions.
type ContactService interface {
	// Submit validates and stores a new contact message. ID and CreatedAt of
	// the returned message are populated by the repository.
	Submit(ctx context.Context, in validation.ContactInput) (*model.ContactMessage, error)

	// List returns every contact message, most recent first.
	List(ctx context.Context) ([]*model.ContactMessage, error)
}
