package repository

import (
	"context"

	"github.com/communityportal/backend/internal/model"
)

// DB は DB 接続の生存確認を行うインターフェース
type DB interface {
	Ping(ctx context.Context) error
}

// UserRepository はユーザー永続化のインターフェース
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// RequestRepository persists request submissions.
type RequestRepository interface {
	// Create inserts s and fills in ID, CreatedAt and Status.
	Create(ctx context.Context, s *model.RequestSubmission) error
	GetByID(ctx context.Context, id int64) (*model.RequestSubmission, error)
	// List returns every submission, most recent first.
	List(ctx context.Context) ([]*model.RequestSubmission, error)
}

// DonationRepository persists donations.
type DonationRepository interface {
	// Create inserts d with a null stripe_payment_id and fills in ID and
	// CreatedAt. A reused idempotency key yields ErrDuplicate.
	Create(ctx context.Context, d *model.Donation) error
	// UpdateStripeID attaches the provider (or mock) reference. ErrNotFound
	// when id does not exist.
	UpdateStripeID(ctx context.Context, id int64, ref string) (*model.Donation, error)
	GetByID(ctx context.Context, id int64) (*model.Donation, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Donation, error)
	// List returns every donation, most recent first.
	List(ctx context.Context) ([]*model.Donation, error)
}

// ContactRepository persists contact form messages.
type ContactRepository interface {
	Create(ctx context.Context, msg *model.ContactMessage) error
	GetByID(ctx context.Context, id int64) (*model.ContactMessage, error)
	// List returns every message, most recent first.
	List(ctx context.Context) ([]*model.ContactMessage, error)
}

// PaymentEventRepository persists provider webhook events.
type PaymentEventRepository interface {
	// Create returns ErrDuplicate when the provider event id was seen before.
	Create(ctx context.Context, e *model.PaymentEvent) error
	ListByDonation(ctx context.Context, donationID int64) ([]*model.PaymentEvent, error)
}
