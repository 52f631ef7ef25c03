package repository

import (
	"context"

	"github.com/communityportal/backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgPaymentEventRepository is the PostgreSQL implementation of PaymentEventRepository.
type PgPaymentEventRepository struct {
	pool *pgxpool.Pool
}

// NewPgPaymentEventRepository creates a PgPaymentEventRepository.
func NewPgPaymentEventRepository(pool *pgxpool.Pool) *PgPaymentEventRepository {
	return &PgPaymentEventRepository{pool: pool}
}

var _ PaymentEventRepository = (*PgPaymentEventRepository)(nil)

func (r *PgPaymentEventRepository) Create(ctx context.Context, e *model.PaymentEvent) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payment_events (stripe_event_id, type, payment_intent_id, donation_id, amount)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		e.StripeEventID, e.Type, e.PaymentIntentID, e.DonationID, e.Amount,
	).Scan(&e.ID, &e.CreatedAt)
	return mapError(err)
}

func (r *PgPaymentEventRepository) ListByDonation(ctx context.Context, donationID int64) ([]*model.PaymentEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, stripe_event_id, type, payment_intent_id, donation_id, amount, created_at
		 FROM payment_events
		 WHERE donation_id = $1
		 ORDER BY created_at DESC, id DESC`, donationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*model.PaymentEvent{}
	for rows.Next() {
		e := &model.PaymentEvent{}
		if err := rows.Scan(&e.ID, &e.StripeEventID, &e.Type, &e.PaymentIntentID, &e.DonationID, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
