package repository

import (
	"context"

	"github.com/communityportal/backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgDonationRepository is the PostgreSQL implementation of DonationRepository.
type PgDonationRepository struct {
	pool *pgxpool.Pool
}

// NewPgDonationRepository creates a PgDonationRepository backed by the given pool.
func NewPgDonationRepository(pool *pgxpool.Pool) *PgDonationRepository {
	return &PgDonationRepository{pool: pool}
}

var _ DonationRepository = (*PgDonationRepository)(nil)

const donationSelectCols = `id, amount, donor_name, donor_email, anonymous, frequency,
	stripe_payment_id, idempotency_key, created_at`

func scanDonation(scan func(...any) error) (*model.Donation, error) {
	d := &model.Donation{}
	if err := scan(
		&d.ID, &d.Amount, &d.DonorName, &d.DonorEmail, &d.Anonymous, &d.Frequency,
		&d.StripePaymentID, &d.IdempotencyKey, &d.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return d, nil
}

func (r *PgDonationRepository) Create(ctx context.Context, d *model.Donation) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO donations
		 (amount, donor_name, donor_email, anonymous, frequency, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		d.Amount, d.DonorName, d.DonorEmail, d.Anonymous, d.Frequency, d.IdempotencyKey,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return mapError(err)
	}
	d.StripePaymentID = nil
	return nil
}

func (r *PgDonationRepository) UpdateStripeID(ctx context.Context, id int64, ref string) (*model.Donation, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE donations SET stripe_payment_id = $1 WHERE id = $2
		 RETURNING `+donationSelectCols,
		ref, id)
	return scanDonation(row.Scan)
}

func (r *PgDonationRepository) GetByID(ctx context.Context, id int64) (*model.Donation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+donationSelectCols+` FROM donations WHERE id = $1`, id)
	return scanDonation(row.Scan)
}

func (r *PgDonationRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Donation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+donationSelectCols+` FROM donations WHERE idempotency_key = $1`, key)
	return scanDonation(row.Scan)
}

func (r *PgDonationRepository) List(ctx context.Context) ([]*model.Donation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+donationSelectCols+`
		 FROM donations
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*model.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
