package repository

import (
	"context"

	"github.com/communityportal/backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRequestRepository is the PostgreSQL implementation of RequestRepository.
type PgRequestRepository struct {
	pool *pgxpool.Pool
}

// NewPgRequestRepository creates a PgRequestRepository backed by the given pool.
func NewPgRequestRepository(pool *pgxpool.Pool) *PgRequestRepository {
	return &PgRequestRepository{pool: pool}
}

var _ RequestRepository = (*PgRequestRepository)(nil)

const requestSelectCols = `id, full_name, email, phone, address, request_type, subject,
	description, file_urls, status, created_at`

func scanRequest(scan func(...any) error) (*model.RequestSubmission, error) {
	s := &model.RequestSubmission{}
	if err := scan(
		&s.ID, &s.FullName, &s.Email, &s.Phone, &s.Address, &s.RequestType, &s.Subject,
		&s.Description, &s.FileURLs, &s.Status, &s.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	if s.FileURLs == nil {
		s.FileURLs = []string{}
	}
	return s, nil
}

// Create inserts a request_submissions row. Address is stored as NULL when
// empty, file_urls as [] when absent, and status is always pending.
func (r *PgRequestRepository) Create(ctx context.Context, s *model.RequestSubmission) error {
	if s.FileURLs == nil {
		s.FileURLs = []string{}
	}
	if s.Address != nil && *s.Address == "" {
		s.Address = nil
	}
	s.Status = model.RequestStatusPending
	err := r.pool.QueryRow(ctx,
		`INSERT INTO request_submissions
		 (full_name, email, phone, address, request_type, subject, description, file_urls, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		s.FullName, s.Email, s.Phone, s.Address, s.RequestType, s.Subject,
		s.Description, s.FileURLs, s.Status,
	).Scan(&s.ID, &s.CreatedAt)
	return mapError(err)
}

// GetByID returns a single submission or ErrNotFound.
func (r *PgRequestRepository) GetByID(ctx context.Context, id int64) (*model.RequestSubmission, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+requestSelectCols+` FROM request_submissions WHERE id = $1`, id)
	return scanRequest(row.Scan)
}

// List returns all submissions ordered by created_at desc.
func (r *PgRequestRepository) List(ctx context.Context) ([]*model.RequestSubmission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+requestSelectCols+` FROM request_submissions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*model.RequestSubmission{}
	for rows.Next() {
		s, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
