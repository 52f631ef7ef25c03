package repository

import (
	"context"

	"github.com/communityportal/backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgContactRepository is the PostgreSQL implementation of ContactRepository.
type PgContactRepository struct {
	pool *pgxpool.Pool
}

// NewPgContactRepository creates a PgContactRepository backed by the given pool.
func NewPgContactRepository(pool *pgxpool.Pool) *PgContactRepository {
	return &PgContactRepository{pool: pool}
}

// Ensure PgContactRepository implements ContactRepository at compile time.
var _ ContactRepository = (*PgContactRepository)(nil)

const contactSelectCols = `id, full_name, email, subject, message, created_at`

func scanContact(scan func(...any) error) (*model.ContactMessage, error) {
	var m model.ContactMessage
	if err := scan(&m.ID, &m.FullName, &m.Email, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

// Create inserts a new contact_messages row and populates msg.ID and
// CreatedAt from the RETURNING clause.
func (r *PgContactRepository) Create(ctx context.Context, msg *model.ContactMessage) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_messages (full_name, email, subject, message)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		msg.FullName, msg.Email, msg.Subject, msg.Message,
	).Scan(&msg.ID, &msg.CreatedAt)
	return mapError(err)
}

// GetByID returns a single message or ErrNotFound.
func (r *PgContactRepository) GetByID(ctx context.Context, id int64) (*model.ContactMessage, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+contactSelectCols+` FROM contact_messages WHERE id = $1`, id)
	return scanContact(row.Scan)
}

// List returns all contact messages ordered by created_at desc.
func (r *PgContactRepository) List(ctx context.Context) ([]*model.ContactMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contactSelectCols+` FROM contact_messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.ContactMessage{}
	for rows.Next() {
		m, err := scanContact(rows.Scan)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
