package repository

import (
	"context"

	"github.com/communityportal/backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgUserRepository は UserRepository の PostgreSQL 実装
type PgUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgUserRepository は PgUserRepository を生成する
func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

var _ UserRepository = (*PgUserRepository)(nil)

// Ping は DB 接続を確認する（DB インターフェース実装）
func (r *PgUserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(scan func(...any) error) (*model.User, error) {
	var u model.User
	if err := scan(&u.ID, &u.Username, &u.Password); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// Create はユーザーを作成する。username が重複する場合は ErrDuplicate
func (r *PgUserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password) VALUES ($1, $2) RETURNING id`,
		user.Username, user.Password,
	).Scan(&user.ID)
	return mapError(err)
}

// GetByID は ID でユーザーを取得する
func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, username, password FROM users WHERE id = $1`, id)
	return scanUser(row.Scan)
}

// GetByUsername はユーザー名でユーザーを取得する
func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, username, password FROM users WHERE username = $1`, username)
	return scanUser(row.Scan)
}
