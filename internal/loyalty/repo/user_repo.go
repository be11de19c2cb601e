package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/loyalty"
)

// UserRepo reads and accrues experience points on the users table.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id varchar(32) PRIMARY KEY,
  experience_points integer NOT NULL DEFAULT 0,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *UserRepo) ExperiencePoints(ctx context.Context, userID string) (int, error) {
	const q = `SELECT experience_points FROM users WHERE id=$1`
	var xp int
	if err := r.db.GetContext(ctx, &xp, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, loyalty.ErrUserNotFound
		}
		return 0, err
	}
	return xp, nil
}

// AddExperiencePoints increments atomically and returns the new total,
// creating the row on first accrual.
func (r *UserRepo) AddExperiencePoints(ctx context.Context, userID string, amount int) (int, error) {
	const q = `INSERT INTO users (id, experience_points) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET experience_points = users.experience_points + EXCLUDED.experience_points, updated_at=NOW()
		RETURNING experience_points`
	var total int
	if err := r.db.GetContext(ctx, &total, q, userID, amount); err != nil {
		return 0, err
	}
	return total, nil
}
