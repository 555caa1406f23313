package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"live-quiz-service/internal/domain"
)

// UserStore reads accounts and applies final room scores.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) FindUser(ctx context.Context, id domain.UserID) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `SELECT id, username, points FROM users WHERE id = $1`, string(id)).
		Scan(&u.ID, &u.Username, &u.Points)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// CommitPoints adds delta to the stored total in a single statement.
func (s *UserStore) CommitPoints(ctx context.Context, id domain.UserID, delta int) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET points = points + $2
		WHERE id = $1
		RETURNING id, username, points`, string(id), delta).
		Scan(&u.ID, &u.Username, &u.Points)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("commit points: %w", err)
	}
	return u, nil
}

// SaveUser inserts an account or updates its username.
func (s *UserStore) SaveUser(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, points) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`,
		string(u.ID), u.Username, u.Points)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}
