package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eanyanwu/whotookmy.money/internal/core"
)

// GetOrCreateUser returns the user with the given email, creating them if
// they don't exist. The second return reports whether this call created the
// row, so callers can trigger first-contact behavior exactly once.
func (s *Store) GetOrCreateUser(ctx context.Context, email string) (core.User, bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user (user_email) VALUES (?) ON CONFLICT DO NOTHING`, email)
	if err != nil {
		return core.User{}, false, fmt.Errorf("insert user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return core.User{}, false, fmt.Errorf("rows affected: %w", err)
	}

	var u core.User
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id, user_email, tz_offset, created_at FROM user WHERE user_email = ?`, email).
		Scan(&u.UserID, &u.UserEmail, &u.TzOffset, &u.CreatedAt)
	if err != nil {
		return core.User{}, false, fmt.Errorf("select user: %w", err)
	}

	return u, n > 0, nil
}

// LookupUser fetches a user by id. ErrNoRows if they don't exist.
func (s *Store) LookupUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, user_email, tz_offset, created_at FROM user WHERE user_id = ?`, id).
		Scan(&u.UserID, &u.UserEmail, &u.TzOffset, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %d: %w", id, ErrNoRows)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// SetTzOffset records the user's latest reported UTC offset. Unconditional;
// last write wins.
func (s *Store) SetTzOffset(ctx context.Context, userID int64, tzOffset int) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE user SET tz_offset = ? WHERE user_id = ?`, tzOffset, userID); err != nil {
		return fmt.Errorf("update tz offset: %w", err)
	}
	return nil
}
