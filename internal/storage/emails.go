package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eanyanwu/whotookmy.money/internal/core"
)

// emailRateLimitWindow is how long after a delivery the recipient is
// protected from another notification, in seconds.
const emailRateLimitWindow = 300

// QueueEmail queues a message for the recipient, creating them if needed.
// It fails with core.ErrEmailRateLimit when the recipient already has
// unsent mail or was sent mail within the rate-limit window; duplicate and
// noisy notifications die here rather than in the courier.
func (s *Store) QueueEmail(ctx context.Context, sender, to, subject, body, bodyHTML string) (core.OutboundEmail, error) {
	user, _, err := s.GetOrCreateUser(ctx, to)
	if err != nil {
		return core.OutboundEmail{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.OutboundEmail{}, fmt.Errorf("begin queue transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM outbound_email
		WHERE user_id = ? AND (sent_at IS NULL OR ? - sent_at < ?)`,
		user.UserID, s.now().Unix(), emailRateLimitWindow).Scan(&count)
	if err != nil {
		return core.OutboundEmail{}, fmt.Errorf("count recent emails: %w", err)
	}
	if count > 0 {
		return core.OutboundEmail{}, fmt.Errorf("user %d: %w", user.UserID, core.ErrEmailRateLimit)
	}

	var html any
	if bodyHTML != "" {
		html = bodyHTML
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO outbound_email (user_id, sender, subject, body, body_html)
		VALUES (?, ?, ?, ?, ?)`,
		user.UserID, sender, subject, body, html)
	if err != nil {
		return core.OutboundEmail{}, fmt.Errorf("insert outbound email: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.OutboundEmail{}, fmt.Errorf("last insert id: %w", err)
	}

	email, err := scanEmail(tx.QueryRowContext(ctx,
		`SELECT `+outboundEmailColumns+` FROM outbound_email WHERE outbound_email_id = ?`, id))
	if err != nil {
		return core.OutboundEmail{}, fmt.Errorf("select outbound email: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.OutboundEmail{}, fmt.Errorf("commit queue: %w", err)
	}

	return email, nil
}

const outboundEmailColumns = `outbound_email_id, user_id, sender, subject, body, body_html, sent_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmail(row rowScanner) (core.OutboundEmail, error) {
	var (
		e        core.OutboundEmail
		bodyHTML sql.NullString
		sentAt   sql.NullInt64
	)
	err := row.Scan(&e.OutboundEmailID, &e.UserID, &e.Sender, &e.Subject,
		&e.Body, &bodyHTML, &sentAt, &e.CreatedAt)
	if err != nil {
		return core.OutboundEmail{}, err
	}
	e.BodyHTML = bodyHTML.String
	e.SentAt = sentAt.Int64
	return e, nil
}

// NextUnsentEmail returns the earliest queued email that has not been
// delivered, paired with its recipient. Without an intervening MarkSent,
// repeated calls return the same row; at-least-once delivery is the
// caller's bargain. ErrNoRows when the queue is drained.
func (s *Store) NextUnsentEmail(ctx context.Context) (core.OutboundEmail, core.User, error) {
	email, err := scanEmail(s.db.QueryRowContext(ctx,
		`SELECT `+outboundEmailColumns+`
		FROM outbound_email
		WHERE sent_at IS NULL
		ORDER BY outbound_email_id
		LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return core.OutboundEmail{}, core.User{}, fmt.Errorf("unsent email: %w", ErrNoRows)
	}
	if err != nil {
		return core.OutboundEmail{}, core.User{}, fmt.Errorf("select unsent email: %w", err)
	}

	user, err := s.LookupUser(ctx, email.UserID)
	if err != nil {
		return core.OutboundEmail{}, core.User{}, err
	}

	return email, user, nil
}

// MarkSent stamps the email's delivery time. The stamp is written once;
// calling MarkSent again leaves the original time in place.
func (s *Store) MarkSent(ctx context.Context, e core.OutboundEmail) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE outbound_email SET sent_at = ?
		WHERE outbound_email_id = ? AND sent_at IS NULL`,
		s.now().Unix(), e.OutboundEmailID); err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}
