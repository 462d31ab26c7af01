package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eanyanwu/whotookmy.money/internal/core"
)

const amendedPurchaseColumns = `
	purchase_id, user_id, amount_in_cents, merchant, timestamp, is_amended, created_at`

func scanPurchase(row rowScanner) (core.Purchase, error) {
	var p core.Purchase
	err := row.Scan(&p.PurchaseID, &p.UserID, &p.AmountInCents, &p.Merchant,
		&p.Timestamp, &p.IsAmended, &p.CreatedAt)
	return p, err
}

// SavePurchase inserts an immutable base purchase row for the user and
// returns it as seen through the amendment overlay. A fresh purchase has no
// amendment, so the projection equals the raw values.
func (s *Store) SavePurchase(ctx context.Context, user core.User, amountInCents int64, merchant string, timestamp int64) (core.Purchase, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO purchase (user_id, amount_in_cents, merchant, timestamp)
		VALUES (?, ?, ?, ?)`,
		user.UserID, amountInCents, merchant, timestamp)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("insert purchase: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Purchase{}, fmt.Errorf("last insert id: %w", err)
	}

	return s.LookupPurchase(ctx, id)
}

// LookupPurchase fetches a purchase by id through the amended_purchase
// view, so any amendment is already applied. ErrNoRows if no base purchase
// with that id exists.
func (s *Store) LookupPurchase(ctx context.Context, id int64) (core.Purchase, error) {
	p, err := scanPurchase(s.db.QueryRowContext(ctx,
		`SELECT`+amendedPurchaseColumns+` FROM amended_purchase WHERE purchase_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Purchase{}, fmt.Errorf("purchase %d: %w", id, ErrNoRows)
	}
	if err != nil {
		return core.Purchase{}, fmt.Errorf("select purchase: %w", err)
	}
	return p, nil
}

// AmendPurchase records a correction for the purchase: created on first
// edit, overwritten in place on later edits. There is never a second
// amendment row for the same purchase, and the base row is untouched.
func (s *Store) AmendPurchase(ctx context.Context, purchaseID, newAmountInCents int64, newMerchant string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin amend transaction: %w", err)
	}
	defer tx.Rollback()

	if err := purchaseExists(ctx, tx, purchaseID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO purchase_amendment (purchase_id, new_amount_in_cents, new_merchant)
		VALUES (?, ?, ?)
		ON CONFLICT (purchase_id)
		DO UPDATE SET
			new_amount_in_cents = excluded.new_amount_in_cents,
			new_merchant = excluded.new_merchant`,
		purchaseID, newAmountInCents, newMerchant)
	if err != nil {
		return fmt.Errorf("upsert amendment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit amendment: %w", err)
	}
	return nil
}

// UndoAmendment deletes the purchase's amendment, if any, restoring the
// original values on the read path. Undoing a purchase that was never
// amended is a no-op, but the purchase itself must exist.
func (s *Store) UndoAmendment(ctx context.Context, purchaseID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin undo transaction: %w", err)
	}
	defer tx.Rollback()

	if err := purchaseExists(ctx, tx, purchaseID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM purchase_amendment WHERE purchase_id = ?`, purchaseID); err != nil {
		return fmt.Errorf("delete amendment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit undo: %w", err)
	}
	return nil
}

func purchaseExists(ctx context.Context, tx *sql.Tx, purchaseID int64) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM purchase WHERE purchase_id = ?`, purchaseID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("purchase %d: %w", purchaseID, ErrNoRows)
	}
	if err != nil {
		return fmt.Errorf("check purchase exists: %w", err)
	}
	return nil
}

// RecentPurchases returns the user's amended purchases with a timestamp in
// [now - days*86400, now), ordered by timestamp ascending.
func (s *Store) RecentPurchases(ctx context.Context, user core.User, days int) ([]core.Purchase, error) {
	now := s.now().Unix()
	return s.PurchasesInRange(ctx, user.UserID, now-int64(days)*86400, now)
}

// PurchasesInRange returns the user's amended purchases with a timestamp in
// [from, to), ordered by timestamp ascending.
func (s *Store) PurchasesInRange(ctx context.Context, userID, from, to int64) ([]core.Purchase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+amendedPurchaseColumns+`
		FROM amended_purchase
		WHERE user_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("select purchases: %w", err)
	}
	defer rows.Close()

	var purchases []core.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}

	return purchases, nil
}
