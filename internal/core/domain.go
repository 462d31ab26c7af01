// Package core holds the ledger's domain types and the operations the I/O
// adapters (inbound email, dashboard form) drive against it.
package core

import (
	"context"
	"errors"
)

type (
	// User owns a purchase ledger. TzOffset is their last reported UTC
	// offset in seconds, signed.
	User struct {
		UserID    int64
		UserEmail string
		TzOffset  int
		CreatedAt int64
	}

	// Purchase is the amended view of a base purchase row: amendment fields
	// when one exists, the original fields otherwise. The base row itself is
	// never updated, so an amendment can always be undone.
	Purchase struct {
		PurchaseID    int64
		UserID        int64
		AmountInCents int64
		Merchant      string
		Timestamp     int64 // unix seconds, as reported by the source
		IsAmended     bool
		CreatedAt     int64
	}

	// OutboundEmail is a queued notification. SentAt stays zero until the
	// courier delivers it.
	OutboundEmail struct {
		OutboundEmailID int64
		UserID          int64
		Sender          string
		Subject         string
		Body            string
		BodyHTML        string
		SentAt          int64
		CreatedAt       int64
	}
)

var (
	ErrInvalidAmount = errors.New("invalid dollar amount")
	ErrMalformedForm = errors.New("malformed purchase form")
	ErrUnroutedEmail = errors.New("could not determine where to route email")
	ErrInboundEmail  = errors.New("could not parse inbound email")

	// ErrEmailRateLimit is returned by Ledger.QueueEmail when the recipient
	// already has unsent mail or was mailed too recently.
	ErrEmailRateLimit = errors.New("too many emails queued for this user")
)

// Ledger is the slice of the store the core operations need. *storage.Store
// satisfies it.
type Ledger interface {
	GetOrCreateUser(ctx context.Context, email string) (User, bool, error)
	SetTzOffset(ctx context.Context, userID int64, tzOffset int) error
	SavePurchase(ctx context.Context, user User, amountInCents int64, merchant string, timestamp int64) (Purchase, error)
	LookupPurchase(ctx context.Context, id int64) (Purchase, error)
	AmendPurchase(ctx context.Context, purchaseID, newAmountInCents int64, newMerchant string) error
	UndoAmendment(ctx context.Context, purchaseID int64) error
	QueueEmail(ctx context.Context, sender, to, subject, body, bodyHTML string) (OutboundEmail, error)
}
