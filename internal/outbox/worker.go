// Package outbox drains the queue of not-yet-delivered notification email.
package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eanyanwu/whotookmy.money/internal/core"
	"github.com/eanyanwu/whotookmy.money/internal/storage"
)

// Queue is the slice of the store the worker drives: fetch the earliest
// unsent email, stamp it delivered. *storage.Store satisfies it.
type Queue interface {
	NextUnsentEmail(ctx context.Context) (core.OutboundEmail, core.User, error)
	MarkSent(ctx context.Context, e core.OutboundEmail) error
}

// Sender delivers one email to the outside world. Implementations own their
// network timeouts; the worker only looks at the error.
type Sender interface {
	Send(ctx context.Context, email core.OutboundEmail, user core.User) error
}

// Worker polls the queue on a fixed interval and hands unsent email to the
// sender. A failed delivery is logged and left in the queue, so the fixed
// poll interval doubles as the retry schedule; there is no backoff and no
// dead-letter.
type Worker struct {
	queue    Queue
	sender   Sender
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(queue Queue, sender Sender, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:    queue,
		sender:   sender,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. Delivery errors never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "polling for unsent outbound emails", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.DeliverNext(ctx)
		}
	}
}

// DeliverNext attempts one delivery: fetch the earliest unsent email, hand
// it to the sender, and mark it sent on success. An empty queue is not an
// event worth logging.
func (w *Worker) DeliverNext(ctx context.Context) {
	email, user, err := w.queue.NextUnsentEmail(ctx)
	if errors.Is(err, storage.ErrNoRows) {
		return
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to fetch unsent email", "error", err)
		return
	}

	w.logger.InfoContext(ctx, "sending email",
		"outbound_email_id", email.OutboundEmailID,
		"to", user.UserEmail,
		"from", email.Sender)

	if err := w.sender.Send(ctx, email, user); err != nil {
		// Leave the row unsent; the next poll retries it.
		w.logger.ErrorContext(ctx, "delivery failed",
			"outbound_email_id", email.OutboundEmailID, "error", err)
		return
	}

	if err := w.queue.MarkSent(ctx, email); err != nil {
		w.logger.ErrorContext(ctx, "failed to mark email sent",
			"outbound_email_id", email.OutboundEmailID, "error", err)
	}
}
