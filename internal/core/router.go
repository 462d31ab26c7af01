package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// InboundEmail is the transport-independent shape of a received email. The
// webhook adapter translates provider payloads into this so the router never
// sees provider-specific fields.
type InboundEmail struct {
	To        string
	From      string
	Timestamp int64
	TzOffset  int // seconds east of UTC, from the Date header
	Subject   string
	MessageID string
	Body      string
}

// PurchaseAlert carries the already-parsed fields of a bank transaction
// alert. Extracting them from an email body is the AlertParser's problem.
type PurchaseAlert struct {
	UserEmail     string
	AmountInCents int64
	Merchant      string
	Timestamp     int64
	TzOffset      int
}

// AlertParser turns a forwarded bank alert into a PurchaseAlert. Parsers are
// bank-specific and live outside the core.
type AlertParser interface {
	ParseAlert(email InboundEmail) (PurchaseAlert, error)
}

// EventPublisher broadcasts ledger changes for downstream consumers. A nil
// publisher disables broadcasting; publish failures never fail the write.
type EventPublisher interface {
	PublishPurchaseRecorded(ctx context.Context, p Purchase) error
	PublishPurchaseAmended(ctx context.Context, purchaseID int64) error
}

// Router dispatches inbound email: Gmail forwarding confirmations are
// auto-confirmed, mail to our info address gets a welcome reply, and bank
// transaction alerts become ledger purchases.
type Router struct {
	ledger      Ledger
	parser      AlertParser
	events      EventPublisher
	client      *http.Client
	logger      *slog.Logger
	emailDomain string
}

func NewRouter(ledger Ledger, parser AlertParser, events EventPublisher, client *http.Client, logger *slog.Logger, emailDomain string) *Router {
	if client == nil {
		client = http.DefaultClient
	}
	return &Router{
		ledger:      ledger,
		parser:      parser,
		events:      events,
		client:      client,
		logger:      logger,
		emailDomain: emailDomain,
	}
}

func (r *Router) RouteEmail(ctx context.Context, email InboundEmail) error {
	r.logger.InfoContext(ctx, "new inbound email",
		"msgid", email.MessageID, "from", email.From, "to", email.To)

	switch {
	case email.From == "forwarding-noreply@google.com":
		return r.confirmGmailForwarding(ctx, email)
	case email.To == "info@"+r.emailDomain:
		user, _, err := r.ledger.GetOrCreateUser(ctx, email.From)
		if err != nil {
			return fmt.Errorf("get or create user: %w", err)
		}
		r.sendWelcomeEmail(ctx, user)
		return nil
	case isPurchaseAlert(email):
		// Alerts are forwarded to us by the user, so From is their bank
		// and To is the user.
		alert, err := r.parser.ParseAlert(email)
		if err != nil {
			return err
		}
		_, err = r.RecordAlert(ctx, alert)
		return err
	default:
		return fmt.Errorf("%w: from %s", ErrUnroutedEmail, email.From)
	}
}

// RecordAlert writes a parsed alert into the ledger. First-time senders get
// a welcome email; the user's timezone offset follows the alert,
// last-write-wins.
func (r *Router) RecordAlert(ctx context.Context, alert PurchaseAlert) (Purchase, error) {
	user, created, err := r.ledger.GetOrCreateUser(ctx, alert.UserEmail)
	if err != nil {
		return Purchase{}, fmt.Errorf("get or create user: %w", err)
	}

	if created {
		r.sendWelcomeEmail(ctx, user)
	}

	purchase, err := r.ledger.SavePurchase(ctx, user, alert.AmountInCents, alert.Merchant, alert.Timestamp)
	if err != nil {
		return Purchase{}, fmt.Errorf("save purchase: %w", err)
	}

	if err := r.ledger.SetTzOffset(ctx, user.UserID, alert.TzOffset); err != nil {
		return Purchase{}, fmt.Errorf("set tz offset: %w", err)
	}

	if r.events != nil {
		if err := r.events.PublishPurchaseRecorded(ctx, purchase); err != nil {
			r.logger.ErrorContext(ctx, "failed to publish purchase event",
				"purchase_id", purchase.PurchaseID, "error", err)
		}
	}

	return purchase, nil
}

// confirmGmailForwarding handles Gmail's forwarding-verification email:
// POSTing to the embedded confirmation URL confirms the request, and the
// code is mailed to the user in case that ever stops working.
func (r *Router) confirmGmailForwarding(ctx context.Context, email InboundEmail) error {
	if email.Body == "" {
		return ErrInboundEmail
	}

	lines := strings.Split(email.Body, "\n")

	var confirmationCode, confirmationURL string
	for _, line := range lines {
		if code, ok := strings.CutPrefix(line, "Confirmation code:"); ok {
			confirmationCode = strings.TrimSpace(code)
		}
		if strings.HasPrefix(line, "http") {
			confirmationURL = strings.TrimSpace(line)
		}
	}

	// The user's address is the very first thing on the first line.
	userEmail, _, _ := strings.Cut(strings.TrimSpace(lines[0]), " ")

	if confirmationCode == "" || confirmationURL == "" || userEmail == "" {
		return ErrInboundEmail
	}

	r.logger.InfoContext(ctx, "confirming gmail forwarding request", "email", userEmail)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, confirmationURL, nil)
	if err != nil {
		return fmt.Errorf("build confirmation request: %w", err)
	}
	// Gmail accepts the confirmation only when it looks like it came from
	// its own frontend.
	req.Host = "mail.google.com"

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("confirm forwarding: %w", err)
	}
	resp.Body.Close()

	if _, err := r.ledger.QueueEmail(ctx,
		"alerts@"+r.emailDomain,
		userEmail,
		"Gmail forwarding confirmation code",
		confirmationCode,
		"",
	); err != nil && !isRateLimited(err) {
		return fmt.Errorf("queue confirmation email: %w", err)
	}

	// They are very likely about to use the service. Create them.
	if _, _, err := r.ledger.GetOrCreateUser(ctx, userEmail); err != nil {
		return fmt.Errorf("get or create user: %w", err)
	}

	return nil
}

func (r *Router) sendWelcomeEmail(ctx context.Context, user User) {
	dashboard := fmt.Sprintf("https://%s/dashboard?user=%d", r.emailDomain, user.UserID)
	body := fmt.Sprintf("\n~~~\nHere is the link to your dashboard:\n%s\n~~~", dashboard)

	_, err := r.ledger.QueueEmail(ctx, "info@"+r.emailDomain, user.UserEmail, "Welcome!", body, "")
	if err != nil && !isRateLimited(err) {
		r.logger.ErrorContext(ctx, "failed to queue welcome email",
			"user_id", user.UserID, "error", err)
	}
}

func isPurchaseAlert(email InboundEmail) bool {
	subject := strings.ToLower(email.Subject)
	return strings.Contains(subject, "transaction") || strings.Contains(subject, "card")
}

// isRateLimited lets callers treat an already-notified user as success.
func isRateLimited(err error) bool {
	return errors.Is(err, ErrEmailRateLimit)
}
