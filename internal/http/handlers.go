package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/eanyanwu/whotookmy.money/internal/core"
	"github.com/eanyanwu/whotookmy.money/internal/storage"
)

// postmarkInbound is the subset of Postmark's inbound webhook payload the
// router needs.
type postmarkInbound struct {
	From      string `json:"From"`
	To        string `json:"To"`
	Subject   string `json:"Subject"`
	MessageID string `json:"MessageID"`
	TextBody  string `json:"TextBody"`
	Date      string `json:"Date"`
}

// handleInboundEmail accepts Postmark's inbound webhook and routes the
// email. Unroutable mail is acknowledged with 200 so Postmark stops
// retrying something that will never route.
func (s *Server) handleInboundEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload postmarkInbound
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.ErrorContext(ctx, "could not decode inbound webhook", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	when, tzOffset, err := core.ParseRFC2822(payload.Date)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not parse inbound date header",
			"date", payload.Date, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	email := core.InboundEmail{
		To:        payload.To,
		From:      payload.From,
		Timestamp: when.Unix(),
		TzOffset:  tzOffset,
		Subject:   payload.Subject,
		MessageID: payload.MessageID,
		Body:      payload.TextBody,
	}

	if err := s.router.RouteEmail(ctx, email); err != nil {
		if errors.Is(err, core.ErrUnroutedEmail) {
			s.logger.WarnContext(ctx, "dropping unroutable email",
				"msgid", email.MessageID, "from", email.From)
			w.WriteHeader(http.StatusOK)
			return
		}
		s.logger.ErrorContext(ctx, "failed to route email",
			"msgid", email.MessageID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleModifyPurchase applies the dashboard's save/undo form to a
// purchase's amendment.
func (s *Server) handleModifyPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	form := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}

	if err := core.ModifyPurchase(ctx, s.ledger, s.logger, form); err != nil {
		switch {
		case errors.Is(err, core.ErrMalformedForm):
			w.WriteHeader(http.StatusBadRequest)
		case errors.Is(err, storage.ErrNoRows):
			w.WriteHeader(http.StatusNotFound)
		default:
			s.logger.ErrorContext(ctx, "failed to modify purchase", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	// The amended view changed: stale dashboard entries must not outlive
	// the edit, and downstream consumers get a poke.
	s.invalidateDashboard(ctx, form["id"])

	w.WriteHeader(http.StatusOK)
}

func (s *Server) invalidateDashboard(ctx context.Context, idField string) {
	id, err := strconv.ParseInt(idField, 10, 64)
	if err != nil {
		return
	}

	if p, err := s.ledger.LookupPurchase(ctx, id); err == nil {
		s.dropUserCacheEntries(p.UserID)
	}

	if s.events != nil {
		if err := s.events.PublishPurchaseAmended(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish amendment event",
				"purchase_id", id, "error", err)
		}
	}
}

type dashboardResponse struct {
	UserID int64          `json:"user_id"`
	Days   []dashboardDay `json:"days"`
}

type dashboardDay struct {
	Date         string          `json:"date"`
	SpendInCents int64           `json:"spend_in_cents"`
	Spend        string          `json:"spend"`
	Purchases    []core.Purchase `json:"purchases"`
}

// handleDashboard serves the user's daily spend series for the trailing
// period, default 14 days.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	days := 14
	if v := r.URL.Query().Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	key := dashboardCacheKey(userID, days)
	if cached, ok := s.dashCache.Get(key); ok {
		writeJSON(w, cached)
		return
	}

	user, err := s.users.LookupUser(ctx, userID)
	if errors.Is(err, storage.ErrNoRows) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to look up user", "user_id", userID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	series, err := s.aggregator.DailySpend(ctx, user, days)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to build daily spend", "user_id", userID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resp := dashboardResponse{UserID: user.UserID}
	for _, day := range series {
		resp.Days = append(resp.Days, dashboardDay{
			Date:         day.Date.Format("2006-01-02"),
			SpendInCents: day.SpendInCents,
			Spend:        core.CentsToDollarString(day.SpendInCents),
			Purchases:    day.Purchases,
		})
	}

	s.dashCache.Set(key, resp)
	writeJSON(w, resp)
}

func dashboardCacheKey(userID int64, days int) string {
	return fmt.Sprintf("%d:%d", userID, days)
}

// dropUserCacheEntries clears every cached period length for the user.
func (s *Server) dropUserCacheEntries(userID int64) {
	// Period lengths are small; deleting the common ones is enough since
	// entries also expire by TTL.
	for days := 0; days <= 90; days++ {
		s.dashCache.Delete(dashboardCacheKey(userID, days))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
