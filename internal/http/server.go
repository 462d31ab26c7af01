// Package http holds the thin adapters between the outside world and the
// ledger core: the inbound email webhook, the dashboard data API and the
// purchase amendment form. No rendering happens here; the dashboard is a
// JSON surface.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/eanyanwu/whotookmy.money/internal/cache"
	"github.com/eanyanwu/whotookmy.money/internal/core"
	"github.com/eanyanwu/whotookmy.money/internal/report"
)

// UserSource resolves dashboard users. *storage.Store satisfies it.
type UserSource interface {
	LookupUser(ctx context.Context, id int64) (core.User, error)
}

// Server wires the handlers to the core.
type Server struct {
	router     *core.Router
	ledger     core.Ledger
	users      UserSource
	aggregator *report.Aggregator
	events     core.EventPublisher
	logger     *slog.Logger

	dashCache *cache.LRU[dashboardResponse]
}

// NewServer returns an http.Server listening on addr. events may be nil.
func NewServer(addr string, router *core.Router, ledger core.Ledger, users UserSource, aggregator *report.Aggregator, events core.EventPublisher, logger *slog.Logger) *http.Server {
	s := &Server{
		router:     router,
		ledger:     ledger,
		users:      users,
		aggregator: aggregator,
		events:     events,
		logger:     logger,
		dashCache:  cache.NewLRU[dashboardResponse](256, 30*time.Second),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /postmark", s.handleInboundEmail)
	mux.HandleFunc("POST /purchase", s.handleModifyPurchase)
	mux.HandleFunc("GET /dashboard.json", s.handleDashboard)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return &http.Server{
		Addr:         addr,
		Handler:      traceMiddleware(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}
