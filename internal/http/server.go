// Package http exposes the ledger, the aggregates and the report over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finboard/internal/aggregate"
	"finboard/internal/cache"
	applog "finboard/internal/log"
	"finboard/internal/services"
)

// Deps are the collaborators the handlers read from and write to.
type Deps struct {
	Ledger  *services.LedgerService
	Engine  *aggregate.Engine
	Reports *services.ReportService
	Logger  *applog.Logger
	// Location interprets request dates and formats response dates.
	Location *time.Location
	// WritesPerMinute limits mutating requests per client. Zero disables it.
	WritesPerMinute int
}

type Server struct {
	http.Server
	ledger  *services.LedgerService
	engine  *aggregate.Engine
	reports *services.ReportService
	loc     *time.Location
	limiter *rateLimiter

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		ledger:  deps.Ledger,
		engine:  deps.Engine,
		reports: deps.Reports,
		loc:     deps.Location,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(applog.Middleware(logger.WithComponent(applog.ComponentHTTP)))
	r.Use(applog.RequestIDMiddleware)
	r.Use(applog.AccessLog)
	r.Use(securityHeaders)
	if deps.WritesPerMinute > 0 {
		s.limiter = newRateLimiter(deps.WritesPerMinute, time.Minute)
		r.Use(s.limiter.limitWrites)
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Get("/summary", s.handleSummary)
		r.Get("/categories", handleCategories)
		r.Get("/breakdown/{type}", s.handleBreakdown)
		r.Get("/report", s.handleReport)
		r.Post("/report/sheets", s.handlePublishSheets)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Limiter returns the write limiter for periodic sweeping, or nil.
func (s *Server) Limiter() cache.Cleaner {
	if s.limiter == nil {
		return nil
	}
	return s.limiter
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady succeeds once the engine holds a valid snapshot.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.Totals(); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
