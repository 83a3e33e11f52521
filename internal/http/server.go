// Package http serves the JSON API of the app.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"conti/internal/auth"
	"conti/internal/blob"
	"conti/internal/log"
	"conti/internal/middleware/ratelimit"
	"conti/internal/middleware/security"
	"conti/internal/middleware/trace"
	"conti/internal/receipt"
	"conti/internal/services"
)

// maxBodyBytes bounds JSON bodies; receipt images arrive base64 encoded.
const maxBodyBytes = 10 << 20

// Deps are the collaborators the handlers call.
type Deps struct {
	Auth         auth.Gateway
	Groups       *services.GroupService
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Budgets      *services.BudgetService
	Goals        *services.GoalService
	Stats        *services.StatsService
	Analyzer     receipt.Analyzer
	Blobs        blob.Store
	// Ready reports whether the backing services are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP, Handler: slog.Default().Handler()})
	}

	s := &Server{
		deps:     deps,
		logger:   logger,
		detector: security.NewDetector(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/reset", s.handleResetPassword)
	mux.HandleFunc("GET /api/auth/providers/{provider}", s.handleProvider)

	authed := auth.Middleware(s.deps.Auth)
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(h))
	}

	protect("POST /api/auth/signout", s.handleSignOut)
	protect("GET /api/me", s.handleMe)
	protect("POST /api/couple", s.handleLinkCouple)

	protect("GET /api/transactions", s.handleListTransactions)
	protect("POST /api/transactions", s.handleCreateTransaction)
	protect("POST /api/transactions/parse", s.handleParseTranscript)
	protect("GET /api/transactions/{id}", s.handleGetTransaction)
	protect("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	protect("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	protect("GET /api/categories", s.handleListCategories)
	protect("POST /api/categories", s.handleCreateCategory)
	protect("PATCH /api/categories/{id}", s.handleUpdateCategory)
	protect("DELETE /api/categories/{id}", s.handleDeleteCategory)

	protect("GET /api/budgets", s.handleListBudgets)
	protect("POST /api/budgets", s.handleCreateBudget)
	protect("GET /api/budgets/{id}", s.handleGetBudget)
	protect("PATCH /api/budgets/{id}", s.handleUpdateBudget)
	protect("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	protect("GET /api/goals", s.handleListGoals)
	protect("POST /api/goals", s.handleCreateGoal)
	protect("GET /api/goals/{id}", s.handleGetGoal)
	protect("PATCH /api/goals/{id}", s.handleUpdateGoal)
	protect("DELETE /api/goals/{id}", s.handleDeleteGoal)
	protect("POST /api/goals/{id}/contributions", s.handleContributeGoal)

	protect("GET /api/stats", s.handleStats)
	protect("GET /api/reports/expenses.png", s.handleExpenseReport)
	protect("GET /api/reports/monthly.png", s.handleMonthlyReport)

	protect("POST /api/receipts/analyze", s.handleAnalyzeReceipt)

	// outermost first
	return chain(mux,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		security.CacheControl("no-store"),
		s.tracer.Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
		}),
		log.Middleware(s.logger),
		log.RequestIDMiddleware(trace.RequestIDFromRequest),
	)
}

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
