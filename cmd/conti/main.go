package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"conti/internal/cache"
	"conti/internal/cli"
	"conti/internal/core"
	apphttp "conti/internal/http"
	"conti/internal/log"
	"conti/internal/receipt"
	"conti/internal/services"
	"conti/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	ctx := context.Background()
	be := cli.InitBackend(ctx, logger, cfg)
	defer be.Close()

	amqpClient := cli.ConnectAMQP(logger, cfg, false)
	var publisher services.EventPublisher
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	repo := be.Repository
	dashboards := cache.NewLRUCache[services.Dashboard](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(dashboards)
	caches.StartCleanup(cfg.CacheTTL)
	defer caches.Stop()

	categories := services.NewCategoryService(repo)
	budgets := services.NewBudgetService(repo, repo, categories)
	transactions := services.NewTransactionService(repo, categories, budgets, publisher)
	statsService := services.NewStatsService(repo, repo, dashboards)
	transactions.OnChange(statsService.Invalidate)

	groups := services.NewGroupService(repo)
	unsubscribe := be.Auth.Subscribe(groups.OnSession(ctx))
	defer unsubscribe()

	analyzer, closeAnalyzer := newAnalyzer(logger, cfg.ReceiptAddr, cfg.ReceiptToken, cfg.ReceiptMaxConcurrent)
	defer closeAnalyzer()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:         be.Auth,
		Groups:       groups,
		Transactions: transactions,
		Categories:   categories,
		Budgets:      budgets,
		Goals:        services.NewGoalService(repo, categories),
		Stats:        statsService,
		Analyzer:     analyzer,
		Blobs:        be.Blobs,
		Ready:        readiness(repo),
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(log.ComponentHTTP),
	})
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting conti server", "port", cfg.Port, "backend", cfg.DataBackend, "auth", cfg.AuthBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// newAnalyzer dials the receipt service when an address is configured and
// falls back to the in-process analyzer otherwise.
func newAnalyzer(logger *log.Logger, addr, token string, maxConcurrent int) (receipt.Analyzer, func()) {
	if addr == "" {
		logger.Info("Using in-process receipt analyzer", "max_concurrent", maxConcurrent)
		return receipt.NewMockAnalyzer(maxConcurrent), func() {}
	}
	client, err := receipt.Dial(addr, token)
	if err != nil {
		logger.Error("Failed to create receipt analyzer client", "error", err, "addr", addr)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		logger.Warn("Receipt analyzer not reachable yet", "error", err, "addr", addr)
	} else {
		logger.Info("Connected to receipt analyzer", "addr", addr)
	}
	return client, func() { _ = client.Close() }
}

// readiness probes the backend with a lookup that is expected to miss.
func readiness(repo storage.Repository) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := repo.GetGroup(ctx, "readyz-probe")
		if err == nil || errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}
}
