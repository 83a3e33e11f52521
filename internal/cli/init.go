// Package cli holds the start-up steps shared by the binaries under cmd/.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"conti/internal/amqp"
	"conti/internal/backend"
	"conti/internal/config"
	"conti/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(level, format, component string) *log.Logger {
	logger := log.New(log.Config{
		Component: component,
		Handler:   log.NewHandler(os.Stdout, format, log.ParseLevel(level)),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile reads .env when present. Real environment variables win.
func LoadEnvFile() {
	_ = godotenv.Load()
}

func fatal(logger *log.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}

// LoadAndValidateConfig exits when the environment does not describe a
// usable configuration.
func LoadAndValidateConfig(component string) (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, cfg.LogFormat, component)
	if err := cfg.Validate(); err != nil {
		fatal(logger, "Invalid configuration", log.FieldError, err)
	}
	return cfg, logger
}

// InitBackend opens the repositories, blob store and auth gateway or exits.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		fatal(logger, "Invalid backend configuration", log.FieldError, err)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		fatal(logger, "Backend unavailable", log.FieldError, err, "backend", cfg.DataBackend)
	}
	return result
}

// ConnectAMQP returns a broker client, or nil when AMQP is not configured.
// With required set a connection failure exits the process; otherwise the
// caller continues without events.
func ConnectAMQP(logger *log.Logger, cfg *config.Config, required bool) *amqp.Client {
	if !cfg.UsesAMQP() {
		if required {
			fatal(logger, "AMQP_URL is required")
		}
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		if required {
			fatal(logger, "AMQP connection failed", log.FieldError, err)
		}
		logger.Warn("Failed to initialize AMQP client, recalculating budgets inline", "error", err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. Once
// it fires, cleanup runs with at most timeout to finish and done closes.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup()
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until shutdown has run to completion.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
