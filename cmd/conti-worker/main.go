package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"conti/internal/cli"
	"conti/internal/config"
	"conti/internal/log"
	"conti/internal/services"
	"conti/internal/sheets"
	gsheet "conti/internal/sheets/google"
	sheetsmemory "conti/internal/sheets/memory"
	"conti/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting conti-worker")

	be := cli.InitBackend(context.Background(), logger, cfg)
	defer be.Close()

	amqpClient := cli.ConnectAMQP(logger, cfg, true)
	defer amqpClient.Close()

	exporter := newExporter(logger, cfg)

	repo := be.Repository
	categories := services.NewCategoryService(repo)
	budgets := services.NewBudgetService(repo, repo, categories)
	eventWorker := worker.NewEventWorker(repo, repo, budgets, exporter)
	recalculator := services.NewRecalculator(repo, budgets, cfg.RecalcInterval)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Performing startup resync")
		exported, failed, err := eventWorker.Resync(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			// a failed resync is retried on the next start; consumption goes on
			logger.Error("Startup resync failed", "error", err, "exported", exported, "failed", failed)
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(amqpClient.ConsumeTransactionEvents(gctx, eventWorker.Handle))
	})
	g.Go(func() error {
		return recalculator.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

// newExporter mirrors transactions to Google Sheets when configured and
// keeps them in memory otherwise.
func newExporter(logger *log.Logger, cfg *config.Config) sheets.Exporter {
	if !cfg.UsesSheets() {
		logger.Info("Google Sheets disabled, exporting to memory")
		return sheetsmemory.New()
	}
	creds, err := gsheet.LoadCredentials(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
	if err != nil {
		logger.Error("Failed to load Google credentials", "error", err)
		os.Exit(1)
	}
	client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, creds)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return client
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
