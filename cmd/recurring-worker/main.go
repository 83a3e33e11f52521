package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"conti/internal/cli"
	"conti/internal/log"
	"conti/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	be := cli.InitBackend(context.Background(), logger, cfg)
	defer be.Close()

	// events let conti-worker recalculate budgets and export the new rows
	var publisher services.EventPublisher
	if amqpClient := cli.ConnectAMQP(logger, cfg, false); amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	repo := be.Repository
	categories := services.NewCategoryService(repo)
	budgets := services.NewBudgetService(repo, repo, categories)
	transactions := services.NewTransactionService(repo, categories, budgets, publisher)
	processor := services.NewRecurringProcessor(repo, transactions)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)

	process := func() {
		count, err := processor.ProcessDue(ctx, time.Now())
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
			return
		}
		logger.Info("Recurring processing complete", "transactions_created", count)
	}

	logger.Info("Running initial recurring processing")
	process()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RecurringSchedule, process); err != nil {
		// Validate already parsed the schedule
		logger.Error("Invalid recurring schedule", "error", err, "schedule", cfg.RecurringSchedule)
		return
	}
	scheduler.Start()
	logger.Info("Recurring processor scheduled", "schedule", cfg.RecurringSchedule)

	<-ctx.Done()
	stopped := scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(25 * time.Second):
		logger.Warn("Recurring run still in progress at shutdown")
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}
