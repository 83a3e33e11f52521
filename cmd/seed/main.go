package main

import (
	"context"
	"flag"
	"os"
	"time"

	"conti/internal/cli"
	"conti/internal/log"
	"conti/internal/seed"
	"conti/internal/services"
)

func main() {
	var (
		userID       = flag.String("user", "", "user id whose current group receives the data (required)")
		ownerName    = flag.String("name", "", "display name stored on the transactions")
		transactions = flag.Int("transactions", 120, "number of transactions")
		months       = flag.Int("months", 6, "spread transactions over this many months")
		budgets      = flag.Int("budgets", 3, "number of monthly budgets")
		goals        = flag.Int("goals", 2, "number of savings goals")
		seedValue    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	if *userID == "" {
		logger.Error("Missing -user")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	be := cli.InitBackend(ctx, logger, cfg)
	defer be.Close()

	repo := be.Repository
	group, err := services.NewGroupService(repo).Current(ctx, *userID)
	if err != nil {
		logger.Error("Failed to resolve group", "error", err, log.FieldUserID, *userID)
		os.Exit(1)
	}

	categories := services.NewCategoryService(repo)
	budgetService := services.NewBudgetService(repo, repo, categories)
	seeder := seed.New(categories,
		services.NewTransactionService(repo, categories, budgetService, nil),
		budgetService,
		services.NewGoalService(repo, categories),
		*seedValue)

	res, err := seeder.Run(ctx, seed.Options{
		GroupID:      group.ID,
		OwnerID:      *userID,
		OwnerName:    *ownerName,
		Transactions: *transactions,
		Months:       *months,
		Budgets:      *budgets,
		Goals:        *goals,
	})
	if err != nil {
		logger.Error("Seeding failed", "error", err, log.FieldGroupID, group.ID)
		os.Exit(1)
	}
	logger.Info("Seeded demo data",
		log.FieldGroupID, group.ID,
		"transactions", res.Transactions,
		"budgets", res.Budgets,
		"goals", res.Goals,
		"seed", *seedValue)
}
