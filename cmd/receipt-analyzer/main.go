package main

import (
	"os"
	"time"

	"conti/internal/cli"
	"conti/internal/log"
	"conti/internal/receipt"
)

const defaultAddr = ":9090"

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentReceipt)

	addr := cfg.ReceiptAddr
	if addr == "" {
		addr = defaultAddr
	}

	srv := receipt.NewServer(addr, cfg.ReceiptToken, receipt.NewMockAnalyzer(cfg.ReceiptMaxConcurrent), logger)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, srv.Stop)

	logger.Info("Starting receipt analyzer", "addr", addr, "max_concurrent", cfg.ReceiptMaxConcurrent)
	if err := srv.Start(); err != nil {
		logger.Error("Receipt analyzer server error", "error", err, "addr", addr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Receipt analyzer stopped gracefully")
}
