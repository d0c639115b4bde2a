package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Iron-Cow/MonoProject/internal/config"
	"github.com/Iron-Cow/MonoProject/internal/ingest"
	"github.com/Iron-Cow/MonoProject/internal/logger"
	"github.com/Iron-Cow/MonoProject/internal/monobank"
	"github.com/Iron-Cow/MonoProject/internal/notify"
	"github.com/Iron-Cow/MonoProject/internal/refdata"
	"github.com/Iron-Cow/MonoProject/internal/retry"
	"github.com/Iron-Cow/MonoProject/internal/storage/postgres"
	"github.com/Iron-Cow/MonoProject/internal/syncer"
)

// One-shot sync over all active accounts, for cron jobs and manual runs.
func main() {
	var (
		skipStatements = flag.Bool("skip-statements", false, "only refresh cards and jars, skip statement polling")
		windowDays     = flag.Int("window-days", 30, "statement polling window in days")
	)
	flag.Parse()

	log := logger.New()

	cfg := config.Load(log)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	accountRepo := postgres.NewAccountRepository(pool)
	subAccountRepo := postgres.NewSubAccountRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	referenceRepo := postgres.NewReferenceRepository(pool)

	resolver := refdata.NewResolver(referenceRepo, notify.Noop{}, log)
	pipeline := ingest.NewPipeline(subAccountRepo, transactionRepo, resolver, nil, nil, log)

	monoClient := monobank.NewClient(cfg.MonoAPIURL, 10*time.Second, log)
	orchestrator := syncer.NewOrchestrator(
		monoClient,
		accountRepo,
		subAccountRepo,
		resolver,
		pipeline,
		retry.NewRunner(log),
		syncer.Options{
			FetchTransactions: !*skipStatements,
			StatementWindow:   time.Duration(*windowDays) * 24 * time.Hour,
		},
		log,
	)

	reports, err := orchestrator.SyncAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync run failed")
	}

	failed := 0
	for _, report := range reports {
		if report.Failed() {
			failed++
			fmt.Printf("account %d (%s): FAILED: %v\n", report.AccountID, report.UserID, report.Err)
			continue
		}
		fmt.Printf("account %d (%s): %d cards, %d jars, %d transactions\n",
			report.AccountID, report.UserID, report.CardsUpdated, report.JarsUpdated, report.TransactionsIngested)
	}

	fmt.Printf("synced %d accounts, %d failed\n", len(reports), failed)
	if failed > 0 {
		os.Exit(1)
	}
}
