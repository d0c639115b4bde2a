package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/config"
	"github.com/Iron-Cow/MonoProject/internal/export/bigquery"
	"github.com/Iron-Cow/MonoProject/internal/ingest"
	"github.com/Iron-Cow/MonoProject/internal/jobs"
	"github.com/Iron-Cow/MonoProject/internal/jobs/inmemory"
	"github.com/Iron-Cow/MonoProject/internal/logger"
	"github.com/Iron-Cow/MonoProject/internal/monobank"
	"github.com/Iron-Cow/MonoProject/internal/notify"
	"github.com/Iron-Cow/MonoProject/internal/refdata"
	"github.com/Iron-Cow/MonoProject/internal/retry"
	"github.com/Iron-Cow/MonoProject/internal/storage"
	"github.com/Iron-Cow/MonoProject/internal/storage/postgres"
	"github.com/Iron-Cow/MonoProject/internal/syncer"
)

// The worker runs the same task handler as the API process plus a scheduler
// that enqueues a full sync on an interval. It exists so statement polling can
// be scaled and restarted independently of the HTTP surface.
func main() {
	// Initialize logger
	log := logger.New()

	cfg := config.Load(log)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	accountRepo := postgres.NewAccountRepository(pool)
	subAccountRepo := postgres.NewSubAccountRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	referenceRepo := postgres.NewReferenceRepository(pool)

	var notifier notify.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create Telegram notifier, falling back to logs only")
		} else {
			notifier = tg
		}
	}

	resolver := refdata.NewResolver(referenceRepo, notifier, log)

	var exporter ingest.Exporter
	if cfg.BigQueryProject != "" && cfg.BigQueryDataset != "" {
		bqExporter, err := bigquery.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
		}
		defer bqExporter.Close()
		exporter = bqExporter
	}

	pipeline := ingest.NewPipeline(subAccountRepo, transactionRepo, resolver, exporter, notifier, log)

	monoClient := monobank.NewClient(cfg.MonoAPIURL, 10*time.Second, log)
	runner := retry.NewRunner(log)
	// Tasks run through the queue, so the queue's policy owns transient
	// rescheduling; the orchestrator must not block a worker in backoff.
	orchestrator := syncer.NewOrchestrator(
		monoClient,
		accountRepo,
		subAccountRepo,
		resolver,
		pipeline,
		runner,
		syncer.Options{
			FetchTransactions: true,
			Policy:            retry.SingleAttempt,
			RegisterPolicy:    retry.SingleAttempt,
		},
		log,
	)

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, cfg.SyncWorkers, retry.SyncPolicy, jobStore, log)

	handler := syncer.NewTaskHandler(orchestrator, accountRepo, cfg.WebhookBaseURL, log)
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().
		Int("workers", cfg.SyncWorkers).
		Int("interval_minutes", cfg.SyncInterval).
		Msg("Worker service started")

	// Scheduler: enqueue a sync task per active account on each tick. The
	// first round fires immediately.
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.SyncInterval) * time.Minute)
		defer ticker.Stop()

		for {
			enqueueSyncRound(ctx, accountRepo, jobQueue, log)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}

func enqueueSyncRound(ctx context.Context, accounts storage.AccountRepository, publisher jobs.Publisher, log zerolog.Logger) {
	active, err := accounts.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list accounts for scheduled sync")
		return
	}
	for _, account := range active {
		task := &jobs.Task{Type: jobs.TaskTypeSyncAccount, AccountID: account.ID}
		if err := publisher.Publish(ctx, task); err != nil {
			log.Error().Err(err).Int64("account_id", account.ID).Msg("Failed to enqueue scheduled sync")
		}
	}
	log.Info().Int("accounts", len(active)).Msg("Scheduled sync round enqueued")
}
