package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Iron-Cow/MonoProject/internal/api/handlers"
	"github.com/Iron-Cow/MonoProject/internal/api/middleware"
	"github.com/Iron-Cow/MonoProject/internal/archive"
	"github.com/Iron-Cow/MonoProject/internal/config"
	"github.com/Iron-Cow/MonoProject/internal/export/bigquery"
	"github.com/Iron-Cow/MonoProject/internal/family"
	"github.com/Iron-Cow/MonoProject/internal/ingest"
	"github.com/Iron-Cow/MonoProject/internal/jobs"
	"github.com/Iron-Cow/MonoProject/internal/jobs/inmemory"
	"github.com/Iron-Cow/MonoProject/internal/logger"
	"github.com/Iron-Cow/MonoProject/internal/monobank"
	"github.com/Iron-Cow/MonoProject/internal/notify"
	"github.com/Iron-Cow/MonoProject/internal/refdata"
	"github.com/Iron-Cow/MonoProject/internal/retry"
	"github.com/Iron-Cow/MonoProject/internal/storage/postgres"
	"github.com/Iron-Cow/MonoProject/internal/syncer"
)

func main() {
	// Initialize logger
	log := logger.New()

	cfg := config.Load(log)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx := context.Background()

	// Initialize repositories
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	accountRepo := postgres.NewAccountRepository(pool)
	subAccountRepo := postgres.NewSubAccountRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	referenceRepo := postgres.NewReferenceRepository(pool)
	familyRepo := postgres.NewFamilyRepository(pool)

	// Operator notifications for reference-data gaps go to Telegram when
	// configured, otherwise they stay in the logs.
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

	// Optional reporting export
	var exporter ingest.Exporter
	if cfg.BigQueryProject != "" && cfg.BigQueryDataset != "" {
		bqExporter, err := bigquery.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
		}
		defer bqExporter.Close()
		exporter = bqExporter
		log.Info().Str("project", cfg.BigQueryProject).Str("dataset", cfg.BigQueryDataset).Msg("Reporting export enabled")
	}

	// Optional raw payload archive
	var archiver handlers.Archiver
	if cfg.GCSBucket != "" {
		gcs, err := archive.NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create payload archive")
		}
		defer gcs.Close()
		archiver = gcs
		log.Info().Str("bucket", cfg.GCSBucket).Msg("Webhook payload archive enabled")
	}

	pipeline := ingest.NewPipeline(subAccountRepo, transactionRepo, resolver, exporter, notifier, log)
	familyService := family.NewService(familyRepo)

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

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, cfg.SyncWorkers, retry.SyncPolicy, jobStore, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	taskHandler := syncer.NewTaskHandler(orchestrator, accountRepo, cfg.WebhookBaseURL, log)
	if err := jobQueue.Start(workerCtx, taskHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Re-register webhooks on startup so the upstream always points at the
	// current deployment.
	if cfg.WebhookBaseURL != "" {
		accounts, err := accountRepo.ListActive(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list accounts for webhook registration")
		} else {
			for _, account := range accounts {
				task := &jobs.Task{Type: jobs.TaskTypeRegisterWebhook, AccountID: account.ID, Token: account.Token}
				if err := jobQueue.Publish(ctx, task); err != nil {
					log.Error().Err(err).Int64("account_id", account.ID).Msg("Failed to enqueue webhook registration")
				}
			}
			log.Info().Int("accounts", len(accounts)).Str("base_url", cfg.WebhookBaseURL).Msg("Webhook registration enqueued")
		}
	}

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(accountRepo, pipeline, archiver, log)
	familyHandler := handlers.NewFamilyHandler(familyService, log)
	syncHandler := handlers.NewSyncHandler(accountRepo, jobQueue, log)

	// Create router
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/", webhookHandler.Handle)
	mux.HandleFunc("/family/expand", familyHandler.Expand)
	mux.HandleFunc("/sync/accounts", syncHandler.SyncAccounts)
	mux.HandleFunc("/healthz", handlers.Health)

	// Apply middleware chain
	var handler http.Handler = mux
	handler = middleware.CORS(handler)
	handler = middleware.Recovery(log)(handler)
	handler = middleware.Logger(log)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during job queue shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("API server exited")
}
