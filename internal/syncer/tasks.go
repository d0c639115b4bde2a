package syncer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/jobs"
	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// NewTaskHandler adapts the orchestrator to the task queue. webhookURL may be
// empty, in which case registration tasks fail terminally instead of hitting
// the upstream with a useless URL.
func NewTaskHandler(o *Orchestrator, accounts storage.AccountRepository, webhookURL string, log zerolog.Logger) jobs.Handler {
	return func(ctx context.Context, task *jobs.Task) error {
		switch task.Type {
		case jobs.TaskTypeSyncAccount:
			account, err := accounts.GetByID(ctx, task.AccountID)
			if err != nil {
				return fmt.Errorf("sync task %s: %w", task.TaskID, err)
			}
			report, err := o.SyncAccount(ctx, account)
			if err != nil {
				return err
			}
			if report.Failed() {
				return report.Err
			}
			log.Info().
				Str("task_id", task.TaskID).
				Int64("account_id", report.AccountID).
				Int("cards", report.CardsUpdated).
				Int("jars", report.JarsUpdated).
				Int("transactions", report.TransactionsIngested).
				Msg("Sync task completed")
			return nil

		case jobs.TaskTypeRegisterWebhook:
			if webhookURL == "" {
				return fmt.Errorf("register task %s: webhook base URL is not configured", task.TaskID)
			}
			url := fmt.Sprintf("%s?token=%s", webhookURL, task.Token)
			return o.RegisterWebhook(ctx, task.Token, url)

		default:
			return fmt.Errorf("unexpected task type: %s", task.Type)
		}
	}
}
