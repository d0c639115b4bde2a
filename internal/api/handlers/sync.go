package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/api/middleware"
	"github.com/Iron-Cow/MonoProject/internal/jobs"
	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// SyncHandler enqueues background synchronization work.
type SyncHandler struct {
	accounts  storage.AccountRepository
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewSyncHandler creates the handler.
func NewSyncHandler(accounts storage.AccountRepository, publisher jobs.Publisher, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{accounts: accounts, publisher: publisher, log: log}
}

// SyncAccounts handles POST /sync/accounts: one sync task per active account.
func (h *SyncHandler) SyncAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx := r.Context()

	accounts, err := h.accounts.ListActive(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	taskIDs := make([]string, 0, len(accounts))
	for _, account := range accounts {
		task := &jobs.Task{Type: jobs.TaskTypeSyncAccount, AccountID: account.ID}
		if err := h.publisher.Publish(ctx, task); err != nil {
			h.log.Error().Err(err).Int64("account_id", account.ID).Msg("Failed to enqueue sync task")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync")
			return
		}
		taskIDs = append(taskIDs, task.TaskID)
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_ids": taskIDs,
		"count":    len(taskIDs),
	})
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
