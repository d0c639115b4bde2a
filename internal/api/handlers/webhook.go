package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/api/middleware"
	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/ingest"
	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// maxWebhookBody bounds inbound webhook payloads.
const maxWebhookBody = 64 * 1024

// WebhookIngestor is the slice of the ingestion pipeline the webhook handler
// needs.
type WebhookIngestor interface {
	IngestWebhook(ctx context.Context, account *domain.Account, payload *ingest.WebhookPayload) (ingest.Outcome, error)
}

// Archiver stores raw webhook payloads for audit/replay.
type Archiver interface {
	ArchivePayload(ctx context.Context, payload []byte) (string, error)
}

// WebhookHandler receives pushed statement events from the upstream bank.
type WebhookHandler struct {
	accounts storage.AccountRepository
	ingestor WebhookIngestor
	archiver Archiver // optional
	log      zerolog.Logger
}

// NewWebhookHandler creates the handler. archiver may be nil.
func NewWebhookHandler(accounts storage.AccountRepository, ingestor WebhookIngestor, archiver Archiver, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{accounts: accounts, ingestor: ingestor, archiver: archiver, log: log}
}

// Handle serves the webhook route. GET is the upstream's reachability probe
// and always answers 200; POST carries one statement event.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *WebhookHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		middleware.WriteError(w, http.StatusForbidden, "token query param is not specified")
		return
	}

	account, err := h.accounts.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		h.log.Warn().Str("event", "webhook_unknown_token").Msg("Webhook with unknown token")
		middleware.WriteError(w, http.StatusForbidden, "invalid token")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Account lookup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to resolve token")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Unreadable request body")
		return
	}

	h.archive(body)

	var payload ingest.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}

	outcome, err := h.ingestor.IngestWebhook(ctx, account, &payload)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	status := http.StatusCreated
	if outcome == ingest.OutcomeAlreadyExists {
		status = http.StatusOK
	}
	middleware.WriteJSON(w, status, map[string]string{
		"status":      outcome.String(),
		"transaction": payload.StatementItem.ID,
	})
}

// writeIngestError maps the pipeline's error taxonomy onto response codes.
func (h *WebhookHandler) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		middleware.WriteError(w, http.StatusForbidden, "token does not own the referenced sub-account")
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "unknown sub-account")
	default:
		h.log.Error().Err(err).Msg("Webhook ingestion failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Ingestion failed")
	}
}

// archive ships the raw payload to the audit store without blocking the
// response. Failures are logged only.
func (h *WebhookHandler) archive(body []byte) {
	if h.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := h.archiver.ArchivePayload(ctx, body); err != nil {
			h.log.Error().Err(err).Msg("Webhook payload archive failed")
		}
	}()
}
