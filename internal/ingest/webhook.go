package ingest

import (
	"context"
	"fmt"

	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/monobank"
)

// statementItemType is the only envelope type the upstream pushes today.
const statementItemType = "StatementItem"

// WebhookPayload is the inbound webhook envelope.
type WebhookPayload struct {
	Account       string                 `json:"account"`
	StatementItem monobank.StatementItem `json:"statementItem"`
	Type          string                 `json:"type"`
}

// IngestWebhook processes one webhook delivery on behalf of the account that
// presented the token. It resolves the sub-account once into the typed union,
// verifies the token belongs to the owning account and then runs the shared
// ingestion path. A token/owner mismatch is an authorization failure, kept
// distinct from validation failures because it is a potential integrity or
// security signal.
func (p *Pipeline) IngestWebhook(ctx context.Context, account *domain.Account, payload *WebhookPayload) (Outcome, error) {
	if payload.Type != statementItemType {
		return 0, domain.NewValidationError("type", fmt.Sprintf("unsupported envelope type %q", payload.Type))
	}

	sub, err := p.ResolveSubAccount(ctx, payload.Account)
	if err != nil {
		return 0, err
	}

	if sub.OwnerAccountID() != account.ID {
		p.log.Warn().
			Str("sub_account_id", sub.ExternalID()).
			Int64("token_account_id", account.ID).
			Int64("owner_account_id", sub.OwnerAccountID()).
			Str("event", "webhook_token_mismatch").
			Msg("Webhook token does not own the referenced sub-account")
		return 0, fmt.Errorf("sub-account %s: %w", sub.ExternalID(), domain.ErrUnauthorized)
	}

	return p.Ingest(ctx, sub, payload.StatementItem)
}
