// Package ingest validates, deduplicates and persists transaction events,
// whether they arrived via webhook push or statement polling. Storage writes
// are idempotent on the upstream external id, so redelivered or out-of-order
// events are safe by construction.
package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/monobank"
	"github.com/Iron-Cow/MonoProject/internal/notify"
	"github.com/Iron-Cow/MonoProject/internal/refdata"
	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// Outcome reports what a single ingestion did.
type Outcome int

const (
	// OutcomeCreated means a new transaction row was stored.
	OutcomeCreated Outcome = iota
	// OutcomeAlreadyExists means the external id was already stored and no
	// write happened.
	OutcomeAlreadyExists
)

func (o Outcome) String() string {
	if o == OutcomeCreated {
		return "created"
	}
	return "already_exists"
}

// Exporter receives successfully stored transactions for downstream
// reporting. Export failures never fail an ingestion.
type Exporter interface {
	ExportTransaction(ctx context.Context, tx *domain.Transaction) error
}

// Pipeline ingests single transaction events.
type Pipeline struct {
	subAccounts  storage.SubAccountRepository
	transactions storage.TransactionRepository
	resolver     *refdata.Resolver
	exporter     Exporter // optional
	notifier     notify.Notifier
	log          zerolog.Logger
}

// NewPipeline wires the pipeline. exporter may be nil; a nil notifier
// disables transaction notifications.
func NewPipeline(
	subAccounts storage.SubAccountRepository,
	transactions storage.TransactionRepository,
	resolver *refdata.Resolver,
	exporter Exporter,
	notifier notify.Notifier,
	log zerolog.Logger,
) *Pipeline {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Pipeline{
		subAccounts:  subAccounts,
		transactions: transactions,
		resolver:     resolver,
		exporter:     exporter,
		notifier:     notifier,
		log:          log,
	}
}

// ResolveSubAccount resolves an external sub-account id into the typed
// Card/Jar union. An id matching neither is a data-integrity signal, surfaced
// as domain.ErrNotFound rather than silently dropped.
func (p *Pipeline) ResolveSubAccount(ctx context.Context, externalID string) (domain.SubAccount, error) {
	if externalID == "" {
		return domain.SubAccount{}, domain.NewValidationError("account", "missing sub-account id")
	}
	sub, err := p.subAccounts.Resolve(ctx, externalID)
	if err != nil {
		return domain.SubAccount{}, fmt.Errorf("resolve sub-account %q: %w", externalID, err)
	}
	return sub, nil
}

// Ingest processes one normalized statement item for an already-resolved
// sub-account.
func (p *Pipeline) Ingest(ctx context.Context, sub domain.SubAccount, item monobank.StatementItem) (Outcome, error) {
	// 1. Validate the event before anything touches the store.
	if err := validateItem(item); err != nil {
		return 0, err
	}

	// 2. Idempotency check: upstream may redeliver arbitrarily many times.
	exists, err := p.transactions.Exists(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: existence check: %w", item.ID, err)
	}
	if exists {
		p.log.Debug().Str("transaction_id", item.ID).Msg("Duplicate event, skipping")
		return OutcomeAlreadyExists, nil
	}

	// 3. Resolve reference data, creating placeholders for unknown codes.
	currency, err := p.resolver.ResolveCurrency(ctx, item.CurrencyCode)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", item.ID, err)
	}
	categoryCode, err := p.resolver.ResolveCategory(ctx, item.MCC)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", item.ID, err)
	}

	// 4. Persist atomically; a concurrent writer racing on the same id turns
	// this into a no-op insert.
	tx := &domain.Transaction{
		ID:              item.ID,
		SubAccountID:    sub.ExternalID(),
		SubAccountKind:  sub.Kind,
		Time:            item.Time,
		Amount:          item.Amount,
		OperationAmount: item.OperationAmount,
		CurrencyCode:    currency.Code,
		CommissionRate:  item.CommissionRate,
		CashbackAmount:  item.CashbackAmount,
		Balance:         item.Balance,
		Hold:            item.Hold,
		Description:     item.Description,
		Comment:         item.Comment,
		ReceiptID:       item.ReceiptID,
		MCC:             item.MCC,
		OriginalMCC:     item.OriginalMCC,
		CategoryCodeID:  categoryCode.ID,
	}
	created, err := p.transactions.Insert(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: insert: %w", item.ID, err)
	}
	if !created {
		return OutcomeAlreadyExists, nil
	}

	p.log.Info().
		Str("transaction_id", tx.ID).
		Str("sub_account_id", tx.SubAccountID).
		Str("kind", string(tx.SubAccountKind)).
		Int64("amount", tx.Amount).
		Msg("Transaction stored")

	// 5. Hand the stored row to the reporting export, best effort.
	if p.exporter != nil {
		if err := p.exporter.ExportTransaction(ctx, tx); err != nil {
			p.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Reporting export failed")
		}
	}

	// 6. Announce the new transaction on the configured notification chat,
	// also best effort.
	text := fmt.Sprintf("%s: %s", item.Description, domain.FormatMinor(tx.Amount, currency.Name))
	if err := p.notifier.Notify(ctx, text); err != nil {
		p.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Transaction notification failed")
	}

	return OutcomeCreated, nil
}
