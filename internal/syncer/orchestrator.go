// Package syncer refreshes local card/jar state from the upstream API and
// fans fetched statement windows out to the ingestion pipeline. Each account
// syncs independently: one account's failure never aborts a batch run.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/ingest"
	"github.com/Iron-Cow/MonoProject/internal/monobank"
	"github.com/Iron-Cow/MonoProject/internal/refdata"
	"github.com/Iron-Cow/MonoProject/internal/retry"
	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// defaultStatementWindow matches the upstream's 30-day statement limit.
const defaultStatementWindow = 30 * 24 * time.Hour

// defaultStatementWorkers bounds concurrent statement fetches within one
// account.
const defaultStatementWorkers = 3

// AccountClient is the slice of the upstream API the orchestrator needs.
type AccountClient interface {
	ClientInfo(ctx context.Context, token string) (*monobank.ClientInfo, error)
	Statement(ctx context.Context, token, subAccountID string, from, to int64) ([]monobank.StatementItem, error)
	RegisterWebhook(ctx context.Context, token, webhookURL string) error
}

// Ingestor is the slice of the ingestion pipeline the orchestrator needs.
type Ingestor interface {
	Ingest(ctx context.Context, sub domain.SubAccount, item monobank.StatementItem) (ingest.Outcome, error)
}

// Report summarizes one account's sync.
type Report struct {
	AccountID            int64
	UserID               string
	CardsUpdated         int
	JarsUpdated          int
	TransactionsIngested int

	// Err is the terminal failure when the sync did not complete; nil means
	// success.
	Err error
}

// Failed reports whether the sync ended in SyncFailed state.
func (r *Report) Failed() bool { return r.Err != nil }

// Options tune an Orchestrator.
type Options struct {
	// StatementWindow is how far back statement polling reaches. Zero keeps
	// the 30-day default.
	StatementWindow time.Duration

	// StatementWorkers bounds concurrent per-sub-account statement fetches.
	StatementWorkers int

	// FetchTransactions disables statement fan-out entirely when false is
	// wanted; sync then only refreshes card/jar state.
	FetchTransactions bool

	// Policy is the retry policy wrapped around upstream fetches. Processes
	// that dispatch sync through the task queue pass retry.SingleAttempt and
	// let the queue's policy own rescheduling.
	Policy retry.Policy

	// RegisterPolicy is the retry policy for webhook registration.
	RegisterPolicy retry.Policy
}

// Orchestrator implements account synchronization.
type Orchestrator struct {
	client      AccountClient
	accounts    storage.AccountRepository
	subAccounts storage.SubAccountRepository
	resolver    *refdata.Resolver
	ingestor    Ingestor
	runner      *retry.Runner
	opts        Options
	log         zerolog.Logger
}

// NewOrchestrator wires the orchestrator.
func NewOrchestrator(
	client AccountClient,
	accounts storage.AccountRepository,
	subAccounts storage.SubAccountRepository,
	resolver *refdata.Resolver,
	ingestor Ingestor,
	runner *retry.Runner,
	opts Options,
	log zerolog.Logger,
) *Orchestrator {
	if opts.StatementWindow <= 0 {
		opts.StatementWindow = defaultStatementWindow
	}
	if opts.StatementWorkers <= 0 {
		opts.StatementWorkers = defaultStatementWorkers
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.SyncPolicy
	}
	if opts.RegisterPolicy.MaxAttempts == 0 {
		opts.RegisterPolicy = retry.WebhookRegisterPolicy
	}
	return &Orchestrator{
		client:      client,
		accounts:    accounts,
		subAccounts: subAccounts,
		resolver:    resolver,
		ingestor:    ingestor,
		runner:      runner,
		opts:        opts,
		log:         log,
	}
}

// SyncAccount refreshes one account's cards and jars and optionally ingests
// each sub-account's recent transaction window. The returned report carries
// the terminal error instead of failing the call; the error return is
// reserved for store-unreachable conditions.
func (o *Orchestrator) SyncAccount(ctx context.Context, account *domain.Account) (*Report, error) {
	report := &Report{AccountID: account.ID, UserID: account.UserID}
	log := o.log.With().Int64("account_id", account.ID).Str("user_id", account.UserID).Logger()

	var info *monobank.ClientInfo
	err := o.runner.Execute(ctx, "client-info", o.opts.Policy, func(ctx context.Context) error {
		var fetchErr error
		info, fetchErr = o.client.ClientInfo(ctx, account.Token)
		return fetchErr
	})
	if err != nil {
		log.Error().Err(err).Msg("Account sync failed")
		report.Err = err
		return report, nil
	}

	subs := make([]domain.SubAccount, 0, len(info.Accounts)+len(info.Jars))

	for i := range info.Accounts {
		card, err := o.upsertCard(ctx, account, &info.Accounts[i])
		if err != nil {
			report.Err = err
			return report, nil
		}
		report.CardsUpdated++
		subs = append(subs, domain.CardSubAccount(card))
	}

	for i := range info.Jars {
		jar, err := o.upsertJar(ctx, account, &info.Jars[i])
		if err != nil {
			report.Err = err
			return report, nil
		}
		report.JarsUpdated++
		subs = append(subs, domain.JarSubAccount(jar))
	}

	if o.opts.FetchTransactions {
		report.TransactionsIngested = o.ingestStatements(ctx, account, subs, log)
	}

	log.Info().
		Int("cards", report.CardsUpdated).
		Int("jars", report.JarsUpdated).
		Int("transactions", report.TransactionsIngested).
		Msg("Account synced")
	return report, nil
}

// SyncAll syncs every active account. A failing account yields a report with
// Err set; the rest of the batch continues.
func (o *Orchestrator) SyncAll(ctx context.Context) ([]*Report, error) {
	accounts, err := o.accounts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync all: listing accounts: %w", err)
	}

	reports := make([]*Report, 0, len(accounts))
	for _, account := range accounts {
		report, err := o.SyncAccount(ctx, account)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// RegisterWebhook registers the public webhook URL for one token under the
// webhook retry policy.
func (o *Orchestrator) RegisterWebhook(ctx context.Context, token, webhookURL string) error {
	return o.runner.Execute(ctx, "register-webhook", o.opts.RegisterPolicy, func(ctx context.Context) error {
		return o.client.RegisterWebhook(ctx, token, webhookURL)
	})
}

// upsertCard resolves the card's currency and overwrites the local row.
// Every card field is upstream-owned, so last-upstream-write-wins.
func (o *Orchestrator) upsertCard(ctx context.Context, account *domain.Account, info *monobank.CardInfo) (*domain.Card, error) {
	currency, err := o.resolver.ResolveCurrency(ctx, info.CurrencyCode)
	if err != nil {
		return nil, err
	}
	card := &domain.Card{
		ID:           info.ID,
		AccountID:    account.ID,
		SendID:       info.SendID,
		CurrencyCode: currency.Code,
		CashbackType: info.CashbackType,
		Balance:      info.Balance,
		CreditLimit:  info.CreditLimit,
		MaskedPan:    info.MaskedPan,
		Type:         info.Type,
		IBAN:         info.IBAN,
	}
	if err := o.subAccounts.UpsertCard(ctx, card); err != nil {
		return nil, fmt.Errorf("upsert card %s: %w", card.ID, err)
	}
	return card, nil
}

// upsertJar resolves the jar's currency and updates the local row. The
// upstream has no is-budget concept, so the repository update never touches
// that column; the jar's description is upstream noise and is dropped here.
func (o *Orchestrator) upsertJar(ctx context.Context, account *domain.Account, info *monobank.JarInfo) (*domain.Jar, error) {
	currency, err := o.resolver.ResolveCurrency(ctx, info.CurrencyCode)
	if err != nil {
		return nil, err
	}
	jar := &domain.Jar{
		ID:           info.ID,
		AccountID:    account.ID,
		SendID:       info.SendID,
		Title:        info.Title,
		CurrencyCode: currency.Code,
		Balance:      info.Balance,
		Goal:         info.Goal,
	}
	if err := o.subAccounts.UpsertJar(ctx, jar); err != nil {
		return nil, fmt.Errorf("upsert jar %s: %w", jar.ID, err)
	}
	return jar, nil
}

// ingestStatements fetches each sub-account's recent window and hands every
// item to the pipeline, bounded by a small worker pool. Per-sub-account
// failures are logged and skipped; they never abort the account.
func (o *Orchestrator) ingestStatements(ctx context.Context, account *domain.Account, subs []domain.SubAccount, log zerolog.Logger) int {
	to := time.Now().Unix()
	from := time.Now().Add(-o.opts.StatementWindow).Unix()

	var (
		mu       sync.Mutex
		ingested int
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, o.opts.StatementWorkers)

	for _, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub domain.SubAccount) {
			defer wg.Done()
			defer func() { <-sem }()

			count, err := o.ingestSubAccount(ctx, account, sub, from, to)
			if err != nil {
				log.Error().
					Err(err).
					Str("sub_account_id", sub.ExternalID()).
					Msg("Statement ingestion failed")
				return
			}
			mu.Lock()
			ingested += count
			mu.Unlock()
		}(sub)
	}
	wg.Wait()
	return ingested
}

func (o *Orchestrator) ingestSubAccount(ctx context.Context, account *domain.Account, sub domain.SubAccount, from, to int64) (int, error) {
	var items []monobank.StatementItem
	err := o.runner.Execute(ctx, "statement", o.opts.Policy, func(ctx context.Context) error {
		var fetchErr error
		items, fetchErr = o.client.Statement(ctx, account.Token, sub.ExternalID(), from, to)
		return fetchErr
	})
	if err != nil {
		return 0, err
	}

	created := 0
	for _, item := range items {
		outcome, err := o.ingestor.Ingest(ctx, sub, item)
		if err != nil {
			// A bad item is scoped to itself; keep going unless the store is
			// the problem.
			if errors.Is(err, context.Canceled) {
				return created, err
			}
			o.log.Error().
				Err(err).
				Str("transaction_id", item.ID).
				Str("sub_account_id", sub.ExternalID()).
				Msg("Item ingestion failed")
			continue
		}
		if outcome == ingest.OutcomeCreated {
			created++
		}
	}
	return created, nil
}
