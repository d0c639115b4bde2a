package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// SubAccountRepository is the PostgreSQL implementation of
// storage.SubAccountRepository.
type SubAccountRepository struct {
	pool *pgxpool.Pool
}

// NewSubAccountRepository creates a repository over the shared pool.
func NewSubAccountRepository(pool *pgxpool.Pool) *SubAccountRepository {
	return &SubAccountRepository{pool: pool}
}

// Resolve looks the external id up as a card first, then as a jar.
func (r *SubAccountRepository) Resolve(ctx context.Context, externalID string) (domain.SubAccount, error) {
	card, err := r.getCard(ctx, externalID)
	if err == nil {
		return domain.CardSubAccount(card), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.SubAccount{}, err
	}

	jar, err := r.getJar(ctx, externalID)
	if err == nil {
		return domain.JarSubAccount(jar), nil
	}
	return domain.SubAccount{}, err
}

// UpsertCard inserts or overwrites a card by external id. Every mutable card
// field is upstream-owned, so the conflict path overwrites them all.
func (r *SubAccountRepository) UpsertCard(ctx context.Context, card *domain.Card) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cards (id, account_id, send_id, currency_code, cashback_type,
		                   balance, credit_limit, masked_pan, type, iban)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			send_id       = EXCLUDED.send_id,
			currency_code = EXCLUDED.currency_code,
			cashback_type = EXCLUDED.cashback_type,
			balance       = EXCLUDED.balance,
			credit_limit  = EXCLUDED.credit_limit,
			masked_pan    = EXCLUDED.masked_pan,
			type          = EXCLUDED.type,
			iban          = EXCLUDED.iban,
			updated_at    = now()`,
		card.ID, card.AccountID, card.SendID, card.CurrencyCode, card.CashbackType,
		card.Balance, card.CreditLimit, card.MaskedPan, card.Type, card.IBAN)
	if err != nil {
		return fmt.Errorf("upsert card %s: %w", card.ID, err)
	}
	return nil
}

// UpsertJar inserts or updates a jar by external id. The conflict path
// deliberately leaves is_budget out: that flag is user-owned and sync must
// never overwrite it.
func (r *SubAccountRepository) UpsertJar(ctx context.Context, jar *domain.Jar) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jars (id, account_id, send_id, title, currency_code, balance, goal, is_budget)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			send_id       = EXCLUDED.send_id,
			title         = EXCLUDED.title,
			currency_code = EXCLUDED.currency_code,
			balance       = EXCLUDED.balance,
			goal          = EXCLUDED.goal,
			updated_at    = now()`,
		jar.ID, jar.AccountID, jar.SendID, jar.Title, jar.CurrencyCode,
		jar.Balance, jar.Goal, jar.IsBudget)
	if err != nil {
		return fmt.Errorf("upsert jar %s: %w", jar.ID, err)
	}
	return nil
}

// ListByAccount returns all sub-accounts owned by the account.
func (r *SubAccountRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.SubAccount, error) {
	var subs []domain.SubAccount

	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, send_id, currency_code, cashback_type,
		       balance, credit_limit, masked_pan, type, iban
		FROM cards
		WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, domain.CardSubAccount(card))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	jarRows, err := r.pool.Query(ctx, `
		SELECT id, account_id, send_id, title, currency_code, balance, goal, is_budget
		FROM jars
		WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list jars: %w", err)
	}
	defer jarRows.Close()
	for jarRows.Next() {
		jar, err := scanJar(jarRows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, domain.JarSubAccount(jar))
	}
	return subs, jarRows.Err()
}

func (r *SubAccountRepository) getCard(ctx context.Context, id string) (*domain.Card, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, account_id, send_id, currency_code, cashback_type,
		       balance, credit_limit, masked_pan, type, iban
		FROM cards
		WHERE id = $1`, id)
	return scanCard(row)
}

func (r *SubAccountRepository) getJar(ctx context.Context, id string) (*domain.Jar, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, account_id, send_id, title, currency_code, balance, goal, is_budget
		FROM jars
		WHERE id = $1`, id)
	return scanJar(row)
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var card domain.Card
	err := row.Scan(&card.ID, &card.AccountID, &card.SendID, &card.CurrencyCode,
		&card.CashbackType, &card.Balance, &card.CreditLimit, &card.MaskedPan,
		&card.Type, &card.IBAN)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan card: %w", err)
	}
	return &card, nil
}

func scanJar(row pgx.Row) (*domain.Jar, error) {
	var jar domain.Jar
	err := row.Scan(&jar.ID, &jar.AccountID, &jar.SendID, &jar.Title,
		&jar.CurrencyCode, &jar.Balance, &jar.Goal, &jar.IsBudget)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan jar: %w", err)
	}
	return &jar, nil
}

var _ storage.SubAccountRepository = (*SubAccountRepository)(nil)
