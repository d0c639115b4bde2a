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

// AccountRepository is the PostgreSQL implementation of
// storage.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a repository over the shared pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByToken returns the account owning the access token.
func (r *AccountRepository) GetByToken(ctx context.Context, token string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token, active, created_at
		FROM accounts
		WHERE token = $1`, token)
	return scanAccount(row)
}

// GetByID returns the account with the given id.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token, active, created_at
		FROM accounts
		WHERE id = $1`, id)
	return scanAccount(row)
}

// ListActive returns all active accounts.
func (r *AccountRepository) ListActive(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, token, active, created_at
		FROM accounts
		WHERE active
		ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (user_id, token, active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		account.UserID, account.Token, account.Active,
	).Scan(&account.ID, &account.CreatedAt)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Deactivate clears the active flag.
func (r *AccountRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate account %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(&account.ID, &account.UserID, &account.Token, &account.Active, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &account, nil
}

var _ storage.AccountRepository = (*AccountRepository)(nil)
