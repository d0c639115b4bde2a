// Package storage defines the repository interfaces over the durable store.
// Concrete implementations live in storage/postgres; components depend on
// these interfaces so tests can substitute in-memory fakes.
package storage

import (
	"context"
	"errors"

	"github.com/Iron-Cow/MonoProject/internal/domain"
)

// ErrDuplicate is returned by create operations when a unique constraint is
// violated. Reference-data callers resolve it by re-reading rather than by
// locking.
var ErrDuplicate = errors.New("duplicate row")

// AccountRepository manages linked Monobank accounts.
type AccountRepository interface {
	// GetByToken returns the account owning the given access token, or
	// domain.ErrNotFound.
	GetByToken(ctx context.Context, token string) (*domain.Account, error)

	// GetByID returns the account with the given id, or domain.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*domain.Account, error)

	// ListActive returns all active accounts.
	ListActive(ctx context.Context) ([]*domain.Account, error)

	// Create stores a new account. Returns ErrDuplicate if the token is
	// already linked.
	Create(ctx context.Context, account *domain.Account) error

	// Deactivate clears the active flag; accounts are never hard-deleted.
	Deactivate(ctx context.Context, id int64) error
}

// SubAccountRepository manages Card and Jar rows.
type SubAccountRepository interface {
	// Resolve looks the external id up as a card first, then as a jar, and
	// returns the tagged union. Returns domain.ErrNotFound when the id
	// matches neither.
	Resolve(ctx context.Context, externalID string) (domain.SubAccount, error)

	// UpsertCard inserts or overwrites a card by external id. All mutable
	// fields are upstream-owned and overwritten.
	UpsertCard(ctx context.Context, card *domain.Card) error

	// UpsertJar inserts or updates a jar by external id. The is_budget flag
	// is user-owned: the update path must never touch it.
	UpsertJar(ctx context.Context, jar *domain.Jar) error

	// ListByAccount returns all sub-accounts owned by the account.
	ListByAccount(ctx context.Context, accountID int64) ([]domain.SubAccount, error)
}

// TransactionRepository stores immutable transactions.
type TransactionRepository interface {
	// Exists reports whether a transaction with the external id is stored.
	Exists(ctx context.Context, externalID string) (bool, error)

	// Insert stores the transaction with insert-if-absent semantics keyed by
	// external id. Returns created=false when a row with the same id already
	// exists; the stored row is left untouched.
	Insert(ctx context.Context, tx *domain.Transaction) (created bool, err error)
}

// ReferenceRepository manages currency and category reference rows.
type ReferenceRepository interface {
	// GetCurrency returns the currency for the numeric code, or
	// domain.ErrNotFound.
	GetCurrency(ctx context.Context, code int) (*domain.Currency, error)

	// CreateCurrency stores a new currency row. Returns ErrDuplicate when
	// another writer created the code first.
	CreateCurrency(ctx context.Context, currency *domain.Currency) error

	// GetCategoryCode returns the mapping for the merchant-category code, or
	// domain.ErrNotFound.
	GetCategoryCode(ctx context.Context, code int) (*domain.CategoryCode, error)

	// CreateCategoryCode stores a new code mapping. Returns ErrDuplicate when
	// another writer created the code first.
	CreateCategoryCode(ctx context.Context, cc *domain.CategoryCode) error

	// GetOrCreateCategory returns the category with the given name, creating
	// it if absent.
	GetOrCreateCategory(ctx context.Context, name, symbol string) (*domain.Category, error)

	// CountCategoryCodes returns the number of stored code mappings. Used to
	// synthesize a code when an event carries none.
	CountCategoryCodes(ctx context.Context) (int, error)
}

// FamilyRepository reads and writes the symmetric family relation.
type FamilyRepository interface {
	// DirectMembers returns the immediate neighbors of one user.
	DirectMembers(ctx context.Context, userID string) ([]string, error)

	// DirectMembersBatch returns the immediate neighbors for each of the
	// given users in one query. Users without edges map to an empty slice.
	DirectMembersBatch(ctx context.Context, userIDs []string) (map[string][]string, error)

	// AddEdge links two users symmetrically. Self-edges are rejected.
	AddEdge(ctx context.Context, userA, userB string) error

	// RemoveEdge removes the link in both directions.
	RemoveEdge(ctx context.Context, userA, userB string) error
}
