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

// ReferenceRepository is the PostgreSQL implementation of
// storage.ReferenceRepository.
type ReferenceRepository struct {
	pool *pgxpool.Pool
}

// NewReferenceRepository creates a repository over the shared pool.
func NewReferenceRepository(pool *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// GetCurrency returns the currency for the numeric code.
func (r *ReferenceRepository) GetCurrency(ctx context.Context, code int) (*domain.Currency, error) {
	var currency domain.Currency
	err := r.pool.QueryRow(ctx, `
		SELECT code, name, COALESCE(flag, ''), COALESCE(symbol, '')
		FROM currencies
		WHERE code = $1`, code,
	).Scan(&currency.Code, &currency.Name, &currency.Flag, &currency.Symbol)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get currency %d: %w", code, err)
	}
	return &currency, nil
}

// CreateCurrency stores a new currency row.
func (r *ReferenceRepository) CreateCurrency(ctx context.Context, currency *domain.Currency) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO currencies (code, name, flag, symbol)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))`,
		currency.Code, currency.Name, currency.Flag, currency.Symbol)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create currency %d: %w", currency.Code, err)
	}
	return nil
}

// GetCategoryCode returns the mapping for the merchant-category code.
func (r *ReferenceRepository) GetCategoryCode(ctx context.Context, code int) (*domain.CategoryCode, error) {
	var cc domain.CategoryCode
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, category_id
		FROM category_codes
		WHERE code = $1`, code,
	).Scan(&cc.ID, &cc.Code, &cc.CategoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category code %d: %w", code, err)
	}
	return &cc, nil
}

// CreateCategoryCode stores a new code mapping.
func (r *ReferenceRepository) CreateCategoryCode(ctx context.Context, cc *domain.CategoryCode) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO category_codes (code, category_id)
		VALUES ($1, $2)
		RETURNING id`,
		cc.Code, cc.CategoryID,
	).Scan(&cc.ID)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create category code %d: %w", cc.Code, err)
	}
	return nil
}

// GetOrCreateCategory returns the category with the given name, creating it
// if absent. The insert races are settled by the unique name constraint.
func (r *ReferenceRepository) GetOrCreateCategory(ctx context.Context, name, symbol string) (*domain.Category, error) {
	category, err := r.getCategoryByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	category = &domain.Category{Name: name, Symbol: symbol}
	insertErr := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, symbol, user_defined)
		VALUES ($1, NULLIF($2, ''), FALSE)
		RETURNING id`,
		name, symbol,
	).Scan(&category.ID)
	if isUniqueViolation(insertErr) {
		return r.getCategoryByName(ctx, name)
	}
	if insertErr != nil {
		return nil, fmt.Errorf("create category %q: %w", name, insertErr)
	}
	return category, nil
}

// CountCategoryCodes returns the number of stored code mappings.
func (r *ReferenceRepository) CountCategoryCodes(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM category_codes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count category codes: %w", err)
	}
	return count, nil
}

func (r *ReferenceRepository) getCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	var category domain.Category
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(symbol, ''), user_defined
		FROM categories
		WHERE name = $1`, name,
	).Scan(&category.ID, &category.Name, &category.Symbol, &category.UserDefined)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category %q: %w", name, err)
	}
	return &category, nil
}

var _ storage.ReferenceRepository = (*ReferenceRepository)(nil)
