package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// TransactionRepository is the PostgreSQL implementation of
// storage.TransactionRepository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a repository over the shared pool.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Exists reports whether a transaction with the external id is stored.
func (r *TransactionRepository) Exists(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, externalID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("transaction exists %s: %w", externalID, err)
	}
	return exists, nil
}

// Insert stores the transaction with insert-if-absent semantics. The external
// id is the primary key, so a concurrent duplicate degrades into a no-op
// conflict instead of an error or a second row.
func (r *TransactionRepository) Insert(ctx context.Context, tx *domain.Transaction) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO transactions (id, sub_account_id, sub_account_kind, time, amount,
		                          operation_amount, currency_code, commission_rate,
		                          cashback_amount, balance, hold, description, comment,
		                          receipt_id, mcc, original_mcc, category_code_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO NOTHING`,
		tx.ID, tx.SubAccountID, tx.SubAccountKind, tx.Time, tx.Amount,
		tx.OperationAmount, tx.CurrencyCode, tx.CommissionRate,
		tx.CashbackAmount, tx.Balance, tx.Hold, tx.Description, tx.Comment,
		tx.ReceiptID, tx.MCC, tx.OriginalMCC, tx.CategoryCodeID)
	if err != nil {
		return false, fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

var _ storage.TransactionRepository = (*TransactionRepository)(nil)
