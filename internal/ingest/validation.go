package ingest

import (
	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/monobank"
)

// validateItem checks the normalized event for required fields. This runs
// synchronously at the start of Ingest; there are no implicit save hooks.
func validateItem(item monobank.StatementItem) error {
	if item.ID == "" {
		return domain.NewValidationError("statementItem.id", "required")
	}
	if item.Time <= 0 {
		return domain.NewValidationError("statementItem.time", "must be a positive epoch timestamp")
	}
	if item.CurrencyCode <= 0 {
		return domain.NewValidationError("statementItem.currencyCode", "must be a positive numeric code")
	}
	return nil
}
