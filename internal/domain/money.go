package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatMinor renders a minor-unit amount for humans, e.g. 12345 with
// currency "UAH" becomes "123.45 UAH". Used by notifications and reports.
func FormatMinor(amount int64, currencyName string) string {
	if currencyName == "" {
		currencyName = "?"
	}
	return fmt.Sprintf("%s %s", decimal.New(amount, -2).StringFixed(2), currencyName)
}
