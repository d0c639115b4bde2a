package domain

import "testing"

func TestFormatMinor(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		currency string
		want     string
	}{
		{"positive", 12345, "UAH", "123.45 UAH"},
		{"negative", -5000, "UAH", "-50.00 UAH"},
		{"zero", 0, "EUR", "0.00 EUR"},
		{"sub-unit", 7, "USD", "0.07 USD"},
		{"placeholder currency", 100, UnknownCurrencyName, "1.00 XXX"},
		{"missing currency", 100, "", "1.00 ?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMinor(tt.amount, tt.currency); got != tt.want {
				t.Errorf("FormatMinor(%d, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}
