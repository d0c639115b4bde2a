package domain

import "time"

// Transaction is an immutable financial event belonging to exactly one
// sub-account. ID is the upstream external id and is globally unique: once a
// transaction is stored it is never duplicated or mutated, which is what makes
// repeated webhook delivery and overlapping polling windows safe.
type Transaction struct {
	ID              string
	SubAccountID    string
	SubAccountKind  SubAccountKind
	Time            int64 // epoch seconds
	Amount          int64 // minor units, signed
	OperationAmount int64
	CurrencyCode    int
	CommissionRate  int64
	CashbackAmount  int64
	Balance         int64 // running balance snapshot, minor units
	Hold            bool
	Description     string
	Comment         string
	ReceiptID       string
	MCC             int
	OriginalMCC     int
	CategoryCodeID  int64
	CreatedAt       time.Time
}
