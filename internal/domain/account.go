package domain

import "time"

// Account represents one linked Monobank login. The access token is the
// credential used for every upstream call and is unique across accounts.
type Account struct {
	ID        int64
	UserID    string // telegram id of the owning user
	Token     string
	Active    bool
	CreatedAt time.Time
}

// Currency is a reference row keyed by the upstream numeric ISO 4217 code.
// Unknown codes encountered during ingestion are auto-created with the
// sentinel name and reconciled by a human later.
type Currency struct {
	Code   int
	Name   string
	Flag   string
	Symbol string
}

// UnknownCurrencyName marks an auto-created placeholder currency.
const UnknownCurrencyName = "XXX"

// Category is a spend category. Upstream merchant-category codes map to
// categories indirectly through CategoryCode, because many codes can point
// at the same category.
type Category struct {
	ID          int64
	Name        string
	Symbol      string
	UserDefined bool
}

// FallbackCategoryName is the generic category placeholder codes point at.
const FallbackCategoryName = "Other"

// CategoryCode maps one upstream merchant-category code to a Category.
type CategoryCode struct {
	ID         int64
	Code       int
	CategoryID int64
}
