package domain

// SubAccountKind discriminates the Card/Jar union.
type SubAccountKind string

const (
	KindCard SubAccountKind = "card"
	KindJar  SubAccountKind = "jar"
)

// Card is a spendable card sub-account. All fields except the identifiers are
// owned by the upstream API and overwritten on every sync.
type Card struct {
	ID           string // upstream external id, primary identity
	AccountID    int64
	SendID       string
	CurrencyCode int
	CashbackType string
	Balance      int64 // minor units
	CreditLimit  int64 // minor units
	MaskedPan    []string
	Type         string
	IBAN         string
}

// Jar is a savings jar sub-account. IsBudget is user-owned and is never
// written by synchronization.
type Jar struct {
	ID           string
	AccountID    int64
	SendID       string
	Title        string
	CurrencyCode int
	Balance      int64 // minor units
	Goal         int64 // minor units, 0 when the jar has no goal
	IsBudget     bool
}

// SubAccount is the tagged Card/Jar union. It is resolved once at ingestion
// entry and carried through the pipeline as a typed value; exactly one of
// Card/Jar is non-nil, matching Kind.
type SubAccount struct {
	Kind SubAccountKind
	Card *Card
	Jar  *Jar
}

// CardSubAccount wraps a card into the union.
func CardSubAccount(c *Card) SubAccount {
	return SubAccount{Kind: KindCard, Card: c}
}

// JarSubAccount wraps a jar into the union.
func JarSubAccount(j *Jar) SubAccount {
	return SubAccount{Kind: KindJar, Jar: j}
}

// ExternalID returns the upstream identifier of the wrapped sub-account.
func (s SubAccount) ExternalID() string {
	switch s.Kind {
	case KindCard:
		return s.Card.ID
	case KindJar:
		return s.Jar.ID
	}
	return ""
}

// OwnerAccountID returns the id of the owning Account.
func (s SubAccount) OwnerAccountID() int64 {
	switch s.Kind {
	case KindCard:
		return s.Card.AccountID
	case KindJar:
		return s.Jar.AccountID
	}
	return 0
}
