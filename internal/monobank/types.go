package monobank

// StatementItem is one transaction event as the upstream API ships it, both
// inside the webhook envelope and in statement listings.
type StatementItem struct {
	ID              string `json:"id"`
	Time            int64  `json:"time"`
	Description     string `json:"description"`
	MCC             int    `json:"mcc"`
	OriginalMCC     int    `json:"originalMcc"`
	Hold            bool   `json:"hold"`
	Amount          int64  `json:"amount"`
	OperationAmount int64  `json:"operationAmount"`
	CurrencyCode    int    `json:"currencyCode"`
	CommissionRate  int64  `json:"commissionRate"`
	CashbackAmount  int64  `json:"cashbackAmount"`
	Balance         int64  `json:"balance"`
	Comment         string `json:"comment,omitempty"`
	ReceiptID       string `json:"receiptId,omitempty"`
}

// CardInfo is one card entry of the client-info listing.
type CardInfo struct {
	ID           string   `json:"id"`
	SendID       string   `json:"sendId"`
	CurrencyCode int      `json:"currencyCode"`
	CashbackType string   `json:"cashbackType"`
	Balance      int64    `json:"balance"`
	CreditLimit  int64    `json:"creditLimit"`
	MaskedPan    []string `json:"maskedPan"`
	Type         string   `json:"type"`
	IBAN         string   `json:"iban"`
}

// JarInfo is one jar entry of the client-info listing. Description is
// upstream noise and is dropped during normalization.
type JarInfo struct {
	ID           string `json:"id"`
	SendID       string `json:"sendId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CurrencyCode int    `json:"currencyCode"`
	Balance      int64  `json:"balance"`
	Goal         int64  `json:"goal"`
}

// ClientInfo is the personal/client-info response.
type ClientInfo struct {
	ClientID   string     `json:"clientId"`
	Name       string     `json:"name"`
	WebHookURL string     `json:"webHookUrl"`
	Accounts   []CardInfo `json:"accounts"`
	Jars       []JarInfo  `json:"jars"`
}

// apiError is the error body the upstream returns instead of the requested
// resource.
type apiError struct {
	ErrorDescription string `json:"errorDescription"`
}
