package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is how window bounds are passed upstream: calendar dates with
// no time component.
const DateFormat = "2006-01-02"

// Account is one upstream account as reported by the aggregator.
type Account struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Currency         string          `json:"currency"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	Limit            decimal.Decimal `json:"limit"`
}

// Transaction is one upstream transaction. Negative amounts are inflows,
// positive amounts are outflows, per the provider's sign convention.
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Date      time.Time       `json:"date"`
	Name      string          `json:"name"`
	Merchant  string          `json:"merchant"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Category  string          `json:"category"`
	Pending   bool            `json:"pending"`
}

// ItemStatus is the result of a credential validity check.
type ItemStatus struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Client is the upstream financial data aggregator.
type Client interface {
	// GetItemDetails checks credential validity for the token.
	GetItemDetails(ctx context.Context, accessToken string) (*ItemStatus, error)

	// GetAccounts fetches current accounts and balances.
	GetAccounts(ctx context.Context, accessToken string) ([]Account, error)

	// GetTransactions fetches transactions for the given accounts within
	// [startDate, endDate], both formatted as DateFormat.
	GetTransactions(ctx context.Context, accessToken, connectionID string, accountIDs []string, startDate, endDate string) ([]Transaction, error)
}
