package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionCategory is the internal taxonomy upstream free-text categories
// are mapped into. Unmapped categories fall back to CategoryOther.
type TransactionCategory string

const (
	CategoryIncome        TransactionCategory = "INCOME"
	CategoryTransfer      TransactionCategory = "TRANSFER"
	CategoryGroceries     TransactionCategory = "GROCERIES"
	CategoryRestaurants   TransactionCategory = "RESTAURANTS"
	CategoryTravel        TransactionCategory = "TRAVEL"
	CategoryTransport     TransactionCategory = "TRANSPORT"
	CategoryRent          TransactionCategory = "RENT"
	CategoryUtilities     TransactionCategory = "UTILITIES"
	CategoryEntertainment TransactionCategory = "ENTERTAINMENT"
	CategoryHealthcare    TransactionCategory = "HEALTHCARE"
	CategoryShopping      TransactionCategory = "SHOPPING"
	CategorySubscriptions TransactionCategory = "SUBSCRIPTIONS"
	CategoryFees          TransactionCategory = "FEES"
	CategoryTaxes         TransactionCategory = "TAXES"
	CategoryOther         TransactionCategory = "OTHER"
)

// Transaction is one reconciled bank transaction. Rows are deduplicated by
// (BankAccountID, ExternalID): the sync engine updates in place when the
// upstream transaction is already stored.
//
// Sign convention follows the upstream provider: negative amounts are
// inflows (income), positive amounts are outflows (spending).
type Transaction struct {
	ID            string
	BankAccountID string
	ConnectionID  string
	UserID        string

	// ExternalID is the upstream-supplied transaction identifier.
	ExternalID string

	Date        time.Time
	Description string
	Merchant    string
	Amount      decimal.Decimal
	Currency    string
	Category    *TransactionCategory
	Pending     bool
}
