package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avolkov/banksync/internal/domain"
)

// UpsertTransaction inserts or updates one transaction keyed on
// (bank_account_id, external_id). The RETURNING clause reports whether the
// row was freshly inserted (xmax = 0) so the sync engine can count created
// versus updated in a single round trip.
func (s *Store) UpsertTransaction(ctx context.Context, t *domain.Transaction) (created bool, err error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO transactions (
			id, bank_account_id, connection_id, user_id, external_id,
			date, description, merchant, amount, currency, category, pending
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (bank_account_id, external_id) DO UPDATE
		SET amount = EXCLUDED.amount,
		    category = COALESCE(EXCLUDED.category, transactions.category),
		    date = EXCLUDED.date,
		    merchant = EXCLUDED.merchant,
		    pending = EXCLUDED.pending
		RETURNING (xmax = 0)`,
		t.ID, t.BankAccountID, t.ConnectionID, t.UserID, t.ExternalID,
		t.Date, t.Description, t.Merchant, t.Amount, t.Currency, t.Category, t.Pending,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert transaction: %w", err)
	}
	return created, nil
}

// AccountWindowTotals sums the trailing-window amounts for one account,
// split by the upstream sign convention: negative amounts are income
// (returned as absolute value), positive amounts are spending.
func (s *Store) AccountWindowTotals(ctx context.Context, accountID string, since time.Time) (income, spending decimal.Decimal, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE bank_account_id = $1 AND date >= $2`, accountID, since,
	).Scan(&income, &spending)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("account window totals: %w", err)
	}
	return income, spending, nil
}
