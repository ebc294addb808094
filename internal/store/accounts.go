package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/banksync/internal/domain"
)

// ListAccountsByConnection returns all accounts belonging to a connection.
func (s *Store) ListAccountsByConnection(ctx context.Context, connectionID string) ([]*domain.BankAccount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, connection_id, user_id, external_id, name, currency, enabled, status,
		       available_balance, current_balance, credit_limit, balance_last_updated,
		       monthly_income, monthly_spending, average_balance
		FROM bank_accounts
		WHERE connection_id = $1`, connectionID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.BankAccount
	for rows.Next() {
		var a domain.BankAccount
		err := rows.Scan(
			&a.ID, &a.ConnectionID, &a.UserID, &a.ExternalID, &a.Name, &a.Currency, &a.Enabled, &a.Status,
			&a.AvailableBalance, &a.CurrentBalance, &a.Limit, &a.BalanceLastUpdated,
			&a.MonthlyIncome, &a.MonthlySpending, &a.AverageBalance,
		)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// UpdateAccountBalances overwrites the balances from an upstream fetch.
func (s *Store) UpdateAccountBalances(ctx context.Context, id string, available, current, limit decimal.Decimal, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bank_accounts
		SET available_balance = $2, current_balance = $3, credit_limit = $4, balance_last_updated = $5
		WHERE id = $1`, id, available, current, limit, at)
	if err != nil {
		return fmt.Errorf("update account balances: %w", err)
	}
	return nil
}

// UpdateAccountStatistics writes the recomputed derived statistics.
func (s *Store) UpdateAccountStatistics(ctx context.Context, id string, income, spending, average decimal.Decimal) error {
	_, err := s.db.Exec(ctx, `
		UPDATE bank_accounts
		SET monthly_income = $2, monthly_spending = $3, average_balance = $4
		WHERE id = $1`, id, income, spending, average)
	if err != nil {
		return fmt.Errorf("update account statistics: %w", err)
	}
	return nil
}

// SetAccountStatus flips an account's lifecycle status.
func (s *Store) SetAccountStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	_, err := s.db.Exec(ctx,
		`UPDATE bank_accounts SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set account status: %w", err)
	}
	return nil
}
