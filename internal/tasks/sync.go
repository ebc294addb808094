package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/banksync/internal/domain"
	"github.com/avolkov/banksync/internal/logger"
	"github.com/avolkov/banksync/internal/provider"
)

// Sync window policy.
const (
	syncStaleAfter    = 12 * time.Hour
	defaultWindowDays = 30
	overlapDays       = 5
	maxWindowDays     = 90
	forwardBufferDays = 1

	statsWindowDays = 30
)

// errCredentialInvalid marks an upstream credential the aggregator reports
// as no longer valid; it flips the connection status to ERROR.
type errCredentialInvalid struct {
	reason string
}

func (e *errCredentialInvalid) Error() string {
	if e.reason == "" {
		return "upstream credential is no longer valid"
	}
	return "upstream credential is no longer valid: " + e.reason
}

// SyncResult reports one connection's reconciliation outcome.
type SyncResult struct {
	ConnectionID string `json:"connection_id"`
	Created      int    `json:"created"`
	Updated      int    `json:"updated"`
}

// SyncEngine reconciles local accounts and transactions against the
// upstream aggregator, one connection at a time.
type SyncEngine struct {
	store      SyncStore
	provider   provider.Client
	dispatcher Notifier
	batchSize  int
	now        func() time.Time
}

// NewSyncEngine creates a sync engine. now may be nil (time.Now is used);
// batchSize <= 0 falls back to 50.
func NewSyncEngine(store SyncStore, client provider.Client, dispatcher Notifier, batchSize int, now func() time.Time) *SyncEngine {
	if now == nil {
		now = time.Now
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncEngine{store: store, provider: client, dispatcher: dispatcher, batchSize: batchSize, now: now}
}

// RunSweep syncs every due connection: never synced, stale for 12 hours, or
// explicitly scheduled. A failure in one connection does not abort the rest.
func (e *SyncEngine) RunSweep(ctx context.Context) (*ScanResult, error) {
	defer observeDuration("sync_sweep")()
	now := e.now()

	candidates, err := e.store.ListSyncCandidates(ctx, now.Add(-syncStaleAfter), e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("sync sweep: %w", err)
	}

	result := CollectEach(ctx, candidates, describeConnection, func(ctx context.Context, conn *domain.BankConnection) error {
		_, err := e.SyncConnection(ctx, conn)
		return err
	})

	observeBatch("sync_sweep", result)
	return scanResult(result), nil
}

// SyncUser runs the same per-connection procedure restricted to one user's
// connections, invoked by an external event rather than the cron schedule.
func (e *SyncEngine) SyncUser(ctx context.Context, userID string) (*ScanResult, error) {
	defer observeDuration("sync_user")()

	candidates, err := e.store.ListConnectionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sync user %s: %w", userID, err)
	}

	result := CollectEach(ctx, candidates, describeConnection, func(ctx context.Context, conn *domain.BankConnection) error {
		_, err := e.SyncConnection(ctx, conn)
		return err
	})

	observeBatch("sync_user", result)
	return scanResult(result), nil
}

// SyncConnection reconciles one connection. The sync status moves to
// SYNCING for the duration and always lands on IDLE or FAILED: any error in
// the procedure is recorded on the connection, never left mid-flight.
func (e *SyncEngine) SyncConnection(ctx context.Context, conn *domain.BankConnection) (*SyncResult, error) {
	log := logger.FromContext(ctx).With().Str("connection_id", conn.ID).Logger()

	if err := e.store.SetSyncStatus(ctx, conn.ID, domain.SyncSyncing); err != nil {
		return nil, fmt.Errorf("set sync status: %w", err)
	}

	result, err := e.syncLocked(ctx, conn, log)
	if err != nil {
		var credErr *errCredentialInvalid
		flipToError := errors.As(err, &credErr)
		if markErr := e.store.MarkSyncFailed(ctx, conn.ID, err.Error(), flipToError); markErr != nil {
			log.Error().Err(markErr).Msg("failed to record sync failure")
		}
		return nil, err
	}

	if err := e.store.MarkSyncSucceeded(ctx, conn.ID, e.now()); err != nil {
		return nil, fmt.Errorf("mark sync succeeded: %w", err)
	}

	if result.Created > 0 && e.dispatcher != nil {
		if err := e.dispatcher.NotifyTransactionsSummary(ctx, conn, result.Created); err != nil {
			// Summary delivery is best effort; the sync itself succeeded.
			log.Warn().Err(err).Msg("transactions summary notification failed")
		}
	}

	log.Info().Int("created", result.Created).Int("updated", result.Updated).Msg("connection synced")
	return result, nil
}

func (e *SyncEngine) syncLocked(ctx context.Context, conn *domain.BankConnection, log zerolog.Logger) (result *SyncResult, err error) {
	now := e.now()

	// 1. Credential validity check.
	status, err := e.provider.GetItemDetails(ctx, conn.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("item status check: %w", err)
	}
	if !status.Valid {
		return nil, &errCredentialInvalid{reason: status.Error}
	}

	accounts, err := e.store.ListAccountsByConnection(ctx, conn.ID)
	if err != nil {
		return nil, fmt.Errorf("list local accounts: %w", err)
	}
	byExternalID := make(map[string]*domain.BankAccount, len(accounts))
	pending := make([]*domain.BankAccount, 0, len(accounts))
	for _, acct := range accounts {
		byExternalID[acct.ExternalID] = acct
		if acct.Enabled {
			if err := e.store.SetAccountStatus(ctx, acct.ID, domain.AccountPending); err != nil {
				return nil, fmt.Errorf("set account pending: %w", err)
			}
			pending = append(pending, acct)
		}
	}

	// PENDING is transient. If anything below fails the accounts go back to
	// ACTIVE, never stranded mid-sync.
	defer func() {
		if err == nil {
			return
		}
		for _, acct := range pending {
			if restoreErr := e.store.SetAccountStatus(ctx, acct.ID, domain.AccountActive); restoreErr != nil {
				log.Error().Err(restoreErr).Str("account_id", acct.ID).
					Msg("failed to restore account status after sync failure")
			}
		}
	}()

	// 2. Balance overwrite from upstream.
	upstream, err := e.provider.GetAccounts(ctx, conn.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}
	for _, up := range upstream {
		acct, ok := byExternalID[up.ID]
		if !ok {
			log.Warn().Str("external_account_id", up.ID).Msg("upstream account has no local match")
			continue
		}
		if err := e.store.UpdateAccountBalances(ctx, acct.ID, up.AvailableBalance, up.CurrentBalance, up.Limit, now); err != nil {
			return nil, fmt.Errorf("update balances for account %s: %w", acct.ID, err)
		}
		acct.AvailableBalance = up.AvailableBalance
		acct.CurrentBalance = up.CurrentBalance
	}

	// 3. Transaction window fetch.
	startDate, endDate := syncWindow(now, conn.LastSyncedAt)
	externalIDs := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		externalIDs = append(externalIDs, acct.ExternalID)
	}

	transactions, err := e.provider.GetTransactions(ctx, conn.AccessToken, conn.ID, externalIDs,
		startDate.Format(provider.DateFormat), endDate.Format(provider.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	// 4. Upsert, counting created vs updated.
	result = &SyncResult{ConnectionID: conn.ID}
	for _, up := range transactions {
		acct, ok := byExternalID[up.AccountID]
		if !ok {
			log.Warn().Str("external_account_id", up.AccountID).Str("external_transaction_id", up.ID).
				Msg("transaction references unknown account, skipping")
			continue
		}

		var category *domain.TransactionCategory
		if up.Category != "" {
			mapped := provider.MapCategory(up.Category)
			category = &mapped
		}

		created, err := e.store.UpsertTransaction(ctx, &domain.Transaction{
			BankAccountID: acct.ID,
			ConnectionID:  conn.ID,
			UserID:        conn.UserID,
			ExternalID:    up.ID,
			Date:          up.Date,
			Description:   up.Name,
			Merchant:      up.Merchant,
			Amount:        up.Amount,
			Currency:      up.Currency,
			Category:      category,
			Pending:       up.Pending,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert transaction %s: %w", up.ID, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	// 5. Derived statistics over the trailing window. averageBalance is a
	// snapshot of the current balance, not a time-weighted average.
	statsSince := now.AddDate(0, 0, -statsWindowDays)
	for _, acct := range accounts {
		income, spending, err := e.store.AccountWindowTotals(ctx, acct.ID, statsSince)
		if err != nil {
			return nil, fmt.Errorf("window totals for account %s: %w", acct.ID, err)
		}
		if err := e.store.UpdateAccountStatistics(ctx, acct.ID, income, spending, acct.CurrentBalance); err != nil {
			return nil, fmt.Errorf("update statistics for account %s: %w", acct.ID, err)
		}

		status := domain.AccountInactive
		if acct.Enabled {
			status = domain.AccountActive
		}
		if err := e.store.SetAccountStatus(ctx, acct.ID, status); err != nil {
			return nil, fmt.Errorf("restore account status: %w", err)
		}
	}

	return result, nil
}

// syncWindow computes the transaction fetch window: a 30-day default, or
// since the last sync minus a 5-day safety overlap, floored at 90 days when
// no prior sync timestamp exists, plus a 1-day forward buffer against
// timezone clipping.
func syncWindow(now time.Time, lastSyncedAt *time.Time) (start, end time.Time) {
	end = now.AddDate(0, 0, forwardBufferDays)

	if lastSyncedAt == nil {
		return now.AddDate(0, 0, -maxWindowDays), end
	}

	start = now.AddDate(0, 0, -defaultWindowDays)
	if candidate := lastSyncedAt.AddDate(0, 0, -overlapDays); candidate.Before(start) {
		start = candidate
	}
	if floor := now.AddDate(0, 0, -maxWindowDays); start.Before(floor) {
		start = floor
	}
	return start, end
}
