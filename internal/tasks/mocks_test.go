package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/banksync/internal/docparse"
	"github.com/avolkov/banksync/internal/domain"
	"github.com/avolkov/banksync/internal/provider"
)

// mockHealthStore implements HealthStore with overridable funcs. Unset funcs
// return empty results.
type mockHealthStore struct {
	listDisconnectedFunc   func(ctx context.Context, notifiedBefore time.Time) ([]*domain.BankConnection, error)
	listAbandonmentFunc    func(ctx context.Context, statusChangedBefore time.Time, minNotifications int) ([]*domain.BankConnection, error)
	listExpiringFunc       func(ctx context.Context, accessedBefore, expiryNotifiedBefore time.Time) ([]*domain.BankConnection, error)
	listExpiredFunc        func(ctx context.Context, accessedBefore time.Time) ([]*domain.BankConnection, error)
	listReconnectFunc      func(ctx context.Context, alertedBefore time.Time) ([]*domain.BankConnection, error)
	listAccountsFunc       func(ctx context.Context, connectionID string) ([]*domain.BankAccount, error)
	recordDisconnectedFunc func(ctx context.Context, id string, at time.Time) error
	recordExpiryFunc       func(ctx context.Context, id string, at time.Time) error
	recordReconnectFunc    func(ctx context.Context, id string, at time.Time) error
	setRequiresAttnFunc    func(ctx context.Context, id, errorMessage string) error
	disableConnectionFunc  func(ctx context.Context, id string) error
}

func (m *mockHealthStore) ListDisconnectedCandidates(ctx context.Context, notifiedBefore time.Time) ([]*domain.BankConnection, error) {
	if m.listDisconnectedFunc != nil {
		return m.listDisconnectedFunc(ctx, notifiedBefore)
	}
	return nil, nil
}

func (m *mockHealthStore) ListAbandonmentCandidates(ctx context.Context, statusChangedBefore time.Time, minNotifications int) ([]*domain.BankConnection, error) {
	if m.listAbandonmentFunc != nil {
		return m.listAbandonmentFunc(ctx, statusChangedBefore, minNotifications)
	}
	return nil, nil
}

func (m *mockHealthStore) ListExpiringCandidates(ctx context.Context, accessedBefore, expiryNotifiedBefore time.Time) ([]*domain.BankConnection, error) {
	if m.listExpiringFunc != nil {
		return m.listExpiringFunc(ctx, accessedBefore, expiryNotifiedBefore)
	}
	return nil, nil
}

func (m *mockHealthStore) ListExpiredCandidates(ctx context.Context, accessedBefore time.Time) ([]*domain.BankConnection, error) {
	if m.listExpiredFunc != nil {
		return m.listExpiredFunc(ctx, accessedBefore)
	}
	return nil, nil
}

func (m *mockHealthStore) ListReconnectAlertCandidates(ctx context.Context, alertedBefore time.Time) ([]*domain.BankConnection, error) {
	if m.listReconnectFunc != nil {
		return m.listReconnectFunc(ctx, alertedBefore)
	}
	return nil, nil
}

func (m *mockHealthStore) ListAccountsByConnection(ctx context.Context, connectionID string) ([]*domain.BankAccount, error) {
	if m.listAccountsFunc != nil {
		return m.listAccountsFunc(ctx, connectionID)
	}
	return nil, nil
}

func (m *mockHealthStore) RecordDisconnectedNotified(ctx context.Context, id string, at time.Time) error {
	if m.recordDisconnectedFunc != nil {
		return m.recordDisconnectedFunc(ctx, id, at)
	}
	return nil
}

func (m *mockHealthStore) RecordExpiryNotified(ctx context.Context, id string, at time.Time) error {
	if m.recordExpiryFunc != nil {
		return m.recordExpiryFunc(ctx, id, at)
	}
	return nil
}

func (m *mockHealthStore) RecordReconnectAlerted(ctx context.Context, id string, at time.Time) error {
	if m.recordReconnectFunc != nil {
		return m.recordReconnectFunc(ctx, id, at)
	}
	return nil
}

func (m *mockHealthStore) SetRequiresAttention(ctx context.Context, id, errorMessage string) error {
	if m.setRequiresAttnFunc != nil {
		return m.setRequiresAttnFunc(ctx, id, errorMessage)
	}
	return nil
}

func (m *mockHealthStore) DisableConnection(ctx context.Context, id string) error {
	if m.disableConnectionFunc != nil {
		return m.disableConnectionFunc(ctx, id)
	}
	return nil
}

// mockNotifier implements Notifier and records what was sent.
type mockNotifier struct {
	disconnectedFunc func(ctx context.Context, conn *domain.BankConnection) error
	expiringFunc     func(ctx context.Context, conn *domain.BankConnection, daysUntilExpiry int) error
	reconnectFunc    func(ctx context.Context, conn *domain.BankConnection, accountNames []string) error
	summaryFunc      func(ctx context.Context, conn *domain.BankConnection, created int) error

	disconnected []string
	expiring     map[string]int
	reconnect    map[string][]string
	summaries    map[string]int
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{
		expiring:  make(map[string]int),
		reconnect: make(map[string][]string),
		summaries: make(map[string]int),
	}
}

func (m *mockNotifier) NotifyDisconnected(ctx context.Context, conn *domain.BankConnection) error {
	if m.disconnectedFunc != nil {
		return m.disconnectedFunc(ctx, conn)
	}
	m.disconnected = append(m.disconnected, conn.ID)
	return nil
}

func (m *mockNotifier) NotifyExpiring(ctx context.Context, conn *domain.BankConnection, daysUntilExpiry int) error {
	if m.expiringFunc != nil {
		return m.expiringFunc(ctx, conn, daysUntilExpiry)
	}
	m.expiring[conn.ID] = daysUntilExpiry
	return nil
}

func (m *mockNotifier) SendReconnectAlert(ctx context.Context, conn *domain.BankConnection, accountNames []string) error {
	if m.reconnectFunc != nil {
		return m.reconnectFunc(ctx, conn, accountNames)
	}
	m.reconnect[conn.ID] = accountNames
	return nil
}

func (m *mockNotifier) NotifyTransactionsSummary(ctx context.Context, conn *domain.BankConnection, created int) error {
	if m.summaryFunc != nil {
		return m.summaryFunc(ctx, conn, created)
	}
	m.summaries[conn.ID] = created
	return nil
}

// fakeSyncStore is an in-memory SyncStore that records the sync status
// history per connection and deduplicates transactions by (account,
// external ID), the way the relational store does.
type fakeSyncStore struct {
	candidates []*domain.BankConnection
	accounts   map[string][]*domain.BankAccount

	statusHistory map[string][]domain.SyncStatus
	succeededAt   map[string]time.Time
	failedWith    map[string]string
	flippedError  map[string]bool

	transactions  map[string]*domain.Transaction
	accountStatus map[string]domain.AccountStatus
	balances      map[string][3]decimal.Decimal
	statistics    map[string][3]decimal.Decimal
	windowTotals  map[string][2]decimal.Decimal
	upsertErr     error
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{
		accounts:      make(map[string][]*domain.BankAccount),
		statusHistory: make(map[string][]domain.SyncStatus),
		succeededAt:   make(map[string]time.Time),
		failedWith:    make(map[string]string),
		flippedError:  make(map[string]bool),
		transactions:  make(map[string]*domain.Transaction),
		accountStatus: make(map[string]domain.AccountStatus),
		balances:      make(map[string][3]decimal.Decimal),
		statistics:    make(map[string][3]decimal.Decimal),
		windowTotals:  make(map[string][2]decimal.Decimal),
	}
}

func (s *fakeSyncStore) ListSyncCandidates(ctx context.Context, syncedBefore time.Time, limit int) ([]*domain.BankConnection, error) {
	if len(s.candidates) > limit {
		return s.candidates[:limit], nil
	}
	return s.candidates, nil
}

func (s *fakeSyncStore) ListConnectionsByUser(ctx context.Context, userID string) ([]*domain.BankConnection, error) {
	var out []*domain.BankConnection
	for _, c := range s.candidates {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeSyncStore) SetSyncStatus(ctx context.Context, id string, status domain.SyncStatus) error {
	s.statusHistory[id] = append(s.statusHistory[id], status)
	return nil
}

func (s *fakeSyncStore) MarkSyncSucceeded(ctx context.Context, id string, at time.Time) error {
	s.statusHistory[id] = append(s.statusHistory[id], domain.SyncIdle)
	s.succeededAt[id] = at
	return nil
}

func (s *fakeSyncStore) MarkSyncFailed(ctx context.Context, id, errorMessage string, flipToError bool) error {
	s.statusHistory[id] = append(s.statusHistory[id], domain.SyncFailed)
	s.failedWith[id] = errorMessage
	s.flippedError[id] = flipToError
	return nil
}

func (s *fakeSyncStore) ListAccountsByConnection(ctx context.Context, connectionID string) ([]*domain.BankAccount, error) {
	return s.accounts[connectionID], nil
}

func (s *fakeSyncStore) UpdateAccountBalances(ctx context.Context, id string, available, current, limit decimal.Decimal, at time.Time) error {
	s.balances[id] = [3]decimal.Decimal{available, current, limit}
	return nil
}

func (s *fakeSyncStore) UpdateAccountStatistics(ctx context.Context, id string, income, spending, average decimal.Decimal) error {
	s.statistics[id] = [3]decimal.Decimal{income, spending, average}
	return nil
}

func (s *fakeSyncStore) SetAccountStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	s.accountStatus[id] = status
	return nil
}

func (s *fakeSyncStore) UpsertTransaction(ctx context.Context, t *domain.Transaction) (bool, error) {
	if s.upsertErr != nil {
		return false, s.upsertErr
	}
	key := t.BankAccountID + "/" + t.ExternalID
	_, exists := s.transactions[key]
	s.transactions[key] = t
	return !exists, nil
}

func (s *fakeSyncStore) AccountWindowTotals(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, decimal.Decimal, error) {
	totals := s.windowTotals[accountID]
	return totals[0], totals[1], nil
}

// mockProvider implements provider.Client with overridable funcs.
type mockProvider struct {
	itemDetailsFunc  func(ctx context.Context, accessToken string) (*provider.ItemStatus, error)
	accountsFunc     func(ctx context.Context, accessToken string) ([]provider.Account, error)
	transactionsFunc func(ctx context.Context, accessToken, connectionID string, accountIDs []string, startDate, endDate string) ([]provider.Transaction, error)
}

func (m *mockProvider) GetItemDetails(ctx context.Context, accessToken string) (*provider.ItemStatus, error) {
	if m.itemDetailsFunc != nil {
		return m.itemDetailsFunc(ctx, accessToken)
	}
	return &provider.ItemStatus{Valid: true}, nil
}

func (m *mockProvider) GetAccounts(ctx context.Context, accessToken string) ([]provider.Account, error) {
	if m.accountsFunc != nil {
		return m.accountsFunc(ctx, accessToken)
	}
	return nil, nil
}

func (m *mockProvider) GetTransactions(ctx context.Context, accessToken, connectionID string, accountIDs []string, startDate, endDate string) ([]provider.Transaction, error) {
	if m.transactionsFunc != nil {
		return m.transactionsFunc(ctx, accessToken, connectionID, accountIDs, startDate, endDate)
	}
	return nil, nil
}

var errInboxMissing = errors.New("inbox record not found")

// fakeInboxStore is an in-memory InboxStore tracking status transitions.
type fakeInboxStore struct {
	records       map[string]*domain.Inbox
	statusHistory map[string][]domain.InboxStatus
	failureMeta   map[string]map[string]any

	createErr    error
	reconcileErr error
}

func newFakeInboxStore() *fakeInboxStore {
	return &fakeInboxStore{
		records:       make(map[string]*domain.Inbox),
		statusHistory: make(map[string][]domain.InboxStatus),
		failureMeta:   make(map[string]map[string]any),
	}
}

func (s *fakeInboxStore) CreateInbox(ctx context.Context, in *domain.Inbox) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.records[in.ID] = in
	s.statusHistory[in.ID] = append(s.statusHistory[in.ID], in.Status)
	return nil
}

func (s *fakeInboxStore) GetInbox(ctx context.Context, id string) (*domain.Inbox, error) {
	in, ok := s.records[id]
	if !ok {
		return nil, errInboxMissing
	}
	copied := *in
	return &copied, nil
}

func (s *fakeInboxStore) SetInboxStatus(ctx context.Context, id string, status domain.InboxStatus) error {
	if in, ok := s.records[id]; ok {
		in.Status = status
	}
	s.statusHistory[id] = append(s.statusHistory[id], status)
	return nil
}

func (s *fakeInboxStore) SetInboxFailure(ctx context.Context, id string, status domain.InboxStatus, meta map[string]any) error {
	if in, ok := s.records[id]; ok {
		in.Status = status
		in.Meta = meta
	}
	s.statusHistory[id] = append(s.statusHistory[id], status)
	s.failureMeta[id] = meta
	return nil
}

func (s *fakeInboxStore) ReconcileInboxExtraction(ctx context.Context, in *domain.Inbox) error {
	if s.reconcileErr != nil {
		return s.reconcileErr
	}
	copied := *in
	s.records[in.ID] = &copied
	s.statusHistory[in.ID] = append(s.statusHistory[in.ID], in.Status)
	return nil
}

// mockRetriever implements objstore.Retriever. The call counter is guarded
// because retrieval runs in a timeout-raced goroutine.
type mockRetriever struct {
	retrieveFunc func(ctx context.Context, filePath string) ([]byte, error)

	mu        sync.Mutex
	callCount int
}

func (m *mockRetriever) Retrieve(ctx context.Context, filePath string) ([]byte, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
	return m.retrieveFunc(ctx, filePath)
}

func (m *mockRetriever) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// mockParser implements docparse.Parser.
type mockParser struct {
	parseFunc func(ctx context.Context, in docparse.Input) (*docparse.Extraction, error)
}

func (m *mockParser) Parse(ctx context.Context, in docparse.Input) (*docparse.Extraction, error) {
	return m.parseFunc(ctx, in)
}
