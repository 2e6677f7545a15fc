package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/papertrade/internal/models"
)

// Compile-time check to ensure MemStore implements Store
var _ Store = (*MemStore)(nil)

// MemStore keeps everything in process memory. Used by tests and by the
// server when store.driver=memory.
type MemStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	trades   []models.Trade
	audit    []models.AuditEntry
	nextID   map[string]int64
	// one per account, created with it; guarded by mu
	locks map[string]*sync.Mutex

	now func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[string]*models.Account),
		nextID:   make(map[string]int64),
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

// id must be called with mu held for writing
func (s *MemStore) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *MemStore) CreateAccount(ctx context.Context, username, password, audit string) (models.Account, models.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.Account{}, models.AuditEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[username]; ok {
		return models.Account{}, models.AuditEntry{}, ErrAccountExists
	}
	acct := &models.Account{
		ID:        s.id("accounts"),
		Username:  username,
		Password:  password,
		Balance:   decimal.Zero,
		CreatedAt: s.now(),
	}
	s.accounts[username] = acct
	s.locks[username] = &sync.Mutex{}
	entry := s.appendAuditLocked(audit)
	return *acct, entry, nil
}

func (s *MemStore) GetAccount(ctx context.Context, username string) (models.Account, error) {
	if err := ctx.Err(); err != nil {
		return models.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[username]
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return *acct, nil
}

func (s *MemStore) AppendAudit(ctx context.Context, message string) (models.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.AuditEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendAuditLocked(message), nil
}

func (s *MemStore) appendAuditLocked(message string) models.AuditEntry {
	entry := models.AuditEntry{ID: s.id("audit"), Message: message, CreatedAt: s.now()}
	s.audit = append(s.audit, entry)
	return entry
}

func (s *MemStore) RecentAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	out := make([]models.AuditEntry, len(s.audit))
	copy(out, s.audit)
	s.mu.RUnlock()

	// commit order can differ from id order under concurrent transactions
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) AccountTrades(ctx context.Context, accountID int64, limit int) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Trade, 0)
	for i := len(s.trades) - 1; i >= 0 && len(out) < limit; i-- {
		if s.trades[i].AccountID == accountID {
			out = append(out, s.trades[i])
		}
	}
	return out, nil
}

func (s *MemStore) accountLock(username string) (*sync.Mutex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.locks[username]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return l, nil
}

func (s *MemStore) WithAccount(ctx context.Context, username string, fn func(tx Tx) error) error {
	l, err := s.accountLock(username)
	if err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()

	acct, err := s.GetAccount(ctx, username)
	if err != nil {
		return err
	}

	tx := &memTx{s: s, account: acct, balance: acct.Balance}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username].Balance = tx.balance
	s.trades = append(s.trades, tx.trades...)
	s.audit = append(s.audit, tx.audit...)
	return nil
}

// memTx stages writes until WithAccount commits them. IDs are drawn when a
// record is staged, so a rolled back transaction leaves a gap like a
// database sequence would.
type memTx struct {
	s       *MemStore
	account models.Account
	balance decimal.Decimal
	trades  []models.Trade
	audit   []models.AuditEntry
}

func (t *memTx) Account() models.Account { return t.account }

func (t *memTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("balance must not be negative")
	}
	t.balance = balance
	return nil
}

func (t *memTx) InsertTrade(ctx context.Context, trade models.Trade) (models.Trade, error) {
	t.s.mu.Lock()
	trade.ID = t.s.id("trades")
	trade.ExecutedAt = t.s.now()
	t.s.mu.Unlock()

	trade.AccountID = t.account.ID
	t.trades = append(t.trades, trade)
	return trade, nil
}

func (t *memTx) AppendAudit(ctx context.Context, message string) (models.AuditEntry, error) {
	t.s.mu.Lock()
	entry := models.AuditEntry{ID: t.s.id("audit"), Message: message, CreatedAt: t.s.now()}
	t.s.mu.Unlock()

	t.audit = append(t.audit, entry)
	return entry, nil
}
