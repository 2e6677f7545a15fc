// Package store defines the persistence contracts shared by the PostgreSQL
// and in-memory backends.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/xtrntr/papertrade/internal/models"
)

var (
	ErrAccountNotFound = errors.New("user not found")
	ErrAccountExists   = errors.New("user already exists")
)

// Store holds accounts, trades and the audit log.
type Store interface {
	// CreateAccount inserts an account with a zero balance and appends audit
	// in the same transaction. Returns ErrAccountExists if the username is taken.
	CreateAccount(ctx context.Context, username, password, audit string) (models.Account, models.AuditEntry, error)
	GetAccount(ctx context.Context, username string) (models.Account, error)
	AppendAudit(ctx context.Context, message string) (models.AuditEntry, error)
	// RecentAudit returns up to limit entries, newest first.
	RecentAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
	// AccountTrades returns up to limit trades of the account, newest first.
	AccountTrades(ctx context.Context, accountID int64, limit int) ([]models.Trade, error)
	// WithAccount runs fn while holding the account's write lock. Writes made
	// through tx are committed only if fn returns nil and ctx is still live.
	WithAccount(ctx context.Context, username string, fn func(tx Tx) error) error
}

// Tx is the write scope of a single locked account.
type Tx interface {
	// Account is the account as read under the lock.
	Account() models.Account
	SetBalance(ctx context.Context, balance decimal.Decimal) error
	InsertTrade(ctx context.Context, trade models.Trade) (models.Trade, error)
	AppendAudit(ctx context.Context, message string) (models.AuditEntry, error)
}
