package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/xtrntr/papertrade/internal/models"
	"github.com/xtrntr/papertrade/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

// Compile-time check to ensure DB implements store.Store
var _ store.Store = (*DB)(nil)

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Migrate applies the embedded schema. Safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

const accountColumns = "id, username, password, balance, created_at"

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Username, &a.Password, &a.Balance, &a.CreatedAt)
	return a, err
}

// CreateAccount inserts a new account and its registration audit entry
func (db *DB) CreateAccount(ctx context.Context, username, password, audit string) (models.Account, models.AuditEntry, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return models.Account{}, models.AuditEntry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	acct, err := scanAccount(tx.QueryRow(ctx,
		"INSERT INTO accounts (username, password) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING RETURNING "+accountColumns,
		username, password))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, models.AuditEntry{}, store.ErrAccountExists
		}
		return models.Account{}, models.AuditEntry{}, fmt.Errorf("failed to create account: %w", err)
	}

	entry, err := appendAudit(ctx, tx, audit)
	if err != nil {
		return models.Account{}, models.AuditEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Account{}, models.AuditEntry{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return acct, entry, nil
}

// GetAccount retrieves an account by username
func (db *DB) GetAccount(ctx context.Context, username string) (models.Account, error) {
	acct, err := scanAccount(db.Pool.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE username = $1", username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, store.ErrAccountNotFound
		}
		return models.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func appendAudit(ctx context.Context, q querier, message string) (models.AuditEntry, error) {
	var e models.AuditEntry
	err := q.QueryRow(ctx,
		"INSERT INTO audit_log (message) VALUES ($1) RETURNING id, message, created_at",
		message).Scan(&e.ID, &e.Message, &e.CreatedAt)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return e, nil
}

// AppendAudit inserts a standalone audit entry
func (db *DB) AppendAudit(ctx context.Context, message string) (models.AuditEntry, error) {
	return appendAudit(ctx, db.Pool, message)
}

// RecentAudit retrieves the newest audit entries
func (db *DB) RecentAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, message, created_at FROM audit_log ORDER BY id DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AccountTrades retrieves an account's trades, newest first
func (db *DB) AccountTrades(ctx context.Context, accountID int64, limit int) ([]models.Trade, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, ref, account_id, exchange, symbol, side, amount, price, executed_at "+
			"FROM trades WHERE account_id = $1 ORDER BY id DESC LIMIT $2",
		accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get account trades: %w", err)
	}
	defer rows.Close()

	trades := make([]models.Trade, 0)
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.ID, &t.Ref, &t.AccountID, &t.Exchange, &t.Symbol, &t.Side, &t.Amount, &t.Price, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// WithAccount locks the account row for the lifetime of a transaction and
// commits only if fn succeeds
func (db *DB) WithAccount(ctx context.Context, username string, fn func(tx store.Tx) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the row for update to prevent concurrent balance changes
	acct, err := scanAccount(tx.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE username = $1 FOR UPDATE", username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrAccountNotFound
		}
		return fmt.Errorf("failed to lock account: %w", err)
	}

	if err := fn(&accountTx{tx: tx, account: acct}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type accountTx struct {
	tx      pgx.Tx
	account models.Account
}

func (t *accountTx) Account() models.Account { return t.account }

func (t *accountTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, "UPDATE accounts SET balance = $1 WHERE id = $2", balance, t.account.ID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}

func (t *accountTx) InsertTrade(ctx context.Context, trade models.Trade) (models.Trade, error) {
	var out models.Trade
	err := t.tx.QueryRow(ctx,
		"INSERT INTO trades (ref, account_id, exchange, symbol, side, amount, price) VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"RETURNING id, ref, account_id, exchange, symbol, side, amount, price, executed_at",
		trade.Ref, t.account.ID, trade.Exchange, trade.Symbol, trade.Side, trade.Amount, trade.Price).Scan(
		&out.ID, &out.Ref, &out.AccountID, &out.Exchange, &out.Symbol, &out.Side, &out.Amount, &out.Price, &out.ExecutedAt)
	if err != nil {
		return models.Trade{}, fmt.Errorf("failed to create trade: %w", err)
	}
	return out, nil
}

func (t *accountTx) AppendAudit(ctx context.Context, message string) (models.AuditEntry, error) {
	return appendAudit(ctx, t.tx, message)
}
