package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Account represents a registered trading account
type Account struct {
	ID        int64
	Username  string
	Password  string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Trade represents an executed trade; never mutated after insert
type Trade struct {
	ID         int64           `json:"id"`
	Ref        uuid.UUID       `json:"ref"`
	AccountID  int64           `json:"account_id"`
	Exchange   string          `json:"exchange"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Amount     decimal.Decimal `json:"amount"`
	Price      decimal.Decimal `json:"price"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// Scale is the number of fractional digits kept for balances, amounts and prices
const Scale = 10

// maxMagnitude is the exclusive bound of a NUMERIC(28,10) column
var maxMagnitude = decimal.New(1, 28-Scale)

// Representable reports whether d is stored exactly, without rounding or overflow
func Representable(d decimal.Decimal) bool {
	return d.Abs().LessThan(maxMagnitude) && d.Equal(d.Truncate(Scale))
}

// Total is the quote-currency value of the trade, rounded to Scale
func (t Trade) Total() decimal.Decimal {
	return t.Price.Mul(t.Amount).Round(Scale)
}

// AuditEntry is a free-text activity log record
type AuditEntry struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

// Format renders the entry the way GET /logs lists it
func (e AuditEntry) Format() string {
	return e.CreatedAt.UTC().Format("2006-01-02 15:04:05.000000") + ": " + e.Message
}
