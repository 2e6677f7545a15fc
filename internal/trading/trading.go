// Package trading settles simulated market orders against account balances.
package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xtrntr/papertrade/internal/models"
	"github.com/xtrntr/papertrade/internal/quote"
	"github.com/xtrntr/papertrade/internal/store"
)

var (
	ErrInvalidSide       = errors.New("invalid side")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAmountOutOfRange  = errors.New("amount exceeds supported precision or range")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Publisher receives audit entries once they are committed
type Publisher interface {
	Publish(entry models.AuditEntry)
}

// PriceResolver is satisfied by *quote.Registry
type PriceResolver interface {
	Resolve(exchange, symbol string) (quote.Source, error)
}

// Service executes trades and deposits
type Service struct {
	Store     store.Store
	Quotes    PriceResolver
	Publisher Publisher
	Logger    *zap.Logger
}

// NewService creates a trading service. pub may be nil.
func NewService(st store.Store, quotes PriceResolver, pub Publisher, logger *zap.Logger) *Service {
	return &Service{Store: st, Quotes: quotes, Publisher: pub, Logger: logger}
}

// Order is a market order at the current quote
type Order struct {
	Username string
	Exchange string
	Symbol   string
	Side     models.Side
	Amount   decimal.Decimal
}

// Settlement is the outcome of a settled order
type Settlement struct {
	Balance decimal.Decimal
	Price   decimal.Decimal
	Trade   models.Trade
}

// Settle prices the order and applies it to the account. The quote is
// fetched before the account is locked; the balance check and all writes
// happen under the lock in one transaction, so a failure leaves nothing behind.
func (s *Service) Settle(ctx context.Context, o Order) (Settlement, error) {
	if !o.Side.Valid() {
		return Settlement{}, fmt.Errorf("%w: %q", ErrInvalidSide, o.Side)
	}
	if err := checkAmount(o.Amount); err != nil {
		return Settlement{}, err
	}

	if _, err := s.Store.GetAccount(ctx, o.Username); err != nil {
		return Settlement{}, err
	}

	src, err := s.Quotes.Resolve(o.Exchange, o.Symbol)
	if err != nil {
		return Settlement{}, err
	}
	price, err := src.GetPrice(ctx, o.Symbol)
	if err != nil {
		return Settlement{}, err
	}
	price = price.Round(models.Scale)
	if !price.IsPositive() || !models.Representable(price) {
		return Settlement{}, fmt.Errorf("%w: no price for %s on %s", quote.ErrUnavailable, o.Symbol, o.Exchange)
	}

	pending := models.Trade{
		Exchange: o.Exchange,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Amount:   o.Amount,
		Price:    price,
	}
	total := pending.Total()
	var (
		result Settlement
		entry  models.AuditEntry
	)
	err = s.Store.WithAccount(ctx, o.Username, func(tx store.Tx) error {
		balance := tx.Account().Balance
		switch o.Side {
		case models.SideBuy:
			if balance.LessThan(total) {
				return fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, total, balance)
			}
			balance = balance.Sub(total)
		case models.SideSell:
			// no position tracking: sells always settle
			balance = balance.Add(total)
			if !models.Representable(balance) {
				return fmt.Errorf("%w: balance would reach %s", ErrAmountOutOfRange, balance)
			}
		}

		if err := tx.SetBalance(ctx, balance); err != nil {
			return err
		}
		pending.Ref = uuid.New()
		trade, err := tx.InsertTrade(ctx, pending)
		if err != nil {
			return err
		}
		entry, err = tx.AppendAudit(ctx, fmt.Sprintf("%s executed %s of %s %s on %s at %s",
			o.Username, o.Side, o.Amount, o.Symbol, o.Exchange, price))
		if err != nil {
			return err
		}

		result = Settlement{Balance: balance, Price: price, Trade: trade}
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}

	s.Logger.Info("trade settled",
		zap.String("username", o.Username),
		zap.String("ref", result.Trade.Ref.String()),
		zap.String("side", string(o.Side)),
		zap.String("symbol", o.Symbol),
		zap.String("total", total.String()))
	s.publish(entry)
	return result, nil
}

// Deposit credits amount to the account
func (s *Service) Deposit(ctx context.Context, username string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var (
		balance decimal.Decimal
		entry   models.AuditEntry
	)
	err := s.Store.WithAccount(ctx, username, func(tx store.Tx) error {
		balance = tx.Account().Balance.Add(amount)
		if !models.Representable(balance) {
			return fmt.Errorf("%w: balance would reach %s", ErrAmountOutOfRange, balance)
		}
		if err := tx.SetBalance(ctx, balance); err != nil {
			return err
		}
		var err error
		entry, err = tx.AppendAudit(ctx, fmt.Sprintf("%s deposited %s", username, amount))
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.publish(entry)
	return balance, nil
}

// Account returns the account's current state
func (s *Service) Account(ctx context.Context, username string) (models.Account, error) {
	return s.Store.GetAccount(ctx, username)
}

// Trades returns up to limit of the account's trades, newest first
func (s *Service) Trades(ctx context.Context, username string, limit int) ([]models.Trade, error) {
	acct, err := s.Store.GetAccount(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.Store.AccountTrades(ctx, acct.ID, limit)
}

// checkAmount accepts positive amounts that the store keeps without rounding
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !models.Representable(amount) {
		return fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount)
	}
	return nil
}

func (s *Service) publish(entry models.AuditEntry) {
	if s.Publisher != nil {
		s.Publisher.Publish(entry)
	}
}
