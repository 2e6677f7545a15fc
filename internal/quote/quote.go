// Package quote resolves current prices for (exchange, symbol) pairs.
package quote

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	ErrExchangeUnsupported = errors.New("exchange not supported")
	ErrSymbolUnsupported   = errors.New("symbol not supported")
	ErrUnavailable         = errors.New("quote unavailable")
)

// Source returns the current price of a symbol
type Source interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Venue is one listed exchange: the symbols it offers and where its prices come from
type Venue struct {
	Symbols []string
	Source  Source
}

// Registry maps exchange identifiers to venues
type Registry struct {
	venues map[string]Venue
}

func NewRegistry() *Registry {
	return &Registry{venues: make(map[string]Venue)}
}

// Register adds or replaces an exchange
func (r *Registry) Register(exchange string, src Source, symbols ...string) {
	r.venues[exchange] = Venue{Symbols: symbols, Source: src}
}

// Exchanges lists the registered exchange ids in sorted order
func (r *Registry) Exchanges() []string {
	ids := make([]string, 0, len(r.venues))
	for id := range r.venues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Symbols(exchange string) ([]string, error) {
	v, ok := r.venues[exchange]
	if !ok {
		return nil, ErrExchangeUnsupported
	}
	return v.Symbols, nil
}

// Resolve checks the pairing and returns the source serving it
func (r *Registry) Resolve(exchange, symbol string) (Source, error) {
	v, ok := r.venues[exchange]
	if !ok {
		return nil, ErrExchangeUnsupported
	}
	for _, s := range v.Symbols {
		if s == symbol {
			return v.Source, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrSymbolUnsupported, symbol, exchange)
}

// Price fetches the current price for a listed pair
func (r *Registry) Price(ctx context.Context, exchange, symbol string) (decimal.Decimal, error) {
	src, err := r.Resolve(exchange, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return src.GetPrice(ctx, symbol)
}

// DefaultSymbols are the pairs listed on every demo exchange
var DefaultSymbols = []string{"BTCUSDT", "ETHUSDT"}

// NewDefaultRegistry lists binance and coinbase. Both are priced by src
// until coinbase gets a client of its own.
func NewDefaultRegistry(src Source) *Registry {
	r := NewRegistry()
	r.Register("binance", src, DefaultSymbols...)
	r.Register("coinbase", src, DefaultSymbols...)
	return r
}
