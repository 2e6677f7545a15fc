package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Compile-time check to ensure Binance implements Source
var _ Source = (*Binance)(nil)

// Binance reads prices from the public ticker endpoint
type Binance struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

func NewBinance(baseURL string, timeout time.Duration) *Binance {
	return &Binance{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetPrice returns the last traded price. A response without a price field
// yields zero.
func (b *Binance) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	u := b.BaseURL + "/api/v3/ticker/price?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("%w: ticker %s returned %d: %s", ErrUnavailable, symbol, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode ticker: %v", ErrUnavailable, err)
	}
	if tr.Price == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(tr.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad price %q: %v", ErrUnavailable, tr.Price, err)
	}
	return price, nil
}
