package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinance_GetPrice(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expectPrice string
		expectError bool
	}{
		{
			name:        "Success",
			status:      http.StatusOK,
			body:        `{"symbol":"BTCUSDT","price":"50000.12000000"}`,
			expectPrice: "50000.12",
		},
		{
			name:        "MissingPrice",
			status:      http.StatusOK,
			body:        `{"symbol":"BTCUSDT"}`,
			expectPrice: "0",
		},
		{
			name:        "UpstreamError",
			status:      http.StatusBadRequest,
			body:        `{"code":-1121,"msg":"Invalid symbol."}`,
			expectError: true,
		},
		{
			name:        "MalformedBody",
			status:      http.StatusOK,
			body:        `not json`,
			expectError: true,
		},
		{
			name:        "NonNumericPrice",
			status:      http.StatusOK,
			body:        `{"price":"abc"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
				assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			b := NewBinance(srv.URL+"/", time.Second)
			price, err := b.GetPrice(context.Background(), "BTCUSDT")
			if tt.expectError {
				assert.ErrorIs(t, err, ErrUnavailable)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.expectPrice).Equal(price), "got %s", price)
		})
	}
}

func TestBinance_GetPrice_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	b := NewBinance(srv.URL, 50*time.Millisecond)
	_, err := b.GetPrice(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, ErrUnavailable)
}

type staticSource decimal.Decimal

func (s staticSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Decimal(s), nil
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry(staticSource(decimal.NewFromInt(42)))

	assert.Equal(t, []string{"binance", "coinbase"}, r.Exchanges())

	symbols, err := r.Symbols("coinbase")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, symbols)

	_, err = r.Symbols("kraken")
	assert.ErrorIs(t, err, ErrExchangeUnsupported)

	price, err := r.Price(context.Background(), "binance", "ETHUSDT")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(42).Equal(price))

	_, err = r.Price(context.Background(), "kraken", "BTCUSDT")
	assert.ErrorIs(t, err, ErrExchangeUnsupported)

	_, err = r.Price(context.Background(), "binance", "DOGEUSDT")
	assert.ErrorIs(t, err, ErrSymbolUnsupported)
}
