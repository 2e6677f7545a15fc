package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xtrntr/papertrade/internal/auth"
	"github.com/xtrntr/papertrade/internal/models"
	"github.com/xtrntr/papertrade/internal/quote"
	"github.com/xtrntr/papertrade/internal/store"
	"github.com/xtrntr/papertrade/internal/trading"
)

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 500
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Store       store.Store
	Trading     *trading.Service
	AuthService *auth.AuthService
	Quotes      *quote.Registry
	Logger      *zap.Logger
	LogsLimit   int
}

// NewHandler creates a new handler
func NewHandler(st store.Store, tr *trading.Service, authService *auth.AuthService, quotes *quote.Registry, logger *zap.Logger, logsLimit int) *Handler {
	return &Handler{
		Store:       st,
		Trading:     tr,
		AuthService: authService,
		Quotes:      quotes,
		Logger:      logger,
		LogsLimit:   logsLimit,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles account registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.AuthService.Register(r.Context(), req.Username, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Registration successful"})
}

// Login handles account login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.AuthService.Login(r.Context(), req.Username, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
}

// Deposit credits an account
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string          `json:"username"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, err := h.Trading.Deposit(r.Context(), req.Username, req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance.InexactFloat64()})
}

// ListExchanges returns the supported exchange ids
func (h *Handler) ListExchanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"exchanges": h.Quotes.Exchanges()})
}

// ListSymbols returns the symbols listed on an exchange
func (h *Handler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.Quotes.Symbols(chi.URLParam(r, "exchange"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"symbols": symbols})
}

// GetPrice returns the current quote for a pair
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.Quotes.Price(r.Context(), chi.URLParam(r, "exchange"), chi.URLParam(r, "symbol"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"price": price.InexactFloat64()})
}

// Trade settles a market order at the current quote
func (h *Handler) Trade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string          `json:"username"`
		Exchange string          `json:"exchange"`
		Symbol   string          `json:"symbol"`
		Side     models.Side     `json:"side"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.Trading.Settle(r.Context(), trading.Order{
		Username: req.Username,
		Exchange: req.Exchange,
		Symbol:   req.Symbol,
		Side:     req.Side,
		Amount:   req.Amount,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance": res.Balance.InexactFloat64(),
		"price":   res.Price.InexactFloat64(),
		"ref":     res.Trade.Ref.String(),
	})
}

// GetLogs lists the newest audit entries
func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.RecentAudit(r.Context(), h.LogsLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	logs := make([]string, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, e.Format())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

// GetAccount returns an account's balance
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Trading.Account(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": acct.Username,
		"balance":  acct.Balance.InexactFloat64(),
	})
}

type tradeView struct {
	Ref        string  `json:"ref"`
	Exchange   string  `json:"exchange"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Amount     float64 `json:"amount"`
	Price      float64 `json:"price"`
	ExecutedAt string  `json:"executed_at"`
}

// GetAccountTrades returns an account's trade history, newest first
func (h *Handler) GetAccountTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxTradesLimit {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	trades, err := h.Trading.Trades(r.Context(), chi.URLParam(r, "username"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, tradeView{
			Ref:        t.Ref.String(),
			Exchange:   t.Exchange,
			Symbol:     t.Symbol,
			Side:       string(t.Side),
			Amount:     t.Amount.InexactFloat64(),
			Price:      t.Price.InexactFloat64(),
			ExecutedAt: t.ExecutedAt.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trades": views})
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
