package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xtrntr/papertrade/internal/auth"
	"github.com/xtrntr/papertrade/internal/quote"
	"github.com/xtrntr/papertrade/internal/store"
	"github.com/xtrntr/papertrade/internal/trading"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// first match wins; an empty message means the error text is shown
var errorMappings = []errorMapping{
	{store.ErrAccountNotFound, http.StatusNotFound, "User not found"},
	{store.ErrAccountExists, http.StatusBadRequest, "User already exists"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{auth.ErrInvalidInput, http.StatusBadRequest, ""},
	{quote.ErrExchangeUnsupported, http.StatusNotFound, "Exchange not supported"},
	{quote.ErrSymbolUnsupported, http.StatusNotFound, "Symbol not supported"},
	{quote.ErrUnavailable, http.StatusBadGateway, "Price unavailable"},
	{trading.ErrInvalidSide, http.StatusBadRequest, "Invalid side"},
	{trading.ErrInvalidAmount, http.StatusBadRequest, "Amount must be positive"},
	{trading.ErrAmountOutOfRange, http.StatusBadRequest, "Amount out of range"},
	{trading.ErrInsufficientFunds, http.StatusBadRequest, "Insufficient funds"},
}

// statusFor classifies err into an HTTP status and client-facing message
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.message == "" {
				return m.status, err.Error()
			}
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("internal_error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	} else if status == http.StatusBadGateway {
		h.Logger.Warn("upstream_error", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
