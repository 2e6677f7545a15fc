package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter wires every route. ws serves the live activity feed and may be nil.
func NewRouter(h *Handler, ws http.Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	if ws != nil {
		r.Handle("/ws", ws)
	}

	h.routes(r)
	// the bundled web client calls everything under /api
	r.Route("/api", h.routes)
	return r
}

func (h *Handler) routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/deposit", h.Deposit)
	r.Post("/trade", h.Trade)
	r.Get("/exchanges", h.ListExchanges)
	r.Get("/exchanges/{exchange}/symbols", h.ListSymbols)
	r.Get("/price/{exchange}/{symbol}", h.GetPrice)
	r.Get("/logs", h.GetLogs)
	r.Get("/accounts/{username}", h.GetAccount)
	r.Get("/accounts/{username}/trades", h.GetAccountTrades)
}

// RequestLogger logs one line per request
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Duration("latency", time.Since(start)),
			)
		})
	}
}
