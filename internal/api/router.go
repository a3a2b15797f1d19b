package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/api/middleware"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/ratelimit"
)

type RouterConfig struct {
	Handlers       *Handlers
	Verifier       middleware.TokenVerifier
	// TrackLimiter guards every endpoint that accepts an (order id, email)
	// pair, so the pair cannot be guessed through a second route.
	TrackLimiter ratelimit.Limiter
	// TrustProxyHeaders installs chi's RealIP. Leave off unless a proxy in
	// front overwrites X-Forwarded-For and X-Real-IP.
	TrustProxyHeaders bool
	Metrics           http.Handler
	AllowedOrigins    []string
	Logger            zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handlers
	limiter := cfg.TrackLimiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		// The gateway never sends a session token.
		r.Post("/payments/webhook", h.PaymentWebhook)
		r.Get("/payments/return", h.PaymentReturn)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Verifier))

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders/{id}", h.GetOrder)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(limiter, cfg.Logger))
				r.Post("/orders/track", h.TrackOrder)
				r.Post("/orders/{id}/payment", h.RetryPayment)
			})

			r.Route("/admin/orders", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", h.ListOrders)
				r.Get("/stats", h.OrderStats)
				r.Get("/{id}", h.AdminGetOrder)
				r.Patch("/{id}/status", h.UpdateOrderStatus)
				r.Delete("/{id}", h.DeleteOrder)
			})
		})
	})

	return r
}
