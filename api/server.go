package api

import (
	"net/http"
	"time"

	"giftboard/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the chi router. Mutating routes require a bearer token when cfg.JWTSecret is set.
func NewRouter(h *Handler, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/competitors", func(r chi.Router) {
			r.Get("/", h.ListCompetitors)

			r.Group(func(r chi.Router) {
				if cfg.JWTSecret != "" {
					r.Use(authenticator(cfg.JWTSecret))
				}
				r.Patch("/", h.UpdateCompetitor)
				r.Post("/send-gift", h.SendGift)
			})
		})

		r.Route("/user/balance", func(r chi.Router) {
			r.Get("/", h.GetBalance)
			r.Get("/history", h.GetBalanceHistory)
		})
	})

	return r
}

// NewServer wraps the router in an http.Server listening on cfg.HTTPAddr
func NewServer(cfg *config.Config, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
