package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/fjod/storefront/pkg/middleware"
)

type Config struct {
	ProductServiceURL  *url.URL
	CartServiceURL     *url.URL
	AllowedOrigins     []string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cfg Config, logger *zap.Logger) http.Handler {
	products := NewProxy("product-service", cfg.ProductServiceURL, logger)
	carts := NewProxy("cart-service", cfg.CartServiceURL, logger)

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "X-Session-ID", "Idempotency-Key", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"X-Session-ID", middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(chimw.RequestSize(cfg.MaxRequestBodySize))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Handle("/groups", products)
		r.Handle("/groups/*", products)
		r.Handle("/variants/*", products)

		r.Handle("/cart", carts)
		r.Handle("/cart/*", carts)
		r.Handle("/checkout", carts)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, logger, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})

	return r
}
