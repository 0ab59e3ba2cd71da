package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	h "github.com/fjod/storefront/api-gateway/internal/http"
	"github.com/fjod/storefront/pkg/config"
	"github.com/fjod/storefront/pkg/logger"
)

func loadConfig() (string, h.Config, error) {
	productURL, err := url.Parse(config.GetEnv("PRODUCT_SERVICE_URL", "http://localhost:8081"))
	if err != nil {
		return "", h.Config{}, err
	}
	cartURL, err := url.Parse(config.GetEnv("CART_SERVICE_URL", "http://localhost:8082"))
	if err != nil {
		return "", h.Config{}, err
	}
	timeout, err := config.GetDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return "", h.Config{}, err
	}

	origins := config.GetList("CORS_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	return config.GetEnv("HTTP_PORT", "8080"), h.Config{
		ProductServiceURL:  productURL,
		CartServiceURL:     cartURL,
		AllowedOrigins:     origins,
		RequestTimeout:     timeout,
		MaxRequestBodySize: 1 << 20, // 1MB
	}, nil
}

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	log, err := logger.New("api-gateway", config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	httpPort, cfg, err := loadConfig()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      h.NewRouter(cfg, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api gateway starting",
			zap.String("port", httpPort),
			zap.Stringer("products", cfg.ProductServiceURL),
			zap.Stringer("carts", cfg.CartServiceURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
