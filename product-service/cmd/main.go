package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/storefront/pkg/config"
	"github.com/fjod/storefront/pkg/logger"
	h "github.com/fjod/storefront/product-service/internal/http"
	"github.com/fjod/storefront/product-service/internal/repository"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	log, err := logger.New("product-service", config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	httpPort := config.GetEnv("HTTP_PORT", "8081")
	dbPath := config.GetEnv("DB_PATH", "./catalog.db")
	requestTimeout, err := config.GetDuration("REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	repo, err := repository.NewRepository(dbPath)
	if err != nil {
		log.Fatal("failed to open catalog database", zap.String("path", dbPath), zap.Error(err))
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("migrations completed")

	handler := h.NewCatalogHandler(repo, requestTimeout, log)
	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      otelhttp.NewHandler(h.NewRouter(handler, log), "product-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("product service listening", zap.String("port", httpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down product service")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("product service stopped")
}
