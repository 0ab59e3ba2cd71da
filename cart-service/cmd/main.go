package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/storefront/cart-service/internal/catalog"
	"github.com/fjod/storefront/cart-service/internal/checkout"
	h "github.com/fjod/storefront/cart-service/internal/http"
	"github.com/fjod/storefront/cart-service/internal/poller"
	"github.com/fjod/storefront/cart-service/internal/service"
	"github.com/fjod/storefront/cart-service/internal/storage"
	"github.com/fjod/storefront/pkg/config"
	"github.com/fjod/storefront/pkg/logger"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	log, err := logger.New("cart-service", config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	httpPort := config.GetEnv("HTTP_PORT", "8082")
	catalogURL := config.GetEnv("CATALOG_URL", "http://localhost:8081")
	requestTimeout, err := config.GetDuration("REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	catalogTimeout, err := config.GetDuration("CATALOG_TIMEOUT", 2*time.Second)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	sessionIdle, err := config.GetDuration("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cartStorage, closeStorage, err := openStorage(ctx, log)
	if err != nil {
		log.Fatal("failed to open cart storage", zap.Error(err))
	}
	defer closeStorage()

	catalogClient := catalog.NewClient(catalogURL, catalogTimeout, log)
	carts := service.NewCartService(cartStorage, catalogClient, log)
	go carts.RunEviction(ctx, time.Minute, sessionIdle)

	var publisher checkout.Publisher
	if brokers := config.GetList("KAFKA_BROKERS"); len(brokers) > 0 {
		kafkaPublisher := checkout.NewKafkaPublisher(checkout.NewKafkaWriter(brokers...))
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		p := poller.NewPoller(poller.NewReader(brokers...), carts, log)
		defer p.Close()
		go p.Run(ctx)
		log.Info("order events via kafka", zap.Strings("brokers", brokers))
	} else {
		publisher = checkout.NewDirectPublisher(carts)
		log.Info("KAFKA_BROKERS not set, clearing carts in-process after checkout")
	}
	checkouts := checkout.NewService(carts, publisher, log)

	router := h.NewRouter(
		h.NewCartHandler(carts, requestTimeout, log),
		h.NewCheckoutHandler(checkouts, requestTimeout, log),
		log,
	)
	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      otelhttp.NewHandler(router, "cart-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("cart service listening", zap.String("port", httpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("shutting down cart service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("cart service stopped")
}

// openStorage picks the cart backend from CART_STORAGE.
func openStorage(ctx context.Context, log *zap.Logger) (storage.Storage, func(), error) {
	backend := config.GetEnv("CART_STORAGE", "file")
	switch backend {
	case "file":
		dir := config.GetEnv("CART_DIR", "./carts")
		fs, err := storage.NewFileStorage(dir)
		if err != nil {
			return nil, nil, err
		}
		log.Info("storing carts on disk", zap.String("dir", dir))
		return fs, func() {}, nil

	case "redis":
		ttl, err := config.GetDuration("CART_TTL", storage.DefaultRedisTTL)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(&redis.Options{
			Addr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
			Password: config.GetEnv("REDIS_PASSWORD", ""),
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("storing carts in redis", zap.Duration("ttl", ttl))
		return storage.NewRedisStorage(client, ttl), func() { client.Close() }, nil

	case "mongo":
		uri := config.GetEnv("MONGO_URI", "mongodb://localhost:27017")
		db, err := storage.ConnectMongo(ctx, uri, config.GetEnv("MONGO_DB_NAME", "cartdb"))
		if err != nil {
			return nil, nil, err
		}
		ms := storage.NewMongoStorage(db)
		if err := ms.CreateIndexes(ctx); err != nil {
			log.Warn("failed to create cart indexes", zap.Error(err))
		}
		log.Info("storing carts in mongo", zap.String("uri", uri))
		return ms, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(ctx)
		}, nil
	}

	return nil, nil, fmt.Errorf("unknown CART_STORAGE %q, want file, redis or mongo", backend)
}
