package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/events"
	httpserver "github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/promo"
	"github.com/andreasstove999/ecommerce-system/storefront-cart-go/internal/storage"
)

func main() {
	port := getEnv("PORT", "8082")

	logger := log.New(os.Stdout, "[storefront-cart] ", log.LstdFlags|log.Lshortfile)

	store := mustOpenStore(logger)

	validator := buildValidator(logger)
	pricer := cart.NewPricer(pricingFromEnv(logger), validator, logger)

	publisher, closePublisher := buildPublisher(store, logger)
	defer closePublisher()

	sessions := httpserver.NewSessionRegistry(func(sessionID string) *cart.Engine {
		return cart.New(store, logger, cart.KeyConfig{
			Session:        "cart:session:" + sessionID,
			IdentityPrefix: "cart:",
		})
	})

	handler := httpserver.NewCartHandler(sessions, pricer, publisher, logger)
	mux := httpserver.NewRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("storefront-cart listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errCh:
		logger.Fatalf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown error: %v", err)
	}
}

func mustOpenStore(logger *log.Logger) storage.Store {
	switch kind := getEnv("CART_STORE", "sqlite"); kind {
	case "memory":
		return storage.NewMemoryStore()
	case "sqlite":
		path := getEnv("CART_SQLITE_PATH", "storefront-cart.db")
		s, err := storage.OpenSQLite(path)
		if err != nil {
			logger.Fatalf("open sqlite store: %v", err)
		}
		return s
	case "postgres":
		dsn := os.Getenv("CART_DB_DSN")
		if dsn == "" {
			logger.Fatal("CART_DB_DSN not set")
		}
		if err := db.RunMigrations(dsn, logger); err != nil {
			logger.Fatalf("run migrations: %v", err)
		}
		database, err := db.Open(dsn)
		if err != nil {
			logger.Fatalf("open db: %v", err)
		}
		return storage.NewPostgresStore(database)
	default:
		logger.Fatalf("unknown CART_STORE %q", kind)
		return nil
	}
}

func buildValidator(logger *log.Logger) promo.Validator {
	if rule := os.Getenv("PROMO_RULE"); rule != "" {
		v, err := promo.NewRuleValidator(rule)
		if err != nil {
			logger.Fatalf("compile PROMO_RULE: %v", err)
		}
		return v
	}
	codes := strings.Split(getEnv("PROMO_CODES", "SAVE20"), ",")
	return promo.NewStaticValidator(codes...)
}

func pricingFromEnv(logger *log.Logger) cart.PricingConfig {
	cfg := cart.DefaultPricingConfig()
	cfg.FreeShippingThreshold = getEnvInt64(logger, "FREE_SHIPPING_THRESHOLD", cfg.FreeShippingThreshold)
	cfg.FlatShippingFee = getEnvInt64(logger, "FLAT_SHIPPING_FEE", cfg.FlatShippingFee)
	if v := os.Getenv("PROMO_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			logger.Fatalf("parse PROMO_RATE: %v", err)
		}
		cfg.PromoRate = rate
	}
	return cfg
}

func buildPublisher(store storage.Store, logger *log.Logger) (httpserver.CartEventsPublisher, func()) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		logger.Printf("RABBITMQ_URL not set, checkout handoff will be logged only")
		return events.NewLogPublisher(logger), func() {}
	}

	conn, err := events.DialRabbit(url)
	if err != nil {
		logger.Fatalf("dial rabbit: %v", err)
	}

	seq := events.NewStoreSequence(store, "cart:seq:")
	publisher, err := events.NewPublisher(conn, seq, events.PublisherOptions{})
	if err != nil {
		logger.Fatalf("create cart publisher: %v", err)
	}

	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Printf("publisher close error: %v", err)
		}
		_ = conn.Close()
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(logger *log.Logger, key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logger.Fatalf("parse %s: %v", key, err)
	}
	return n
}
