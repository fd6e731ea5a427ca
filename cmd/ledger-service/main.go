package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/jcmexdev/stock-ledger/internal/ledger"
	"github.com/jcmexdev/stock-ledger/internal/ledger/httpapi"
	"github.com/jcmexdev/stock-ledger/internal/ledger/sqlite"
	"github.com/jcmexdev/stock-ledger/internal/pkg/cache"
	"github.com/jcmexdev/stock-ledger/internal/pkg/telemetry"
)

func main() {
	ctx := context.Background()

	telemetry.InitLogger("ledger-service")
	shutdown, err := telemetry.SetupTracer(ctx, "ledger-service")
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	store, err := sqlite.Open(getEnv("LEDGER_DB_PATH", "./data/ledger.db"))
	if err != nil {
		log.Fatalf("failed to open ledger store: %v", err)
	}
	defer store.Close()

	// Availability reads are cached only when redis is configured; the
	// handler works without it.
	var availabilityCache cache.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		availabilityCache = cache.NewRedisCache(addr, "ledger")
	}

	handler := httpapi.NewHandler(ledger.New(store), availabilityCache)
	router := httpapi.NewRouter(handler)

	httpAddr := getEnv("LEDGER_HTTP_ADDR", ":9092")
	log.Printf("Stock Ledger running on %s", httpAddr)
	if err := http.ListenAndServe(httpAddr, router); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
