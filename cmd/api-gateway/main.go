package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/jcmexdev/stock-ledger/internal/cart"
	sagalogsqlite "github.com/jcmexdev/stock-ledger/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/stock-ledger/internal/gateway/httpx"
	"github.com/jcmexdev/stock-ledger/internal/order"
	"github.com/jcmexdev/stock-ledger/internal/pkg/telemetry"
	"github.com/jcmexdev/stock-ledger/internal/reservation"
)

func main() {
	ctx := context.Background()

	telemetry.InitLogger("api-gateway")
	shutdown, err := telemetry.SetupTracer(ctx, "api-gateway")
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	sagaLog, err := sagalogsqlite.Open(getEnv("SAGA_DB_PATH", "./data/saga.db"))
	if err != nil {
		log.Fatalf("failed to open saga log: %v", err)
	}
	defer sagaLog.Close()

	stock := reservation.NewHTTPClient(getEnv("LEDGER_SERVICE_URL", "http://localhost:9092"))

	cartService := cart.NewService(cart.NewMemoryRepository(), stock)
	orderService := order.NewService(order.NewMemoryRepository(), stock, sagaLog)

	handler := httpx.NewHandler(cartService, orderService)
	router := httpx.NewRouter(handler)

	httpAddr := getEnv("GATEWAY_HTTP_ADDR", ":8080")
	log.Printf("API Gateway running on %s", httpAddr)
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
