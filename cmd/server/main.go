package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/directory"
	"github.com/mmynk/splitledger/internal/events"
	eventskafka "github.com/mmynk/splitledger/internal/events/kafka"
	"github.com/mmynk/splitledger/internal/httpapi"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
	"github.com/mmynk/splitledger/internal/storage/postgres"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// openStore picks the storage backend from STORE_BACKEND. The SQL backends
// double as the participant directory; the memory backend pairs with an
// in-process one.
func openStore() (storage.Store, directory.Directory, error) {
	switch backend := getEnv("STORE_BACKEND", "sqlite"); backend {
	case "postgres":
		store, err := postgres.New(os.Getenv("DATABASE_URL"))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case "memory":
		return memory.New(), directory.NewStatic(), nil
	default:
		store, err := sqlite.New(getEnv("DB_PATH", "./data/ledger.db"))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logging.Setup()

	store, dir, err := openStore()
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var pub events.Publisher = events.Nop{}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		pub = eventskafka.NewPublisher(
			strings.Split(brokers, ","),
			getEnv("KAFKA_TOPIC", "ledger_events"),
		)
		slog.Info("Kafka publisher enabled", "brokers", brokers)
	}
	defer pub.Close()

	engine := ledger.New(store, dir, pub)
	jwtManager := auth.NewJWTManager(getEnv("JWT_SECRET", "dev-secret-change-me"), 24*time.Hour)

	api := http.NewServeMux()
	httpapi.New(engine, dir).Register(api)

	mux := http.NewServeMux()
	mux.Handle("/v1/", middleware.RequireAuth(jwtManager)(api))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.Logging(middleware.Metrics(mux))

	// h2c serves HTTP/2 without TLS for clients that want multiplexing.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	addr := ":" + getEnv("PORT", "8080")
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
