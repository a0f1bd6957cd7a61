/**
 * @description
 * This is the main entry point for the banking-service. Its responsibility is
 * to initialize all necessary components and start the HTTP server.
 *
 * Key features:
 * - Loads application configuration from environment variables and fails fast
 *   on a misconfigured payment-rail environment.
 * - Establishes and manages a connection pool to the PostgreSQL database.
 * - Initializes clients for external services (Plaid, Dwolla, Redis, RabbitMQ).
 * - Wires up the core application logic with its dependencies.
 * - Starts the HTTP server and implements graceful shutdown.
 *
 * @dependencies
 * - The service's internal packages for config, app logic, storage, and external clients.
 * - pgxpool for database connection, godotenv for local config, and rabbitmq for messaging.
 */
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/horizonfin/banking-service/internal/api"
	"github.com/horizonfin/banking-service/internal/app"
	"github.com/horizonfin/banking-service/internal/config"
	"github.com/horizonfin/banking-service/internal/store"
	"github.com/horizonfin/banking-service/pkg/dwollaclient"
	"github.com/horizonfin/banking-service/pkg/plaidclient"
	"github.com/horizonfin/banking-service/pkg/rabbitmq"
)

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load application configuration.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	if err := cfg.ValidateDwollaEnvironment(); err != nil {
		log.Fatalf("invalid payment-rail configuration: %v", err)
	}

	// If a platform-provided PORT is set (e.g., Railway/Render), prefer it
	if port := os.Getenv("PORT"); port != "" {
		cfg.ServerPort = port
	}

	// Establish database connection pool.
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database URL: %v\n", err)
	}

	dbConfig.MaxConns = 20
	dbConfig.MinConns = 4
	dbConfig.MaxConnLifetime = 30 * time.Minute
	dbConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	dbConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer dbpool.Close()
	log.Println("Database connection established")

	// Set up repositories.
	userRepo := store.NewPostgresUserRepository(dbpool)
	bankRepo := store.NewPostgresBankLinkRepository(dbpool)
	transferRepo := store.NewPostgresTransferRepository(dbpool)
	sessionRepo := store.NewPostgresSessionRepository(dbpool)

	// External provider clients.
	plaidClient := plaidclient.NewClient(cfg.PlaidBaseURL, cfg.PlaidClientID, cfg.PlaidSecret)
	dwollaClient := dwollaclient.NewClient(cfg.DwollaBaseURL(), cfg.DwollaKey, cfg.DwollaSecret)

	// Redis for rate limiting on the token-exchange endpoints; optional.
	var redisClient redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: invalid REDIS_URL, continuing without rate limiting: %v", err)
		} else {
			redisClient = redis.NewClient(opts)
		}
	}
	limiter := app.NewRedisLinkRateLimiter(redisClient, "horizon:rate_limit")

	// Set up RabbitMQ producer; allow a no-op fallback on failure.
	var producer rabbitmq.Publisher
	if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		log.Printf("WARNING: Failed to connect to RabbitMQ at startup: %v. Continuing without MQ.", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		producer = p
	}
	defer producer.Close()

	// Setup services.
	accountService := app.NewAccountService(bankRepo, transferRepo, plaidClient)
	linkingService := app.NewLinkingService(userRepo, bankRepo, plaidClient, dwollaClient, producer)
	transferService := app.NewTransferService(bankRepo, transferRepo, dwollaClient, producer)
	authService := app.NewAuthService(userRepo, sessionRepo, dwollaClient, cfg.SessionJWTSecret)

	// Setup and start HTTP server.
	router := api.NewRouter(
		api.NewAuthHandlers(authService),
		api.NewBankHandlers(accountService, linkingService, limiter),
		api.NewTransferHandlers(transferService),
		authService,
	)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %s\n", err)
		}
	}()

	log.Println("Banking service is running.")

	// Wait for termination signal for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down banking-service...")

	// Create a context with a timeout for shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the HTTP server.
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
