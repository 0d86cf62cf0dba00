package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/mjesec7/aced-billing/internal/config"
	"github.com/mjesec7/aced-billing/internal/handler"
	"github.com/mjesec7/aced-billing/internal/repository"
	"github.com/mjesec7/aced-billing/internal/service"
)

const version = "1.0.0"

func main() {
	// Load .env if present, then configuration from the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	db, err := initDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db, cfg.Ledger.LockTimeout)

	// Initialize the ledger
	ledger := service.NewAccountLedger(accountRepo, transactionRepo)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db, version)
	accountHandler := handler.NewAccountHandler(ledger)
	transactionHandler := handler.NewTransactionHandler(ledger)

	// Initialize HTTP server
	server := initServer(cfg, healthHandler, accountHandler, transactionHandler)

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established")
	return db, nil
}

func initServer(cfg *config.Config, healthHandler *handler.HealthHandler, accountHandler *handler.AccountHandler, transactionHandler *handler.TransactionHandler) *http.Server {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.Handle("/healthz", healthHandler)

	// API v1 endpoints
	mux.HandleFunc("/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			accountHandler.OpenAccount(w, r)
		} else {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "INVALID_INPUT")
		}
	})

	mux.HandleFunc("/v1/accounts/", func(w http.ResponseWriter, r *http.Request) {
		// Route by suffix: history, suspension, or the account itself
		path := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")

		switch {
		case strings.HasSuffix(path, "/transactions"):
			// GET /v1/accounts/{identifier}/transactions
			transactionHandler.GetAccountTransactions(w, r)
		case strings.HasSuffix(path, "/suspend"):
			// POST /v1/accounts/{identifier}/suspend
			accountHandler.SuspendAccount(w, r)
		default:
			// GET /v1/accounts/{identifier}
			accountHandler.GetAccount(w, r)
		}
	})

	mux.HandleFunc("/v1/credits", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionHandler.RequestCredit(w, r)
		} else {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "INVALID_INPUT")
		}
	})

	mux.HandleFunc("/v1/transactions/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/v1/transactions/")

		switch {
		case strings.HasSuffix(path, "/confirm"):
			transactionHandler.ConfirmTransaction(w, r)
		case strings.HasSuffix(path, "/reverse"):
			transactionHandler.ReverseTransaction(w, r)
		default:
			transactionHandler.GetTransaction(w, r)
		}
	})

	// Basic middleware
	handlerWithMiddleware := corsMiddleware(loggingMiddleware(mux))

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlerWithMiddleware,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, wrapped.statusCode, duration)
	})
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// writeErrorResponse helper function
func writeErrorResponse(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	fmt.Fprintf(w, `{"error": "%s", "code": "%s"}`, message, code)
}
