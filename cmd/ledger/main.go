package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/sahartak2025/Code-samples-sub000/internal/catalog"
	"github.com/sahartak2025/Code-samples-sub000/internal/commission"
	"github.com/sahartak2025/Code-samples-sub000/internal/gate"
	"github.com/sahartak2025/Code-samples-sub000/internal/handler"
	"github.com/sahartak2025/Code-samples-sub000/internal/ledger"
	"github.com/sahartak2025/Code-samples-sub000/internal/middleware"
	"github.com/sahartak2025/Code-samples-sub000/internal/operation"
	"github.com/sahartak2025/Code-samples-sub000/internal/refund"
	"github.com/sahartak2025/Code-samples-sub000/internal/registry"
	"github.com/sahartak2025/Code-samples-sub000/internal/repository/postgres"
	"github.com/sahartak2025/Code-samples-sub000/pkg/config"
	"github.com/sahartak2025/Code-samples-sub000/pkg/logger"
	"github.com/sahartak2025/Code-samples-sub000/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("ledger-service")

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting Settlement Ledger Service", map[string]interface{}{
		"port":               cfg.Server.Port,
		"reporting_currency": cfg.Ledger.ReportingCurrency,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	// Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Redis connected", nil)

	// Repositories
	accountRepo := postgres.NewAccountRepository(db)
	txRepo := postgres.NewTransactionRepository(db)
	opRepo := postgres.NewOperationRepository(db)
	ruleRepo := postgres.NewCommissionRepository(db)
	limitRepo := postgres.NewLimitRepository(db)
	refundRepo := postgres.NewRefundRepository(db)

	// Catalogs are in-memory snapshots reloaded on demand; the service
	// refuses to start without an initial load.
	commissionCatalog := catalog.NewCommissionCatalog(ruleRepo, log)
	if err := commissionCatalog.Load(context.Background()); err != nil {
		log.Fatal("Failed to load commission catalog", map[string]interface{}{"error": err.Error()})
	}
	limitCatalog := catalog.NewLimitCatalog(limitRepo, log)
	if err := limitCatalog.Load(context.Background()); err != nil {
		log.Fatal("Failed to load limit catalog", map[string]interface{}{"error": err.Error()})
	}

	// Services
	resolver := commission.NewResolver(commissionCatalog)
	registryService := registry.NewService(accountRepo, txRepo, log)
	gateService := gate.NewService(limitCatalog, opRepo, log)
	operationService := operation.NewService(opRepo, txRepo, gateService, log)
	ledgerService := ledger.NewService(txRepo, registryService, resolver, operationService, log)
	refundService := refund.NewService(refundRepo, operationService, ledgerService, log)
	ledgerService.SetRefundObserver(refundService)

	// Handlers
	val := validator.New()
	accountHandler := handler.NewAccountHandler(registryService, val, log)
	transactionHandler := handler.NewTransactionHandler(ledgerService, val, log)
	operationHandler := handler.NewOperationHandler(operationService, val, log)
	refundHandler := handler.NewRefundHandler(refundService, val, log)
	adminHandler := handler.NewAdminHandler(db, redisClient, commissionCatalog, limitCatalog, ruleRepo, limitRepo, val, log)

	// Router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.NewRateLimiter(redisClient, cfg.Ledger.RateLimit, cfg.Ledger.RateLimitWindow, log).Limit)

	authMW := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
	idemMW := middleware.NewIdempotencyMiddleware(redisClient, cfg.Ledger.IdempotencyTTL)

	// Health check (no auth)
	r.HandleFunc("/health", adminHandler.Health).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)

	api.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	api.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	api.HandleFunc("/accounts/{id}", accountHandler.GetAccount).Methods("GET")
	api.HandleFunc("/accounts/{id}/balance", accountHandler.GetBalance).Methods("GET")
	api.HandleFunc("/accounts/{id}/balance/recompute", accountHandler.RecomputeBalance).Methods("POST")
	api.HandleFunc("/accounts/{id}/fee-account", accountHandler.GetFeeSubAccount).Methods("GET")
	api.HandleFunc("/accounts/{id}/transactions", transactionHandler.ListAccountTransactions).Methods("GET")

	api.HandleFunc("/operations", operationHandler.OpenOperation).Methods("POST")
	api.HandleFunc("/operations", operationHandler.ListOperations).Methods("GET")
	api.HandleFunc("/operations/{id}", operationHandler.GetOperation).Methods("GET")
	api.HandleFunc("/operations/{id}/transactions", operationHandler.GetOperationTransactions).Methods("GET")
	api.HandleFunc("/operations/{id}/reevaluate", operationHandler.ReevaluateOperation).Methods("POST")

	// Money movement is guarded by idempotency keys; a retried settlement
	// webhook must not double-apply.
	mutating := api.PathPrefix("").Subrouter()
	mutating.Use(idemMW.Require)
	mutating.HandleFunc("/transactions", transactionHandler.CreateTransaction).Methods("POST")
	mutating.HandleFunc("/transactions/{id}/settle", transactionHandler.SettleTransaction).Methods("POST")
	mutating.HandleFunc("/refunds", refundHandler.CreateRefund).Methods("POST")

	api.HandleFunc("/transactions/{id}", transactionHandler.GetTransaction).Methods("GET")
	api.HandleFunc("/refunds/{id}", refundHandler.GetRefund).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMW.RequireScope(middleware.ScopeAdmin))
	admin.HandleFunc("/catalog/refresh", adminHandler.RefreshCatalogs).Methods("POST")
	admin.HandleFunc("/catalog/rules", adminHandler.CreateRule).Methods("POST")
	admin.HandleFunc("/catalog/limits", adminHandler.CreateLimit).Methods("POST")

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
