package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecocollect-billing/internal/api_gateway"
	"github.com/ecocollect-billing/internal/api_gateway/service"
	"github.com/ecocollect-billing/internal/billgen"
	"github.com/ecocollect-billing/internal/config"
	"github.com/ecocollect-billing/internal/data/mongo"
	"github.com/ecocollect-billing/internal/data/postgres"
	"github.com/ecocollect-billing/internal/domain/bill"
	"github.com/ecocollect-billing/internal/domain/reward"
	"github.com/ecocollect-billing/internal/logger"
	"github.com/ecocollect-billing/internal/platform/messaging/producers"
	"github.com/ecocollect-billing/internal/platform/persistence"
	"github.com/ecocollect-billing/internal/settlement"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for payment receipts
	receiptProducer, err := producers.NewPaymentReceiptProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize receipt Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	billRepo := postgres.NewBillRepository(log, postgresDB)
	rewardRepo := postgres.NewRewardRepository(log, postgresDB)
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	auditRepo := mongo.NewTransactionRepository(log, mongoDB.Database())

	// Billing and reward policy
	pricing := bill.Pricing{
		RatePerKg:   cfg.Billing.RatePerKg,
		DefaultRate: cfg.Billing.DefaultRate,
		MinimumFee:  cfg.Billing.MinimumFee,
		DueDays:     cfg.Billing.DueDays,
		Currency:    cfg.Billing.Currency,
	}
	rewardRates := reward.Rates{
		RatePerKg: cfg.Reward.RatePerKg,
		Unit:      cfg.Billing.Currency,
	}

	// Initialize the settlement core and the bill generator
	orchestrator := settlement.NewOrchestrator(log, postgresDB, billRepo, rewardRepo, walletRepo, outboxRepo, cfg.Billing.Currency)
	generator := billgen.NewGenerator(log, postgresDB, billRepo, rewardRepo, pricing, rewardRates, cfg.Billing.InvoicePrefix, cfg.Billing.InvoiceRetries)

	// Initialize services
	billService := service.NewBillService(log, billRepo, generator)
	paymentService := service.NewPaymentService(log, orchestrator, receiptProducer)
	walletService := service.NewWalletService(log, postgresDB, walletRepo, outboxRepo, cfg.Billing.Currency)
	rewardService := service.NewRewardService(rewardRepo)
	transactionService := service.NewTransactionService(auditRepo)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, billService, paymentService, walletService, rewardService, transactionService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = receiptProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
