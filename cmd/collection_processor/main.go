package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ecocollect-billing/internal/billgen"
	"github.com/ecocollect-billing/internal/collection_processor/consumer"
	"github.com/ecocollect-billing/internal/collection_processor/outbox_poller"
	"github.com/ecocollect-billing/internal/collection_processor/service"
	"github.com/ecocollect-billing/internal/config"
	"github.com/ecocollect-billing/internal/data/mongo"
	"github.com/ecocollect-billing/internal/data/postgres"
	"github.com/ecocollect-billing/internal/domain/bill"
	"github.com/ecocollect-billing/internal/domain/reward"
	"github.com/ecocollect-billing/internal/logger"
	"github.com/ecocollect-billing/internal/platform/messaging/consumers"
	"github.com/ecocollect-billing/internal/platform/messaging/producers"
	"github.com/ecocollect-billing/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("collection_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Collection Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	billRepo := postgres.NewBillRepository(log, postgresDB)
	rewardRepo := postgres.NewRewardRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	auditRepo := mongo.NewTransactionRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

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

	// Initialize the generator and the processing service behind a worker pool
	generator := billgen.NewGenerator(log, postgresDB, billRepo, rewardRepo, pricing, rewardRates, cfg.Billing.InvoicePrefix, cfg.Billing.InvoiceRetries)
	baseService := service.NewBillGenerationService(log, generator)
	processingService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize collection event handler
	collectionEventHandler := consumer.NewCollectionEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Initialize outbox poller
	auditPublisher := outbox_poller.NewAuditPublisher(
		outboxRepo,
		auditRepo,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		auditPublisher,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.CollectionTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.CollectionTopic, cfg.Kafka.ConsumerGroup, collectionEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", processingService.Running())
	processingService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Collection Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Collection Processor shutdown completed with errors")
	} else {
		log.Info("Collection Processor shutdown completed successfully")
	}
}
