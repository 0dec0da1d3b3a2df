package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/roamstay-booking-ledger/internal/config"
	"github.com/roamstay-booking-ledger/internal/data/mongo"
	"github.com/roamstay-booking-ledger/internal/ledger_service"
	"github.com/roamstay-booking-ledger/internal/ledger_service/consumer"
	"github.com/roamstay-booking-ledger/internal/ledger_service/projector"
	"github.com/roamstay-booking-ledger/internal/ledger_service/service"
	"github.com/roamstay-booking-ledger/internal/logger"
	"github.com/roamstay-booking-ledger/internal/platform/messaging/breaker"
	"github.com/roamstay-booking-ledger/internal/platform/messaging/consumers"
	"github.com/roamstay-booking-ledger/internal/platform/messaging/producers"
	"github.com/roamstay-booking-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize the ledger store
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize the repository and the unique index the projector relies on
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())
	if err := ledgerRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure ledger indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Wrap the projector in the worker pool; Apply stays submit-and-wait so
	// offset commits still track completed projections
	baseProjector := projector.New(log, ledgerRepo)
	projectionService, err := service.NewWorkerPoolProjectionService(baseProjector, service.WorkerPoolConfig{Size: cfg.WorkerPool.Size}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// One handler serves both topics; the envelope type routes the message
	eventHandler := consumer.NewLedgerEventHandler(log, projectionService, dlqProducer)

	// Each topic gets its own consumer and breaker under a shared group id
	requestedBreaker := breaker.New("ledger-requested-consume", &cfg.CircuitBreaker, log)
	requestedConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.BookingRequestedTopic, cfg.Kafka.ConsumerGroup, requestedBreaker)

	statusBreaker := breaker.New("ledger-status-consume", &cfg.CircuitBreaker, log)
	statusConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.StatusChangedTopic, cfg.Kafka.ConsumerGroup, statusBreaker)

	// The read API serves the projected ledger
	readServer := ledger_service.NewServer(log, cfg, ledgerRepo)

	// Create error channel for service errors
	errChan := make(chan error, 3)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting creation event consumer",
			"topic", cfg.Kafka.BookingRequestedTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := requestedConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("creation event consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting status event consumer",
			"topic", cfg.Kafka.StatusChangedTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := statusConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("status event consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting ledger read API", "port", cfg.Server.Port)
		if err := readServer.Start(); err != nil {
			errChan <- fmt.Errorf("ledger read API error: %w", err)
		}
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
	projectionService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop accepting reads before tearing down the consumers
	if err = readServer.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping ledger read API", "error", err)
	}

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

	if err = requestedConsumer.Close(); err != nil {
		log.Error("Error closing creation event consumer", "error", err)
	}

	if err = statusConsumer.Close(); err != nil {
		log.Error("Error closing status event consumer", "error", err)
	}

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Ledger Service shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Ledger Service shutdown completed with errors")
	} else {
		log.Info("Ledger Service shutdown completed successfully")
	}
}
