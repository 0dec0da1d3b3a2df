package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roamstay-booking-ledger/internal/booking_service"
	"github.com/roamstay-booking-ledger/internal/booking_service/client"
	bookingconsumer "github.com/roamstay-booking-ledger/internal/booking_service/consumer"
	"github.com/roamstay-booking-ledger/internal/booking_service/service"
	"github.com/roamstay-booking-ledger/internal/config"
	"github.com/roamstay-booking-ledger/internal/data/postgres"
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
	cfg, err := config.LoadConfig("booking_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Booking Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize the authoritative store, running migrations on the way up
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// One breaker guards the bus as a whole; both producers share it so a
	// broker outage observed on either topic trips publishing for both
	publishBreaker := breaker.New("event-bus-publish", &cfg.CircuitBreaker, log)

	requestedProducer, err := producers.NewBookingEventProducer(appCtx, log, &cfg.Kafka, cfg.Kafka.BookingRequestedTopic, publishBreaker)
	if err != nil {
		log.Error("Failed to initialize booking-requested producer", "error", err)
		os.Exit(1)
	}

	statusProducer, err := producers.NewBookingEventProducer(appCtx, log, &cfg.Kafka, cfg.Kafka.StatusChangedTopic, publishBreaker)
	if err != nil {
		log.Error("Failed to initialize status-changed producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories and collaborator clients
	bookingRepo := postgres.NewBookingRepository(log, postgresDB)
	propertyClient := client.NewPropertyClient(log, &cfg.Collaborators)

	var availabilityClient client.AvailabilityClient
	if cfg.Collaborators.AvailabilityServiceURL != "" {
		availabilityClient = client.NewAvailabilityClient(log, &cfg.Collaborators)
	}

	// Initialize services
	availabilityService := service.NewAvailabilityService(log, bookingRepo)
	bookingService := service.NewBookingService(log, postgresDB, bookingRepo, propertyClient, availabilityClient, requestedProducer, statusProducer)

	// Status events from external workflows keep the local table in step
	consumeBreaker := breaker.New("status-sync-consume", &cfg.CircuitBreaker, log)
	statusConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.StatusChangedTopic, cfg.Kafka.ConsumerGroup, consumeBreaker)
	statusSyncHandler := bookingconsumer.NewStatusSyncHandler(log, bookingRepo)

	if err := statusConsumer.Subscribe(appCtx, statusSyncHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to status topic", "error", err)
		os.Exit(1)
	}

	// Initialize REST server
	server := booking_service.NewServer(log, cfg, bookingService, availabilityService)
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

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = statusConsumer.Close(); err != nil {
		log.Error("Error closing status consumer", "error", err)
	}

	if err = requestedProducer.Close(); err != nil {
		log.Error("Error closing booking-requested producer", "error", err)
	}

	if err = statusProducer.Close(); err != nil {
		log.Error("Error closing status-changed producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Booking Service shutdown completed with errors")
	} else {
		log.Info("Booking Service shutdown completed successfully")
	}
}
