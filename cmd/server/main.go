package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "carthago-travel-backend/internal/api/http"
	"carthago-travel-backend/internal/cache"
	"carthago-travel-backend/internal/config"
	"carthago-travel-backend/internal/jobs"
	"carthago-travel-backend/internal/logger"
	"carthago-travel-backend/internal/payment"
	"carthago-travel-backend/internal/repository/postgres"
	"carthago-travel-backend/internal/scheduler"
	"carthago-travel-backend/internal/security"
	"carthago-travel-backend/internal/service"
	"carthago-travel-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Carthago Travel Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "base_url", cfg.Server.BaseURL)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize the catalog cache. The service degrades to direct
	// database reads when redis is unreachable.
	var catalog *cache.CatalogCache
	redisClient, err := cache.NewRedisClient(context.Background(), cfg.GetRedisAddress(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, catalog cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		catalog = cache.NewCatalogCache(redisClient, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
		logger.Info("Catalog cache enabled", "ttl_seconds", cfg.Redis.TTLSeconds)
	}

	// Initialize document storage
	docs, err := storage.NewDocumentStore(cfg.Storage.RootDir, cfg.Storage.MaxFileSizeMB)
	if err != nil {
		logger.Error("Failed to initialize document storage", "error", err)
		log.Fatalf("Failed to initialize document storage: %v", err)
	}

	// Initialize external payment gateway client
	gateway := payment.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second)

	// Initialize Services
	emailService := service.NewEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	vehicleService := service.NewVehicleService(store.VehicleRepository, catalog)
	reservationService := service.NewReservationService(
		store.BookingRepository,
		store.ReservationRepository,
		store.VehicleRepository,
		store.RenterRepository,
		gateway,
		emailService,
		docs,
		cfg.Server.BaseURL,
	)

	// Initialize the job runner for the manual reconciliation trigger
	jobRunner := jobs.NewJobRunner(db, store, &jobs.Services{Email: emailService}, cfg)

	// Initialize admin session tokens
	tokens := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryMinutes)*time.Minute)

	// Initialize HTTP API
	router := httpapi.NewRouter(httpapi.RouterDeps{
		DB:           db,
		Tokens:       tokens,
		Reservations: httpapi.NewReservationHandler(reservationService),
		Vehicles:     httpapi.NewVehicleHandler(vehicleService),
		Admin: httpapi.NewAdminHandler(
			cfg.Admin,
			tokens,
			time.Duration(cfg.JWT.ExpiryMinutes)*time.Minute,
			vehicleService,
			reservationService,
			jobRunner,
			docs,
		),
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Run the reconciliation schedule in-process alongside the API
	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down...")
	cronScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
