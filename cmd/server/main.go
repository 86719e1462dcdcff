// Package main initializes and starts the NameLink directory server,
// setting up configuration, logging, database connections, repositories,
// services, and handlers.
package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	nethttp "net/http"

	"github.com/tkorchagin/namelink/internal/config"
	"github.com/tkorchagin/namelink/internal/db"
	"github.com/tkorchagin/namelink/internal/logger"
	"github.com/tkorchagin/namelink/internal/middleware"
	"github.com/tkorchagin/namelink/internal/models"
	"github.com/tkorchagin/namelink/internal/repository"
	"github.com/tkorchagin/namelink/internal/server/handler/http"
	"github.com/tkorchagin/namelink/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port
	dbName := options.DatabaseDSN

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(dbName)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Expired reservations become claimable again once purged.
	db.StartReservationCleaner(context.Background(), postgresDB,
		time.Minute,
		zapLogger,
	)

	// Initialize the directory repository and service.
	directoryRepo := repository.NewPostgresDirectoryRepository(postgresDB)
	directoryService := service.NewDirectoryService(directoryRepo, models.ReservationTTL)

	// Create HTTP handlers for the username directory endpoints.
	usernameHandler := &http.UsernameHandler{Service: directoryService, Log: zapLogger}

	// Build the router with middleware and routes.
	limiter := middleware.NewRateLimiter(options.RateLimitRPS, options.RateLimitBurst)
	router := http.NewRouter(usernameHandler, limiter, zapLogger)

	// Create and start the HTTP server.
	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
