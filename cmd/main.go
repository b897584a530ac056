package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"suumo-traveltime/db"
	"suumo-traveltime/internal/config"
	"suumo-traveltime/internal/geocode"
	"suumo-traveltime/internal/resolve"
	"suumo-traveltime/internal/routing"
	"suumo-traveltime/internal/scrape"
	"suumo-traveltime/internal/web"
	"suumo-traveltime/middleware"
)

// Global loggers for different output streams
var (
	infoLogger  = log.New(os.Stdout, "", log.LstdFlags)
	errorLogger = log.New(os.Stderr, "", log.LstdFlags)
)

func main() {
	infoLogger.Printf("Starting suumo-traveltime - Process ID: %d", os.Getpid())

	cfg, err := config.LoadConfig()
	if err != nil {
		errorLogger.Fatalf("Failed to load configuration: %v", err)
	}

	sqliteDB, err := db.ConnectToSQLite(cfg.SQLitePath)
	if err != nil {
		errorLogger.Fatalf("Failed to connect to SQLite: %v", err)
	}
	defer sqliteDB.Close()

	if err := db.InitializeSchema(sqliteDB); err != nil {
		errorLogger.Fatalf("Failed to initialize database schema: %v", err)
	}

	repoFactory := db.NewRepositoryFactory(sqliteDB)
	coordinateRepo := repoFactory.NewCoordinateRepository()
	durationRepo := repoFactory.NewDurationRepository()
	criterionRepo := repoFactory.NewCriterionRepository()
	credentialsRepo := repoFactory.NewCredentialsRepository()

	geocodeService := geocode.NewGeocodeService(coordinateRepo, credentialsRepo, cfg.GeocodeURL, cfg.HTTPTimeout, cfg.GeocodeRPS)
	routingService := routing.NewRoutingService(durationRepo, credentialsRepo, cfg.RoutingURL, cfg.HTTPTimeout, cfg.MaxParallelChunks)
	resolveService := resolve.NewResolveService(geocodeService, routingService)
	scrapeService := scrape.NewScrapeService(geocodeService, cfg.ListingsURL, cfg.HTTPTimeout, cfg.PageLimit)

	handler := web.NewWebHandler(criterionRepo, credentialsRepo, scrapeService, resolveService)
	router := handler.SetupRoutes()
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.SetupCORS())

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		infoLogger.Printf("Listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errorLogger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	infoLogger.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		errorLogger.Printf("Graceful shutdown failed: %v", err)
	}
	infoLogger.Println("Server stopped")
}
