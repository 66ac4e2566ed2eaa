package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/application/service"
	"github.com/damon-houk/exchange-rate-widget/internal/config"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/repository"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/api"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/cache"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/db"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/handler"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/logger"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/metrics"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

const (
	gcInterval      = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log := logger.NewJSONLogger(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	logger.SetDefaultLogger(log)

	log.Info("Starting exchange rate widget", map[string]interface{}{
		"addr":          cfg.HTTPAddr,
		"api_base_url":  cfg.APIBaseURL,
		"session_store": cfg.SessionStore,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup the view state store
	var store repository.ViewStateRepository
	switch cfg.SessionStore {
	case config.StoreMemory:
		viewCache := cache.NewViewStateCache(cfg.SessionTTL)
		go viewCache.RunCleanup(ctx, gcInterval, func(removed int) {
			log.Debug("Expired view states removed", map[string]interface{}{"removed": removed})
		})
		store = viewCache
	default:
		badgerDB, err := db.OpenBadger(cfg.DataDir)
		if err != nil {
			log.Fatal("Failed to open database", map[string]interface{}{
				"data_dir": cfg.DataDir,
				"error":    err.Error(),
			})
		}
		defer func() {
			if err := badgerDB.Close(); err != nil {
				log.Error("Error closing BadgerDB", map[string]interface{}{"error": err.Error()})
			}
		}()

		repo := db.NewBadgerViewStateRepository(badgerDB, cfg.SessionTTL)
		go repo.RunGC(ctx, gcInterval)
		store = repo
	}

	// Initialize API client and services
	client := api.NewExchangeAPIClient(cfg.APIBaseURL, api.NewHTTPClient(cfg.APITimeout, cfg.APIInsecureSkipVerify), log)
	widgetService := service.NewWidgetService(client, store, log, cfg.APITimeout)

	sessions := handler.NewSessionManager(cfg.SessionSecret, cfg.CookieSecure, cfg.SessionTTL)
	if cfg.SessionSecret == "" {
		log.Warn("SESSION_SECRET is not set, sessions will not survive a restart", nil)
	}
	widgetHandler := handler.NewWidgetHandler(widgetService, sessions, log)

	// Setup router
	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.MetricsMiddleware)

	widgetHandler.RegisterRoutes(router)
	if cfg.EnableMetrics {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.APITimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": cfg.HTTPAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Error("Server failed", map[string]interface{}{"error": err.Error()})
	case <-ctx.Done():
		log.Info("Shutting down", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
