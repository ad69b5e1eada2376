/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the timeclock engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env / environment, flags override)
  2. Initialize SQLite store
  3. Wire orchestrator, limits engine, and job manager
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides SERVER_PORT)
  -db      SQLite database path (overrides DATABASE_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Cancel in-flight recalculation jobs and wait for them
  4. Close database connection
  5. Exit

EXAMPLES:
  ./server -db="./data/timeclock.db"
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/timeclock-engine/api"
	"github.com/warp/timeclock-engine/config"
	"github.com/warp/timeclock-engine/engine"
	"github.com/warp/timeclock-engine/store/sqlite"
	"github.com/warp/timeclock-engine/timeclock"
	memstore "github.com/warp/timeclock-engine/timeclock/store"
)

func main() {
	cfg := config.Load()

	port := flag.String("port", cfg.ServerPort, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("app", "timeclock-engine"),
	)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	store.AuditCap = cfg.AuditCap

	night, err := nightWindow(cfg)
	if err != nil {
		logger.Error("invalid night window configuration", "error", err)
		os.Exit(1)
	}

	// Wire the engine
	events := memstore.NewFanoutPublisher()
	orch := engine.NewOrchestrator(engine.Deps{
		Punches:   store,
		Calcs:     store,
		Audit:     store,
		Events:    events,
		Directory: store,
		Calendar:  store,
		Night:     night,
		Logger:    logger,
		Timeout:   cfg.StoreTimeout,
	})

	jobs := engine.NewJobManager(orch, store, logger)
	jobs.SetDebounce(cfg.Debounce)
	defer jobs.Stop()

	limits := engine.NewLimitsEngine(engine.LimitsDeps{
		Limits:    store,
		Calcs:     store,
		Audit:     store,
		Events:    events,
		Directory: store,
		Jobs:      jobs,
		Logger:    logger,
		Timeout:   cfg.StoreTimeout,
	})

	// Create router and server
	handler := api.NewHandler(store, orch, limits, jobs)
	router := api.NewRouter(handler, logger)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", *dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	jobs.Stop()
	jobs.Wait()

	logger.Info("server stopped")
}

func nightWindow(cfg *config.Config) (timeclock.NightWindow, error) {
	start, err := timeclock.ParseClockTime(cfg.NightStart)
	if err != nil {
		return timeclock.NightWindow{}, err
	}
	end, err := timeclock.ParseClockTime(cfg.NightEnd)
	if err != nil {
		return timeclock.NightWindow{}, err
	}
	return timeclock.NightWindow{Start: start, End: end}, nil
}
