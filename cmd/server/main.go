package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/joho/godotenv"

	"a11ydash/application"
	"a11ydash/database"
	"a11ydash/domain/contracts"
	"a11ydash/infrastructure/config"
	"a11ydash/infrastructure/engine"
	"a11ydash/infrastructure/repositories"
	"a11ydash/interfaces/web/handlers"
	"a11ydash/interfaces/web/presenters"
	"a11ydash/logging"
)

func main() {
	// Initialize configuration
	loadEnvironment()
	cfg := config.LoadAppConfigFromEnv()

	// Initialize logging
	logger := initializeLogging(cfg)

	// Initialize database
	db := initializeDatabase(cfg, logger)
	defer db.Close()

	// Build dependencies
	deps := buildDependencies(cfg, db, logger)

	// Setup routes and start server
	router := setupRoutes(deps, cfg)
	startServer(router, cfg.HTTPAddr, logger)
}

// Services holds application services.
type Services struct {
	Tasks     *application.TaskService
	Runner    *application.AuditRunner
	Reconcile *application.ReconcileService
	Export    *application.ExportService
}

// Dependencies holds all application dependencies organized by layer
type Dependencies struct {
	// Infrastructure
	DB      *database.Database
	Logger  *logging.Logger
	Durable contracts.DurableStore
	Engine  contracts.AuditEngine

	// Application layer
	Services *Services

	// Presentation layer
	TaskHandlers *handlers.TaskHandlers
	APIHandlers  *handlers.APIHandlers
}

func loadEnvironment() {
	if err := godotenv.Load(); err != nil {
		println("No .env file found, using environment variables")
	} else {
		println("Loaded configuration from .env file")
	}
}

func initializeLogging(cfg *config.AppConfig) *logging.Logger {
	logger := logging.NewLogger(cfg.Logging)
	logging.SetDefault(logger)

	logger.Info("Application starting",
		"log_level", cfg.Logging.Level,
		"log_format", cfg.Logging.Format,
		"db_path", cfg.Database.Path,
		"engine_mode", cfg.Engine.Mode,
	)

	return logger
}

func initializeDatabase(cfg *config.AppConfig, logger *logging.Logger) *database.Database {
	db, err := database.New(*cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	return db
}

// buildEngine selects the audit engine implementation from configuration.
func buildEngine(cfg *config.AppConfig, logger *logging.Logger) contracts.AuditEngine {
	if strings.EqualFold(cfg.Engine.Mode, "stub") {
		logger.Warn("Using stub audit engine; runs will report no issues")
		return engine.NewStubEngine()
	}
	return engine.NewChromeEngine(cfg.Engine)
}

// buildDependencies creates all application dependencies
func buildDependencies(cfg *config.AppConfig, db *database.Database, logger *logging.Logger) *Dependencies {
	durable := repositories.NewSqliteDurableStore(db)
	auditEngine := buildEngine(cfg, logger)

	runner := application.NewAuditRunner(auditEngine)
	tasks := application.NewTaskService(runner)
	reconcile := application.NewReconcileService(tasks, runner, durable)
	export := application.NewExportService(durable)

	presenter := presenters.NewTaskPresenter()

	return &Dependencies{
		DB:      db,
		Logger:  logger,
		Durable: durable,
		Engine:  auditEngine,
		Services: &Services{
			Tasks:     tasks,
			Runner:    runner,
			Reconcile: reconcile,
			Export:    export,
		},
		TaskHandlers: handlers.NewTaskHandlers(reconcile, presenter),
		APIHandlers:  handlers.NewAPIHandlers(auditEngine, reconcile, export, presenter),
	}
}

func setupRoutes(deps *Dependencies, cfg *config.AppConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	setupHTTPLogging(r, deps, cfg)
	r.Use(middleware.Recoverer)

	// System endpoints
	setupSystemRoutes(r, deps)

	// JSON API
	setupAPIRoutes(r, deps)

	// Server-rendered pages
	setupPageRoutes(r, deps)

	return r
}

func setupHTTPLogging(r *chi.Mux, deps *Dependencies, cfg *config.AppConfig) {
	if cfg.HTTPLogPath == "" {
		// No HTTP logging configured, skip
		return
	}

	logFile, err := os.OpenFile(cfg.HTTPLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		deps.Logger.Error("Failed to open HTTP log file", "error", err, "path", cfg.HTTPLogPath)
		return
	}
	// Note: logFile is not closed here as it needs to stay open for the server lifetime

	httpLogger := httplog.NewLogger("a11ydash", httplog.Options{
		Writer: logFile,
		JSON:   true,
	})
	r.Use(httplog.RequestLogger(httpLogger))

	deps.Logger.Info("HTTP request logging enabled", "path", cfg.HTTPLogPath)
}

func setupSystemRoutes(r *chi.Mux, deps *Dependencies) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.DB.Health()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		response := map[string]interface{}{
			"status":   "ok",
			"database": stats,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})
}

func setupAPIRoutes(r *chi.Mux, deps *Dependencies) {
	r.Post("/api/run", deps.APIHandlers.RunAudit)
	r.Get("/api/tasks", deps.APIHandlers.ListTasks)
	r.Get("/api/export", deps.APIHandlers.Export)
	r.Post("/api/import", deps.APIHandlers.Import)
}

func setupPageRoutes(r *chi.Mux, deps *Dependencies) {
	r.Get("/", deps.TaskHandlers.Home)
	r.Get("/new", deps.TaskHandlers.NewForm)
	r.Post("/new", deps.TaskHandlers.CreateTask)

	r.Get("/{taskID}", deps.TaskHandlers.Detail)
	r.Get("/{taskID}/edit", deps.TaskHandlers.EditForm)
	r.Post("/{taskID}/edit", deps.TaskHandlers.ApplyEdit)
	r.Get("/{taskID}/delete", deps.TaskHandlers.DeleteForm)
	r.Post("/{taskID}/delete", deps.TaskHandlers.ExecuteDelete)
	r.Post("/{taskID}/run", deps.TaskHandlers.RunTask)
}

func startServer(router *chi.Mux, addr string, logger *logging.Logger) {
	server := &http.Server{Addr: addr, Handler: router}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sig
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				logger.Error("Graceful shutdown timed out, forcing exit")
				os.Exit(1)
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			os.Exit(1)
		}
		serverStopCtx()
	}()

	logger.Info("Server starting", "address", addr)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}

	<-serverCtx.Done()
	logger.Info("Server stopped")
}
