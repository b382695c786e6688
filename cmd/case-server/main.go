/*-------------------------------------------------------------------------
 *
 * main.go
 *    Main entry point for CaseTrace server
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-server/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/casetrace/CaseTrace/internal/agent"
	"github.com/casetrace/CaseTrace/internal/api"
	"github.com/casetrace/CaseTrace/internal/auth"
	"github.com/casetrace/CaseTrace/internal/config"
	"github.com/casetrace/CaseTrace/internal/confirm"
	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/events"
	"github.com/casetrace/CaseTrace/internal/jobs"
	"github.com/casetrace/CaseTrace/internal/llm"
	"github.com/casetrace/CaseTrace/internal/metrics"
	"github.com/casetrace/CaseTrace/internal/pipeline"
	"github.com/casetrace/CaseTrace/internal/storage"
)

var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		showVersion    = flag.Bool("version", false, "Show version information")
		configPath     = flag.String("c", "", "Path to configuration file")
		configPathLong = flag.String("config", "", "Path to configuration file")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "CaseTrace Server - case investigation pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfiguration:\n")
		fmt.Fprintf(os.Stderr, "  - Command line flag: -c or --config\n")
		fmt.Fprintf(os.Stderr, "  - Environment variable: CONFIG_PATH\n")
		fmt.Fprintf(os.Stderr, "  - CASETRACE_* environment variables\n")
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("casetrace version %s\n", version)
		fmt.Printf("Build date: %s\n", buildDate)
		fmt.Printf("Git commit: %s\n", gitCommit)
		os.Exit(0)
	}

	/* Load configuration */
	cfg := config.DefaultConfig()

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = *configPathLong
	}
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}

	if cfgPath != "" {
		var err error
		cfg, err = config.LoadConfig(cfgPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v, using defaults\n", err)
			cfg = config.DefaultConfig()
			config.LoadFromEnv(cfg)
		}
	} else {
		config.LoadFromEnv(cfg)
	}

	/* Initialize logging */
	logLevel := cfg.Logging.Level
	if cfg.Logging.Format == "pretty" {
		logLevel = "pretty-" + logLevel
	}
	metrics.InitLogging(logLevel)

	/* Connect to database */
	connMaxIdleTime := 10 * time.Minute
	if cfg.Database.ConnMaxIdleTime > 0 {
		connMaxIdleTime = cfg.Database.ConnMaxIdleTime
	}

	database, err := db.NewDB(cfg.ConnString(), db.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: connMaxIdleTime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Connection: host=%s port=%d user=%s dbname=%s\n",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Database)
		os.Exit(1)
	}
	defer database.Close()

	/* Initialize components */
	queries := db.NewQueries(database.DB)

	backend, err := storage.NewBackend(cfg.Storage.Backend, map[string]interface{}{
		"queries": queries,
		"root":    cfg.Storage.LocalRoot,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize storage backend: %v\n", err)
		os.Exit(1)
	}

	publisher := events.NewPublisher()
	defer publisher.Close()

	broker := confirm.NewBroker(queries, publisher,
		time.Duration(cfg.Confirmation.TimeoutMinutes)*time.Minute)

	backendLLM := llm.NewClient(database.DB, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	factory := agent.NewFactory(backendLLM)
	runner := agent.NewRunner(factory, queries, storage.NewLoader(backend), broker, publisher,
		cfg.LLM.Model, cfg.LLM.ThinkingEffort)

	orchestrator := pipeline.NewOrchestrator(queries, runner, publisher, broker)

	/* Initialize API */
	keyManager := auth.SharedManager(queries)
	rateLimiter := auth.NewRateLimiter()
	handlers := api.NewHandlers(queries, orchestrator, broker, publisher, backend, keyManager)

	/* Setup router */
	router := mux.NewRouter()
	router.Use(api.RequestIDMiddleware)
	router.Use(api.SecurityHeadersMiddleware)
	router.Use(api.CORSMiddleware)
	router.Use(api.LoggingMiddleware)
	router.Use(api.AuthMiddleware(keyManager, rateLimiter))

	/* API routes */
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/cases", handlers.CreateCase).Methods("POST")
	apiRouter.HandleFunc("/cases", handlers.ListCases).Methods("GET")
	apiRouter.HandleFunc("/cases/{id}", handlers.GetCase).Methods("GET")
	apiRouter.HandleFunc("/cases/{id}", handlers.DeleteCase).Methods("DELETE")
	apiRouter.HandleFunc("/cases/{id}/files", handlers.UploadCaseFile).Methods("POST")
	apiRouter.HandleFunc("/cases/{id}/files", handlers.ListCaseFiles).Methods("GET")
	apiRouter.HandleFunc("/files/{file_id}/content", handlers.DownloadCaseFile).Methods("GET")
	apiRouter.HandleFunc("/cases/{id}/workflows", handlers.StartWorkflow).Methods("POST")
	apiRouter.HandleFunc("/cases/{id}/workflows", handlers.ListWorkflows).Methods("GET")
	apiRouter.HandleFunc("/workflows/{id}", handlers.GetWorkflow).Methods("GET")
	apiRouter.HandleFunc("/workflows/{id}/cancel", handlers.CancelWorkflow).Methods("POST")
	apiRouter.HandleFunc("/workflows/{id}/executions", handlers.ListExecutions).Methods("GET")
	apiRouter.HandleFunc("/workflows/{id}/report", handlers.GetWorkflowReport).Methods("GET")
	apiRouter.HandleFunc("/executions/{id}", handlers.GetExecution).Methods("GET")
	apiRouter.HandleFunc("/cases/{id}/findings", handlers.ListFindings).Methods("GET")
	apiRouter.HandleFunc("/cases/{id}/verdict", handlers.GetVerdict).Methods("GET")
	apiRouter.HandleFunc("/cases/{case_id}/confirmations/pending", handlers.ListPendingConfirmations).Methods("GET")
	apiRouter.HandleFunc("/cases/{case_id}/confirmations/{request_id}", handlers.ResolveConfirmation).Methods("POST")
	apiRouter.HandleFunc("/cases/{id}/events", handlers.StreamCaseEvents).Methods("GET")
	apiRouter.HandleFunc("/cases/{id}/events/ws", handlers.WatchCaseEvents).Methods("GET")
	apiRouter.HandleFunc("/keys", handlers.CreateAPIKey).Methods("POST")
	apiRouter.HandleFunc("/keys", handlers.ListAPIKeys).Methods("GET")
	apiRouter.HandleFunc("/keys/{id}", handlers.DeleteAPIKey).Methods("DELETE")

	/* Health check */
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	/* Metrics endpoint (no auth required) */
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	/* Start background workers */
	queue := jobs.NewQueue(queries)
	processor := jobs.NewProcessor(orchestrator)
	worker := jobs.NewWorker(queue, processor, cfg.Jobs.Workers)
	worker.Start()
	defer worker.Stop()

	scheduler := jobs.NewScheduler(queue)
	scheduler.Start()
	defer scheduler.Stop()

	/* Start server */
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		fmt.Printf("Server starting on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "FATAL: Server failed to start on %s: %v\n", addr, err)
			os.Exit(1)
		}
	}()

	/* Wait for interrupt signal */
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		fmt.Printf("Server forced to shutdown: %v\n", err)
	}

	fmt.Println("Server exited")
}
