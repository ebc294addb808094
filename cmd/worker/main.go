package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/avolkov/banksync/internal/api/handlers"
	"github.com/avolkov/banksync/internal/api/middleware"
	"github.com/avolkov/banksync/internal/config"
	"github.com/avolkov/banksync/internal/docparse"
	"github.com/avolkov/banksync/internal/jobs"
	"github.com/avolkov/banksync/internal/jobs/inmemory"
	"github.com/avolkov/banksync/internal/logger"
	"github.com/avolkov/banksync/internal/notify"
	"github.com/avolkov/banksync/internal/objstore"
	"github.com/avolkov/banksync/internal/provider"
	"github.com/avolkov/banksync/internal/store"
	"github.com/avolkov/banksync/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.LogConsole)
	log.Info().Msg("Starting worker service")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer st.Close()

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storageClient.Close()
	retriever := objstore.NewGCSRetriever(storageClient, cfg.StorageBucket)

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create genai client")
	}
	parser := docparse.NewGeminiParser(genaiClient)

	providerClient := provider.NewHTTPClient(cfg.ProviderBaseURL, cfg.ProviderSecret, nil)
	dispatcher := notify.NewDispatcher(notify.NewHTTPSender(cfg.EventsEndpoint, cfg.EventsAPIKey, nil), st)

	monitor := tasks.NewHealthMonitor(st, dispatcher, nil)
	engine := tasks.NewSyncEngine(st, providerClient, dispatcher, cfg.SyncBatchSize, nil)
	ingestor := tasks.NewIngestor(st, retriever, parser, tasks.IngestorOptions{
		RetrievalTimeout:  cfg.RetrievalTimeout,
		RetrievalAttempts: cfg.RetrievalAttempts,
		ParseTimeout:      cfg.ParseTimeout,
	})

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 5, jobStore)

	handler := tasks.NewJobHandler(monitor, engine, ingestor)
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	scheduler := jobs.NewScheduler(jobQueue, cfg.SyncInterval, cfg.HealthInterval)
	go scheduler.Run(ctx)

	admin := adminRouter(jobQueue, jobStore, log)
	server := &http.Server{Addr: cfg.AdminAddr, Handler: admin}
	go func() {
		log.Info().Str("addr", cfg.AdminAddr).Msg("Admin server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Admin server failed")
		}
	}()

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Stop accepting new triggers, then stop the scheduler and workers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Admin server shutdown failed")
	}

	cancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}

func adminRouter(publisher jobs.Publisher, jobStore jobs.Store, log zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	jobsHandler := handlers.NewJobsHandler(publisher, jobStore, log)
	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/users/{id}/sync", jobsHandler.TriggerUserSync).Methods("POST")
	apiV1.HandleFunc("/documents", jobsHandler.ProcessDocument).Methods("POST")
	apiV1.HandleFunc("/documents/{id}/reprocess", jobsHandler.ReprocessDocument).Methods("POST")
	apiV1.HandleFunc("/jobs", jobsHandler.ListJobs).Methods("GET")
	apiV1.HandleFunc("/jobs/{id}", jobsHandler.GetJob).Methods("GET")

	return r
}
