package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yhzhou/merchant-query/internal/api/handlers"
	"github.com/yhzhou/merchant-query/internal/api/middleware"
	"github.com/yhzhou/merchant-query/internal/filestore"
	"github.com/yhzhou/merchant-query/internal/infra/sqlite"
	"github.com/yhzhou/merchant-query/internal/jobs"
	"github.com/yhzhou/merchant-query/internal/jobs/inmemory"
	"github.com/yhzhou/merchant-query/internal/logger"
	"github.com/yhzhou/merchant-query/internal/pipeline"
	"github.com/yhzhou/merchant-query/internal/query"
	"github.com/yhzhou/merchant-query/internal/tabular"
)

func main() {
	// Parse command-line flags
	var (
		port    = flag.String("port", "8080", "HTTP server port")
		dbPath  = flag.String("db", envOrDefault("MERCHANTS_DB", "merchants.db"), "SQLite database path (or set MERCHANTS_DB env)")
		uploads = flag.String("uploads", envOrDefault("UPLOADS_DIR", "uploads"), "Directory for retained upload files (or set UPLOADS_DIR env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	// Initialize storage
	ctx := context.Background()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer store.Close()

	files, err := filestore.NewDir(*uploads)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *uploads).Msg("Failed to prepare upload directory")
	}

	ingestor := pipeline.NewIngestor(store, log)
	engine := query.NewEngine(store, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Create job handler for processing queued ingestions
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		ingestJob, ok := job.(*jobs.IngestFileJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", ingestJob.JobID).
			Str("filename", ingestJob.Filename).
			Msg("Processing ingestion job")

		rc, err := files.Open(ingestJob.Filename)
		if err != nil {
			return fmt.Errorf("opening retained file: %w", err)
		}
		defer rc.Close()

		table, err := tabular.DecodeXLSX(rc)
		if err != nil {
			return fmt.Errorf("decoding workbook: %w", err)
		}

		result, err := ingestor.Ingest(ctx, table, ingestJob.Filename)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", ingestJob.JobID).
				Str("filename", ingestJob.Filename).
				Msg("Ingestion failed")
			return err
		}

		// The queue persists the job after the handler returns.
		ingestJob.RecordsWritten = result.RecordsWritten
		ingestJob.DataDate = result.DataDate

		log.Info().
			Str("job_id", ingestJob.JobID).
			Int("records", result.RecordsWritten).
			Msg("Ingestion job completed")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting ingestion worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Ingestion worker stopped with error")
		}
	}()

	// Initialize handlers
	merchantsHandler := handlers.NewMerchantsHandler(engine, log)
	uploadsHandler := handlers.NewUploadsHandler(ingestor, files, jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	ingestionsHandler := handlers.NewIngestionsHandler(store, log)

	// Create router
	mux := http.NewServeMux()

	// Merchant endpoints
	mux.HandleFunc("/api/merchants/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		merchantID := strings.TrimPrefix(r.URL.Path, "/api/merchants/")
		if merchantID == "" {
			merchantsHandler.ListMerchants(w, r)
			return
		}
		merchantsHandler.GetMerchant(w, r, merchantID)
	})

	mux.HandleFunc("/api/data-date", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			merchantsHandler.GetDataDate(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Upload endpoints
	mux.HandleFunc("/api/upload/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			uploadsHandler.UploadFile(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/ingest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			uploadsHandler.EnqueueIngest(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	// Ingestion audit endpoint
	mux.HandleFunc("/api/ingestions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ingestionsHandler.ListIngestions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("db", *dbPath).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
