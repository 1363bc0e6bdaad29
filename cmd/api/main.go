package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reyvanth/smsledger/internal/api"
	"github.com/reyvanth/smsledger/internal/archive"
	"github.com/reyvanth/smsledger/internal/config"
	"github.com/reyvanth/smsledger/internal/extract"
	infraBQ "github.com/reyvanth/smsledger/internal/infra/bigquery"
	"github.com/reyvanth/smsledger/internal/ingest"
	"github.com/reyvanth/smsledger/internal/jobs"
	"github.com/reyvanth/smsledger/internal/jobs/inmemory"
	"github.com/reyvanth/smsledger/internal/logger"
	"github.com/reyvanth/smsledger/internal/mappings"
	"github.com/reyvanth/smsledger/internal/resolve"
	"github.com/reyvanth/smsledger/internal/scheduler"
	"github.com/reyvanth/smsledger/internal/watch"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn().Str("timezone", cfg.Timezone).Msg("Unknown timezone, falling back to UTC")
		loc = time.UTC
	}

	ctx := context.Background()

	store, err := infraBQ.NewStore(ctx, cfg.ProjectID, cfg.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	// Model-output archiving is optional; without a bucket the pipeline
	// runs but leaves no audit trail.
	var archiver ingest.Archiver
	if cfg.Bucket != "" {
		gcsArchiver, err := archive.New(ctx, cfg.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS archiver")
		}
		defer gcsArchiver.Close()
		archiver = gcsArchiver
	} else {
		log.Warn().Msg("No GCS bucket configured - model output archiving is disabled")
	}

	extractor := extract.NewExtractor(extract.NewGeminiCompleter(cfg.GeminiModel, cfg.LLMTimeout))
	resolver := resolve.New(store)
	ingestSvc := ingest.New(store, store, store, extractor, resolver, archiver, loc, log)
	mappingSvc := mappings.New(store, store, log)

	// Job infrastructure: both trigger paths enqueue here and one worker
	// pool drains it.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 4, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		processJob, ok := job.(*jobs.ProcessMessageJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		msg, err := store.GetMessage(ctx, processJob.MessageUUID)
		if err != nil {
			return fmt.Errorf("fetch message %s: %w", processJob.MessageUUID, err)
		}
		if msg == nil {
			log.Warn().Str("message_uuid", processJob.MessageUUID).Msg("Message vanished before processing")
			return nil
		}

		return ingestSvc.ProcessMessage(ctx, msg)
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Trigger path 1: poll the message store for fresh arrivals.
	watcher := watch.New(store, store, jobQueue, cfg.WatchInterval, loc, log)
	go watcher.Run(workerCtx)

	// Trigger path 2 (cron): nightly catch-all import plus retention purge.
	sched, err := scheduler.New(ingestSvc, store, loc, scheduler.Config{
		Retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	router := api.NewRouter(api.Deps{
		Messages: store,
		Importer: ingestSvc,
		Ledger:   store,
		Mappings: mappingSvc,
		Accounts: store,
		Jobs:     jobStore,
		Location: loc,
		Log:      log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping scheduler")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
