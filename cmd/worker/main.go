package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reyvanth/smsledger/internal/archive"
	"github.com/reyvanth/smsledger/internal/config"
	"github.com/reyvanth/smsledger/internal/extract"
	infraBQ "github.com/reyvanth/smsledger/internal/infra/bigquery"
	"github.com/reyvanth/smsledger/internal/ingest"
	"github.com/reyvanth/smsledger/internal/jobs"
	"github.com/reyvanth/smsledger/internal/jobs/inmemory"
	"github.com/reyvanth/smsledger/internal/logger"
	"github.com/reyvanth/smsledger/internal/resolve"
	"github.com/reyvanth/smsledger/internal/watch"
)

// Standalone worker: watches the message store and drains the in-process
// queue without serving HTTP. Useful when the API runs elsewhere.
func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := infraBQ.NewStore(ctx, cfg.ProjectID, cfg.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	var archiver ingest.Archiver
	if cfg.Bucket != "" {
		gcsArchiver, err := archive.New(ctx, cfg.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS archiver")
		}
		defer gcsArchiver.Close()
		archiver = gcsArchiver
	}

	extractor := extract.NewExtractor(extract.NewGeminiCompleter(cfg.GeminiModel, cfg.LLMTimeout))
	ingestSvc := ingest.New(store, store, store, extractor, resolve.New(store), archiver, loc, log)

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 4, jobStore)

	handler := func(ctx context.Context, job jobs.Job) error {
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

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	watcher := watch.New(store, store, jobQueue, cfg.WatchInterval, loc, log)
	go watcher.Run(ctx)

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
