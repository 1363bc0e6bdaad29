package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/reyvanth/smsledger/internal/archive"
	"github.com/reyvanth/smsledger/internal/config"
	"github.com/reyvanth/smsledger/internal/extract"
	infraBQ "github.com/reyvanth/smsledger/internal/infra/bigquery"
	"github.com/reyvanth/smsledger/internal/ingest"
	"github.com/reyvanth/smsledger/internal/logger"
	"github.com/reyvanth/smsledger/internal/resolve"
)

// One-shot batch import: process the given message uuids, or everything
// captured today when none are given. Exits when the batch settles.
func main() {
	log := logger.New()

	uuidsFlag := flag.String("uuids", "", "Comma-separated message uuids to process (default: today's batch)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

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

	var uuids []string
	if *uuidsFlag != "" {
		for _, id := range strings.Split(*uuidsFlag, ",") {
			if id = strings.TrimSpace(id); id != "" {
				uuids = append(uuids, id)
			}
		}
	}

	log.Info().Int("uuids", len(uuids)).Msg("Starting batch import")

	considered, err := ingestSvc.ProcessBatch(ctx, uuids)
	if err != nil {
		log.Fatal().Err(err).Msg("Batch import failed")
	}

	fmt.Printf("Batch import completed: %d messages considered.\n", considered)
}
