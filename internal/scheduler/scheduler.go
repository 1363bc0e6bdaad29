// Package scheduler owns the cron-driven trigger paths: a nightly batch
// import sweep and the raw-message retention purge.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// BatchImporter runs the ingestion pipeline for a set of messages.
// An empty uuid list means "everything captured today".
type BatchImporter interface {
	ProcessBatch(ctx context.Context, uuids []string) (int, error)
}

// MessagePurger deletes raw messages captured before the cutoff.
type MessagePurger interface {
	PurgeMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds scheduler configuration.
type Config struct {
	// Retention is how long raw messages are kept before the nightly
	// purge removes them.
	Retention time.Duration
}

// Scheduler manages the scheduled jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	importer  BatchImporter
	purger    MessagePurger
	retention time.Duration
	timezone  *time.Location
	log       zerolog.Logger
}

// New creates a scheduler running in the given timezone. Message dates
// are day-granular, so the timezone decides what "today" means for the
// nightly sweep.
func New(importer BatchImporter, purger MessagePurger, loc *time.Location, cfg Config, log zerolog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		importer:  importer,
		purger:    purger,
		retention: cfg.Retention,
		timezone:  loc,
		log:       log,
	}, nil
}

// Start registers all jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	// Nightly batch import at 23:30 catches anything the watcher and the
	// import endpoint missed during the day.
	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(23, 30, 0))),
		gocron.NewTask(s.runBatchImport),
		gocron.WithName("daily-batch-import"),
	)
	if err != nil {
		return err
	}

	// Retention purge at 02:00, after the nightly import has settled.
	_, err = s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))),
		gocron.NewTask(s.runRetentionPurge),
		gocron.WithName("retention-purge"),
	)
	if err != nil {
		return err
	}

	s.scheduler.Start()
	s.log.Info().Dur("retention", s.retention).Msg("Scheduler started")
	return nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runBatchImport() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	considered, err := s.importer.ProcessBatch(ctx, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("Nightly batch import failed")
		return
	}
	s.log.Info().Int("considered", considered).Msg("Nightly batch import completed")
}

func (s *Scheduler) runRetentionPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().In(s.timezone).Add(-s.retention)
	deleted, err := s.purger.PurgeMessagesBefore(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("Retention purge failed")
		return
	}
	s.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Retention purge completed")
}

// RunImportNow triggers the batch import immediately, bypassing the cron
// schedule. Used by the one-shot CLI.
func (s *Scheduler) RunImportNow(ctx context.Context) (int, error) {
	return s.importer.ProcessBatch(ctx, nil)
}

// RunPurgeNow triggers the retention purge immediately.
func (s *Scheduler) RunPurgeNow(ctx context.Context) (int64, error) {
	cutoff := time.Now().In(s.timezone).Add(-s.retention)
	return s.purger.PurgeMessagesBefore(ctx, cutoff)
}
