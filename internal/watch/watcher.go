// Package watch turns new raw messages into processing jobs. BigQuery has
// no change streams to subscribe to, so the watcher polls the message
// table instead and enqueues a job for anything not yet ledgered.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reyvanth/smsledger/internal/domain"
	"github.com/reyvanth/smsledger/internal/jobs"
)

// MessageLister lists raw messages captured on a given "DD/MM/YYYY" date.
type MessageLister interface {
	ListMessagesByDate(ctx context.Context, date string) ([]*domain.RawMessage, error)
}

// LedgerChecker reports whether a message uuid already has a ledger entry.
type LedgerChecker interface {
	HasEntry(ctx context.Context, uuid string) (bool, error)
}

// Watcher polls the message store and enqueues a ProcessMessage job for
// every unprocessed message it sees. The pipeline is idempotent on uuid,
// so the watcher only needs to avoid flooding the queue, not to guarantee
// exactly-once enqueueing. It shares the queue with the import endpoint;
// both trigger paths converge on the same worker.
type Watcher struct {
	messages  MessageLister
	ledger    LedgerChecker
	publisher jobs.Publisher
	interval  time.Duration
	loc       *time.Location
	log       zerolog.Logger

	mu       sync.Mutex
	seenDate string
	seen     map[string]struct{}
}

// New creates a watcher. interval is the poll period.
func New(messages MessageLister, ledger LedgerChecker, publisher jobs.Publisher, interval time.Duration, loc *time.Location, log zerolog.Logger) *Watcher {
	return &Watcher{
		messages:  messages,
		ledger:    ledger,
		publisher: publisher,
		interval:  interval,
		loc:       loc,
		log:       log,
		seen:      make(map[string]struct{}),
	}
}

// Run polls until ctx is cancelled. It performs one sweep immediately so
// a restart picks up backlog without waiting a full interval.
func (w *Watcher) Run(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Message watcher started")

	if err := w.Sweep(ctx); err != nil {
		w.log.Error().Err(err).Msg("Watcher sweep failed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Message watcher stopped")
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.log.Error().Err(err).Msg("Watcher sweep failed")
			}
		}
	}
}

// Sweep runs a single poll pass: list today's messages and enqueue every
// one that has no ledger entry and was not already enqueued this day.
func (w *Watcher) Sweep(ctx context.Context) error {
	today := time.Now().In(w.loc).Format(domain.MessageDateFormat)

	msgs, err := w.messages.ListMessagesByDate(ctx, today)
	if err != nil {
		return err
	}

	enqueued := 0
	for _, msg := range msgs {
		if w.alreadySeen(today, msg.UUID) {
			continue
		}

		ledgered, err := w.ledger.HasEntry(ctx, msg.UUID)
		if err != nil {
			w.log.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Ledger check failed, skipping message")
			continue
		}
		if ledgered {
			w.markSeen(today, msg.UUID)
			continue
		}

		job := &jobs.ProcessMessageJob{
			MessageUUID: msg.UUID,
			Trigger:     "watcher",
		}
		if err := w.publisher.PublishProcessMessage(ctx, job); err != nil {
			w.log.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Failed to enqueue message")
			continue
		}

		w.markSeen(today, msg.UUID)
		enqueued++
	}

	if enqueued > 0 {
		w.log.Info().Int("enqueued", enqueued).Int("listed", len(msgs)).Msg("Watcher sweep enqueued messages")
	}

	return nil
}

// alreadySeen reports whether the uuid was handled during the current day.
// The set resets on day rollover so it cannot grow unbounded.
func (w *Watcher) alreadySeen(date, uuid string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.seenDate != date {
		w.seenDate = date
		w.seen = make(map[string]struct{})
	}
	_, ok := w.seen[uuid]
	return ok
}

func (w *Watcher) markSeen(date, uuid string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.seenDate != date {
		w.seenDate = date
		w.seen = make(map[string]struct{})
	}
	w.seen[uuid] = struct{}{}
}
