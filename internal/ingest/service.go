package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/reyvanth/smsledger/internal/domain"
	"github.com/reyvanth/smsledger/internal/logger"
)

// MessageStore is the slice of the raw-message store the pipeline reads.
// The pipeline never writes messages; capture is an external concern.
type MessageStore interface {
	ListMessagesByDate(ctx context.Context, date string) ([]*domain.RawMessage, error)
	GetMessage(ctx context.Context, uuid string) (*domain.RawMessage, error)
}

// LedgerStore persists finalized entries. InsertEntry must enforce uuid
// uniqueness atomically and return domain.ErrDuplicateEntry when the uuid
// is already ledgered; that guarantee is what makes the two trigger paths
// safe without any shared lock.
type LedgerStore interface {
	HasEntry(ctx context.Context, uuid string) (bool, error)
	InsertEntry(ctx context.Context, e *domain.LedgerEntry) error
}

// AccountStore applies a signed balance delta atomically and returns the
// new balance. Must return domain.ErrAccountNotFound for an unknown
// fetcher name.
type AccountStore interface {
	ApplyBalanceDelta(ctx context.Context, fetcherName string, delta decimal.Decimal) (decimal.Decimal, error)
}

// Extractor produces a structured candidate plus the raw model text.
type Extractor interface {
	Extract(ctx context.Context, msg *domain.RawMessage) (*domain.ExtractedTxn, string, error)
}

// Resolver decides the final (category, label) for a party.
type Resolver interface {
	Resolve(ctx context.Context, party, rawCategory string) (domain.Resolution, error)
}

// Archiver stores raw model output for audit. Archiving is best-effort;
// failures are logged and never block the pipeline.
type Archiver interface {
	ArchiveModelOutput(ctx context.Context, uuid, date string, raw string) error
}

// Service is the per-message processing routine both triggers converge on:
// idempotency check, extraction, resolution, idempotent ledger write,
// balance update.
type Service struct {
	messages  MessageStore
	ledger    LedgerStore
	accounts  AccountStore
	extractor Extractor
	resolver  Resolver
	archiver  Archiver // nil disables archiving
	loc       *time.Location
	log       zerolog.Logger

	// accountMu serializes balance updates per account. The store's
	// single-statement update is atomic on its own; this additionally
	// orders updates issued from this process.
	mu        sync.Mutex
	accountMu map[string]*sync.Mutex
}

// New creates the ingestion service. archiver may be nil.
func New(messages MessageStore, ledger LedgerStore, accounts AccountStore,
	extractor Extractor, resolver Resolver, archiver Archiver,
	loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		messages:  messages,
		ledger:    ledger,
		accounts:  accounts,
		extractor: extractor,
		resolver:  resolver,
		archiver:  archiver,
		loc:       loc,
		log:       log,
		accountMu: make(map[string]*sync.Mutex),
	}
}

// Today returns the current calendar day in the service's timezone, in
// the raw-message date format.
func (s *Service) Today() string {
	return time.Now().In(s.loc).Format(domain.MessageDateFormat)
}

// ProcessMessage runs the full pipeline for one raw message. It is safe to
// invoke concurrently from multiple triggers for the same uuid: at most one
// ledger entry lands and at most one balance adjustment is applied. A nil
// return means the message is settled (processed now, or already ledgered);
// an error means it stays unprocessed and the next trigger retries it.
func (s *Service) ProcessMessage(ctx context.Context, msg *domain.RawMessage) error {
	log := logger.WithMessage(s.log, msg.UUID)

	// Cheap short-circuit. The authoritative gate is the store's unique
	// insert below; this just avoids a model call for settled messages.
	exists, err := s.ledger.HasEntry(ctx, msg.UUID)
	if err != nil {
		return fmt.Errorf("ProcessMessage: idempotency check: %w", err)
	}
	if exists {
		log.Debug().Msg("Message already processed, skipping")
		return nil
	}

	txn, rawOutput, err := s.extractor.Extract(ctx, msg)
	if rawOutput != "" {
		s.archive(ctx, log, msg, rawOutput)
	}
	if err != nil {
		return fmt.Errorf("ProcessMessage: %w", err)
	}

	res, err := s.resolver.Resolve(ctx, txn.Party, txn.Category)
	if err != nil {
		return fmt.Errorf("ProcessMessage: %w", err)
	}

	entry := &domain.LedgerEntry{
		UUID:      msg.UUID,
		Amount:    txn.Amount.String(),
		Account:   txn.Account,
		Party:     txn.Party,
		Category:  res.Category,
		Label:     res.Label,
		Type:      txn.Type,
		Date:      txn.Date,
		Time:      txn.Time,
		Note:      txn.Note,
		Comment:   txn.Comment,
		CreatedAt: time.Now(),
	}

	if err := s.ledger.InsertEntry(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			// Another trigger won the race between our pre-check and this
			// insert. Its balance update stands; ours must not run.
			log.Info().Msg("Message ledgered concurrently by another trigger")
			return nil
		}
		return fmt.Errorf("ProcessMessage: ledger insert: %w", err)
	}

	log.Info().
		Str("account", entry.Account).
		Str("amount", entry.Amount).
		Str("type", string(entry.Type)).
		Str("category", entry.Category).
		Str("label", entry.Label).
		Bool("curated", res.Curated).
		Msg("Ledger entry written")

	newBalance, err := s.updateBalance(ctx, txn.Account, txn.Amount, txn.Type)
	if err != nil {
		// The ledger entry stays; there is no compensating delete. The
		// error surfaces so the caller can report the divergence.
		return fmt.Errorf("ProcessMessage: balance update for %q: %w", txn.Account, err)
	}

	log.Info().
		Str("account", txn.Account).
		Str("balance", newBalance.String()).
		Msg("Account balance updated")

	return nil
}

// ProcessBatch processes the given message uuids, or today's whole batch
// when uuids is empty. Failures are contained per message; the returned
// count is how many messages were considered, not how many were ledgered.
func (s *Service) ProcessBatch(ctx context.Context, uuids []string) (int, error) {
	var msgs []*domain.RawMessage

	if len(uuids) == 0 {
		today := s.Today()
		all, err := s.messages.ListMessagesByDate(ctx, today)
		if err != nil {
			return 0, fmt.Errorf("ProcessBatch: listing messages for %s: %w", today, err)
		}
		msgs = all
	} else {
		for _, id := range uuids {
			msg, err := s.messages.GetMessage(ctx, id)
			if err != nil {
				return 0, fmt.Errorf("ProcessBatch: fetching message %s: %w", id, err)
			}
			if msg == nil {
				s.log.Warn().Str("message_uuid", id).Msg("Message not found, skipping")
				continue
			}
			msgs = append(msgs, msg)
		}
	}

	for _, msg := range msgs {
		if err := s.ProcessMessage(ctx, msg); err != nil {
			// Leave the message unprocessed; the next trigger retries it.
			log := logger.WithMessage(s.log, msg.UUID)
			log.Error().Err(err).Msg("Failed to process message")
		}
	}

	return len(msgs), nil
}

// updateBalance applies the signed amount to the account under a
// per-account lock. Debits subtract, credits add.
func (s *Service) updateBalance(ctx context.Context, account string, amount decimal.Decimal, txnType domain.TxnType) (decimal.Decimal, error) {
	delta := amount
	switch txnType {
	case domain.TxnDebit:
		delta = amount.Neg()
	case domain.TxnCredit:
		// amount as-is
	default:
		return decimal.Zero, fmt.Errorf("invalid transaction type %q", txnType)
	}

	mu := s.lockFor(account)
	mu.Lock()
	defer mu.Unlock()

	return s.accounts.ApplyBalanceDelta(ctx, account, delta)
}

func (s *Service) lockFor(account string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.accountMu[account]
	if !ok {
		mu = &sync.Mutex{}
		s.accountMu[account] = mu
	}
	return mu
}

func (s *Service) archive(ctx context.Context, log zerolog.Logger, msg *domain.RawMessage, raw string) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveModelOutput(ctx, msg.UUID, msg.Date, raw); err != nil {
		log.Warn().Err(err).Msg("Failed to archive model output")
	}
}
