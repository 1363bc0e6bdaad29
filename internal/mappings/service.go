package mappings

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reyvanth/smsledger/internal/domain"
	"github.com/reyvanth/smsledger/internal/extract"
)

// Store is the mapping store surface the service manages.
type Store interface {
	CreateMapping(ctx context.Context, m *domain.PartyMapping) error
	SetMappingStatus(ctx context.Context, party string, status domain.MappingStatus) error
	DeleteMapping(ctx context.Context, party string) error
	ListMappings(ctx context.Context) ([]*domain.PartyMapping, error)
}

// LedgerRewriter is the scoped bulk-rewrite operation on the ledger:
// update category/label for every entry carrying a party, touching nothing
// else. Rewriting to identical values is a no-op, so calls are idempotent.
type LedgerRewriter interface {
	RewriteParty(ctx context.Context, party, category, label string) (int64, error)
}

// Service manages party mappings and keeps existing ledger entries in sync
// with them. Party uniqueness within ACTIVE scope is enforced by the
// store's atomic create, which is what keeps resolution deterministic.
type Service struct {
	store  Store
	ledger LedgerRewriter
	log    zerolog.Logger
}

// New creates the mapping service.
func New(store Store, ledger LedgerRewriter, log zerolog.Logger) *Service {
	return &Service{store: store, ledger: ledger, log: log}
}

// Create adds an ACTIVE mapping and rewrites existing ledger entries for
// the party to the new (category, label). Returns
// domain.ErrMappingExists when the party already has an active mapping.
func (s *Service) Create(ctx context.Context, m *domain.PartyMapping) error {
	if m.Party == "" || m.Label == "" || m.Category == "" {
		return fmt.Errorf("Create: party, label and category are required")
	}
	m.Status = domain.MappingActive

	if err := s.store.CreateMapping(ctx, m); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	updated, err := s.ledger.RewriteParty(ctx, m.Party, m.Category, m.Label)
	if err != nil {
		return fmt.Errorf("Create: rewriting ledger for party %q: %w", m.Party, err)
	}

	s.log.Info().
		Str("party", m.Party).
		Str("category", m.Category).
		Str("label", m.Label).
		Int64("rewritten", updated).
		Msg("Mapping created, ledger entries rewritten")

	return nil
}

// Remove deletes a party's mapping and rewrites its ledger entries to the
// fallback: category reverts to the uncategorized bucket and the label
// becomes the party string itself, as if no mapping had ever existed.
func (s *Service) Remove(ctx context.Context, party string) error {
	if err := s.store.DeleteMapping(ctx, party); err != nil {
		return fmt.Errorf("Remove: %w", err)
	}

	updated, err := s.ledger.RewriteParty(ctx, party, extract.FallbackCategory, party)
	if err != nil {
		return fmt.Errorf("Remove: rewriting ledger for party %q: %w", party, err)
	}

	s.log.Info().
		Str("party", party).
		Int64("rewritten", updated).
		Msg("Mapping removed, ledger entries reverted to fallback")

	return nil
}

// Deactivate toggles a mapping to INACTIVE, excluding it from resolution
// without touching history. Existing ledger entries keep their categories.
func (s *Service) Deactivate(ctx context.Context, party string) error {
	if err := s.store.SetMappingStatus(ctx, party, domain.MappingInactive); err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}
	return nil
}

// List returns all mappings.
func (s *Service) List(ctx context.Context) ([]*domain.PartyMapping, error) {
	return s.store.ListMappings(ctx)
}
