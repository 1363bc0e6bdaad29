package resolve

import (
	"context"
	"fmt"

	"github.com/reyvanth/smsledger/internal/domain"
)

// MappingLookup is the slice of the mapping store the resolver needs:
// exact-match lookup of a party within ACTIVE scope.
type MappingLookup interface {
	FindActiveMapping(ctx context.Context, party string) (*domain.PartyMapping, error)
}

// Resolver decides the final (category, label) for an extracted
// transaction. A curated ACTIVE mapping always wins over the model's raw
// category guess; the store keeps parties unique within ACTIVE scope, so
// there is never an ambiguous match to tie-break.
type Resolver struct {
	store MappingLookup
}

// New creates a Resolver over a mapping store.
func New(store MappingLookup) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks up the party (case-sensitive, exact). Found: the mapping's
// category and label override rawCategory entirely. Not found: rawCategory
// stands and the party itself becomes the label.
func (r *Resolver) Resolve(ctx context.Context, party, rawCategory string) (domain.Resolution, error) {
	mapping, err := r.store.FindActiveMapping(ctx, party)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("Resolve: party %q: %w", party, err)
	}

	if mapping != nil {
		return domain.Resolution{
			Category: mapping.Category,
			Label:    mapping.Label,
			Curated:  true,
		}, nil
	}

	return domain.Resolution{
		Category: rawCategory,
		Label:    party,
		Curated:  false,
	}, nil
}
