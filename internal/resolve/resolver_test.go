package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reyvanth/smsledger/internal/domain"
)

type fakeMappingLookup struct {
	mappings map[string]*domain.PartyMapping
	err      error
}

func (f *fakeMappingLookup) FindActiveMapping(ctx context.Context, party string) (*domain.PartyMapping, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.mappings[party], nil
}

func TestResolveCuratedOverride(t *testing.T) {
	store := &fakeMappingLookup{mappings: map[string]*domain.PartyMapping{
		"reyvanthrm@okaxis": {
			Party:    "reyvanthrm@okaxis",
			Label:    "Friends",
			Category: "Food",
			Status:   domain.MappingActive,
		},
	}}
	r := New(store)

	// The model guessed "travel"; the curated mapping must win.
	res, err := r.Resolve(context.Background(), "reyvanthrm@okaxis", "travel")
	require.NoError(t, err)

	assert.Equal(t, "Food", res.Category)
	assert.Equal(t, "Friends", res.Label)
	assert.True(t, res.Curated)
}

func TestResolveFallback(t *testing.T) {
	r := New(&fakeMappingLookup{mappings: map[string]*domain.PartyMapping{}})

	res, err := r.Resolve(context.Background(), "unknown@upi", "food")
	require.NoError(t, err)

	assert.Equal(t, "food", res.Category)
	assert.Equal(t, "unknown@upi", res.Label)
	assert.False(t, res.Curated)
}

func TestResolveExactMatchIsCaseSensitive(t *testing.T) {
	store := &fakeMappingLookup{mappings: map[string]*domain.PartyMapping{
		"Zomato": {Party: "Zomato", Label: "Takeout", Category: "Food", Status: domain.MappingActive},
	}}
	r := New(store)

	res, err := r.Resolve(context.Background(), "zomato", "food delivery")
	require.NoError(t, err)
	assert.False(t, res.Curated)
	assert.Equal(t, "zomato", res.Label)
}

func TestResolveStoreError(t *testing.T) {
	r := New(&fakeMappingLookup{err: errors.New("query failed")})

	_, err := r.Resolve(context.Background(), "anyone", "food")
	require.Error(t, err)
}
