package scheduler_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reyvanth/smsledger/internal/scheduler"
)

type fakeImporter struct {
	calls [][]string
}

func (f *fakeImporter) ProcessBatch(ctx context.Context, uuids []string) (int, error) {
	f.calls = append(f.calls, uuids)
	return 3, nil
}

type fakePurger struct {
	cutoffs []time.Time
}

func (f *fakePurger) PurgeMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return 7, nil
}

func TestRunImportNow(t *testing.T) {
	importer := &fakeImporter{}
	s, err := scheduler.New(importer, &fakePurger{}, time.UTC, scheduler.Config{Retention: 14 * 24 * time.Hour}, zerolog.New(io.Discard))
	require.NoError(t, err)

	considered, err := s.RunImportNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, considered)

	// Empty uuid list means "today's batch".
	require.Len(t, importer.calls, 1)
	assert.Nil(t, importer.calls[0])
}

func TestRunPurgeNowUsesRetentionWindow(t *testing.T) {
	purger := &fakePurger{}
	retention := 14 * 24 * time.Hour
	s, err := scheduler.New(&fakeImporter{}, purger, time.UTC, scheduler.Config{Retention: retention}, zerolog.New(io.Discard))
	require.NoError(t, err)

	deleted, err := s.RunPurgeNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)

	require.Len(t, purger.cutoffs, 1)
	expected := time.Now().Add(-retention)
	assert.WithinDuration(t, expected, purger.cutoffs[0], time.Minute)
}

func TestStartAndStop(t *testing.T) {
	s, err := scheduler.New(&fakeImporter{}, &fakePurger{}, time.UTC, scheduler.Config{Retention: time.Hour}, zerolog.New(io.Discard))
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
}
