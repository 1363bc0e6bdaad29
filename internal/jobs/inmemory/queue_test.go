package inmemory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reyvanth/smsledger/internal/jobs"
)

func TestQueueProcessesPublishedJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)

	var processed sync.Map
	var count atomic.Int32
	done := make(chan struct{}, 3)

	handler := func(ctx context.Context, job jobs.Job) error {
		processed.Store(job.GetID(), true)
		count.Add(1)
		done <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx, handler))

	for i := 0; i < 3; i++ {
		err := q.PublishProcessMessage(ctx, &jobs.ProcessMessageJob{
			MessageUUID: fmt.Sprintf("msg-%d", i),
			Trigger:     "watcher",
		})
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	assert.Equal(t, int32(3), count.Load())
	require.NoError(t, q.Stop(context.Background()))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)

	var attempts atomic.Int32
	done := make(chan struct{})

	handler := func(ctx context.Context, job jobs.Job) error {
		if attempts.Add(1) < 2 {
			return fmt.Errorf("transient failure")
		}
		close(done)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx, handler))

	job := &jobs.ProcessMessageJob{JobID: "retry-me", MessageUUID: "aaa"}
	require.NoError(t, q.PublishProcessMessage(ctx, job))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not retried")
	}

	assert.Equal(t, int32(2), attempts.Load())
	require.NoError(t, q.Stop(context.Background()))

	saved, err := store.GetJob(context.Background(), "retry-me")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCompleted, saved.Status)
}

func TestPublishAfterCloseFails(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Close())

	err := q.PublishProcessMessage(context.Background(), &jobs.ProcessMessageJob{MessageUUID: "aaa"})
	require.Error(t, err)
}

func TestStoreListJobsFiltersByMessageUUID(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, &jobs.ProcessMessageJob{JobID: "1", MessageUUID: "aaa", Status: jobs.JobStatusCompleted}))
	require.NoError(t, store.SaveJob(ctx, &jobs.ProcessMessageJob{JobID: "2", MessageUUID: "bbb", Status: jobs.JobStatusPending}))
	require.NoError(t, store.SaveJob(ctx, &jobs.ProcessMessageJob{JobID: "3", MessageUUID: "aaa", Status: jobs.JobStatusPending}))

	list, err := store.ListJobs(ctx, jobs.JobFilter{MessageUUID: "aaa"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = store.ListJobs(ctx, jobs.JobFilter{MessageUUID: "aaa", Status: jobs.JobStatusPending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "3", list[0].JobID)
}
