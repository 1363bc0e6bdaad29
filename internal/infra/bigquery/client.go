package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// Store holds a shared BigQuery client plus the project/dataset it talks
// to. All repository methods hang off it so one connection serves the
// whole process.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a Store with a shared BigQuery client.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return &Store{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the underlying BigQuery client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// table returns the fully qualified `project.dataset.table` name for use
// inside query text.
func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

// runDML runs a DML statement and returns its statistics. The per-statement
// atomicity of BigQuery DML is what the idempotent insert and the balance
// update lean on.
func (s *Store) runDML(ctx context.Context, q *bigquery.Query) (*bigquery.DMLStatistics, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("job error: %w", err)
	}

	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok && qs.DMLStats != nil {
		return qs.DMLStats, nil
	}
	return &bigquery.DMLStatistics{}, nil
}
