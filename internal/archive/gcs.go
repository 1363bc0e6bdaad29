// Package archive persists raw model outputs to Google Cloud Storage so
// every ledger entry can be audited back to the exact LLM response that
// produced it.
package archive

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// GCSArchiver writes model outputs under
// gs://<bucket>/model-outputs/<date>/<uuid>.json.
// It assumes Application Default Credentials are configured
// (gcloud auth application-default login).
type GCSArchiver struct {
	client *storage.Client
	bucket string
}

// New creates an archiver backed by a shared storage client.
func New(ctx context.Context, bucket string) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket}, nil
}

// NewWithClient creates an archiver using an existing storage client.
// Useful for testing with a fake server.
func NewWithClient(client *storage.Client, bucket string) *GCSArchiver {
	return &GCSArchiver{client: client, bucket: bucket}
}

func objectName(uuid, date string) string {
	return fmt.Sprintf("model-outputs/%s/%s.json", date, uuid)
}

// ArchiveModelOutput uploads the raw model response for a message.
// Re-archiving the same uuid overwrites the previous object, so retries
// are safe.
func (a *GCSArchiver) ArchiveModelOutput(ctx context.Context, uuid, date, raw string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	obj := a.client.Bucket(a.bucket).Object(objectName(uuid, date))

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := io.WriteString(w, raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy model output to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer: %w", err)
	}

	return nil
}

// FetchModelOutput reads back an archived model response.
func (a *GCSArchiver) FetchModelOutput(ctx context.Context, uuid, date string) ([]byte, error) {
	r, err := a.client.Bucket(a.bucket).Object(objectName(uuid, date)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}

	return data, nil
}

// Close releases the underlying storage client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}
