package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/reyvanth/smsledger/internal/domain"
)

// InsertMessage stores a captured raw message.
func (s *Store) InsertMessage(ctx context.Context, msg *domain.RawMessage) error {
	inserter := s.client.DatasetInProject(s.projectID, s.datasetID).Table(messagesTable).Inserter()
	if err := inserter.Put(ctx, messageRowFromDomain(msg)); err != nil {
		return fmt.Errorf("InsertMessage: inserting row: %w", err)
	}
	return nil
}

// ListMessagesByDate returns all raw messages for a calendar day
// ("DD/MM/YYYY"), oldest first.
func (s *Store) ListMessagesByDate(ctx context.Context, date string) ([]*domain.RawMessage, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT uuid, message, date, parsed_details, created_ts
		FROM %s
		WHERE date = @date
		ORDER BY created_ts
	`, s.table(messagesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "date", Value: date},
	}

	return s.readMessages(ctx, q, "ListMessagesByDate")
}

// ListMessages returns all raw messages, newest first.
func (s *Store) ListMessages(ctx context.Context) ([]*domain.RawMessage, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT uuid, message, date, parsed_details, created_ts
		FROM %s
		ORDER BY created_ts DESC
	`, s.table(messagesTable)))

	return s.readMessages(ctx, q, "ListMessages")
}

// GetMessage fetches one raw message by uuid. Returns nil when absent.
func (s *Store) GetMessage(ctx context.Context, uuid string) (*domain.RawMessage, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT uuid, message, date, parsed_details, created_ts
		FROM %s
		WHERE uuid = @uuid
		LIMIT 1
	`, s.table(messagesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "uuid", Value: uuid},
	}

	rows, err := s.readMessages(ctx, q, "GetMessage")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// PurgeMessagesBefore deletes raw messages created before the cutoff and
// returns how many were removed. The scheduler runs this daily to enforce
// the staging retention window.
func (s *Store) PurgeMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE created_ts < @cutoff
	`, s.table(messagesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "cutoff", Value: cutoff},
	}

	stats, err := s.runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("PurgeMessagesBefore: %w", err)
	}
	return stats.DeletedRowCount, nil
}

func (s *Store) readMessages(ctx context.Context, q *bigquery.Query, op string) ([]*domain.RawMessage, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}

	var msgs []*domain.RawMessage
	for {
		var row MessageRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", op, err)
		}
		msgs = append(msgs, row.ToDomain())
	}

	return msgs, nil
}
