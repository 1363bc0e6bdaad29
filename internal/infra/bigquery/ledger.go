package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/reyvanth/smsledger/internal/domain"
)

// InsertEntry writes one ledger entry, enforcing uuid uniqueness at the
// store. The MERGE is a single atomic statement: when two trigger paths
// race on the same message, exactly one insert lands and the other gets
// domain.ErrDuplicateEntry. Callers treat that as "already processed".
func (s *Store) InsertEntry(ctx context.Context, e *domain.LedgerEntry) error {
	q := s.client.Query(fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @uuid AS uuid) src
		ON t.uuid = src.uuid
		WHEN NOT MATCHED THEN
			INSERT (uuid, amount, account, party, category, label, type, date, time, note, comment, created_ts)
			VALUES (@uuid, @amount, @account, @party, @category, @label, @type, @date, @time, @note, @comment, @created_ts)
	`, s.table(ledgerTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "uuid", Value: e.UUID},
		{Name: "amount", Value: e.Amount},
		{Name: "account", Value: e.Account},
		{Name: "party", Value: e.Party},
		{Name: "category", Value: e.Category},
		{Name: "label", Value: e.Label},
		{Name: "type", Value: string(e.Type)},
		{Name: "date", Value: e.Date},
		{Name: "time", Value: e.Time},
		{Name: "note", Value: e.Note},
		{Name: "comment", Value: e.Comment},
		{Name: "created_ts", Value: e.CreatedAt},
	}

	stats, err := s.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("InsertEntry: %w", err)
	}
	if stats.InsertedRowCount == 0 {
		return fmt.Errorf("InsertEntry: uuid %s: %w", e.UUID, domain.ErrDuplicateEntry)
	}
	return nil
}

// HasEntry reports whether a ledger entry exists for the message uuid.
// This is the cheap pre-check; InsertEntry remains the authoritative gate.
func (s *Store) HasEntry(ctx context.Context, uuid string) (bool, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM %s
		WHERE uuid = @uuid
	`, s.table(ledgerTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "uuid", Value: uuid},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("HasEntry: query read: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return false, fmt.Errorf("HasEntry: iter next: %w", err)
	}
	return row.N > 0, nil
}

// ListEntries returns ledger entries newest first.
func (s *Store) ListEntries(ctx context.Context) ([]*domain.LedgerEntry, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT uuid, amount, account, party, category, label, type, date, time, note, comment, created_ts
		FROM %s
		ORDER BY created_ts DESC
	`, s.table(ledgerTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListEntries: query read: %w", err)
	}

	var entries []*domain.LedgerEntry
	for {
		var row LedgerRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListEntries: iter next: %w", err)
		}
		entries = append(entries, row.ToDomain())
	}

	return entries, nil
}

// RewriteParty updates category and label on every ledger entry carrying
// the party. Amount, date, and type are never touched. Rewriting to the
// values already present is a no-op, so the call is idempotent.
func (s *Store) RewriteParty(ctx context.Context, party, category, label string) (int64, error) {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET category = @category,
		    label = @label
		WHERE party = @party
	`, s.table(ledgerTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "category", Value: category},
		{Name: "label", Value: label},
		{Name: "party", Value: party},
	}

	stats, err := s.runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("RewriteParty: %w", err)
	}
	return stats.UpdatedRowCount, nil
}
