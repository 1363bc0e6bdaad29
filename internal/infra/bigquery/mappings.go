package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/reyvanth/smsledger/internal/domain"
)

// FindActiveMapping returns the ACTIVE mapping row for an exact party
// string, or nil when the party is unmapped. CreateMapping keeps parties
// unique within ACTIVE scope, so at most one row can match.
func (s *Store) FindActiveMapping(ctx context.Context, party string) (*domain.PartyMapping, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT party, label, category, status, description, created_ts, updated_ts
		FROM %s
		WHERE party = @party
		  AND status = @status
		LIMIT 1
	`, s.table(mappingsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "party", Value: party},
		{Name: "status", Value: string(domain.MappingActive)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindActiveMapping: query read: %w", err)
	}

	var row MappingRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindActiveMapping: iter next: %w", err)
	}

	return row.ToDomain(), nil
}

// CreateMapping inserts a mapping row unless the party already has an
// ACTIVE one. The MERGE makes the uniqueness check and the insert one
// atomic statement, which is what keeps resolution deterministic.
func (s *Store) CreateMapping(ctx context.Context, m *domain.PartyMapping) error {
	now := time.Now()
	q := s.client.Query(fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @party AS party) src
		ON t.party = src.party AND t.status = @active
		WHEN NOT MATCHED THEN
			INSERT (party, label, category, status, description, created_ts, updated_ts)
			VALUES (@party, @label, @category, @active, @description, @created_ts, @updated_ts)
	`, s.table(mappingsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "party", Value: m.Party},
		{Name: "label", Value: m.Label},
		{Name: "category", Value: m.Category},
		{Name: "active", Value: string(domain.MappingActive)},
		{Name: "description", Value: m.Description},
		{Name: "created_ts", Value: now},
		{Name: "updated_ts", Value: now},
	}

	stats, err := s.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("CreateMapping: %w", err)
	}
	if stats.InsertedRowCount == 0 {
		return fmt.Errorf("CreateMapping: party %q: %w", m.Party, domain.ErrMappingExists)
	}
	return nil
}

// SetMappingStatus toggles a party's mapping between ACTIVE and INACTIVE.
func (s *Store) SetMappingStatus(ctx context.Context, party string, status domain.MappingStatus) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    updated_ts = @updated_ts
		WHERE party = @party
	`, s.table(mappingsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(status)},
		{Name: "updated_ts", Value: time.Now()},
		{Name: "party", Value: party},
	}

	stats, err := s.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("SetMappingStatus: %w", err)
	}
	if stats.UpdatedRowCount == 0 {
		return fmt.Errorf("SetMappingStatus: party %q: %w", party, domain.ErrMappingNotFound)
	}
	return nil
}

// DeleteMapping removes a party's mapping rows entirely.
func (s *Store) DeleteMapping(ctx context.Context, party string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE party = @party
	`, s.table(mappingsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "party", Value: party},
	}

	stats, err := s.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteMapping: %w", err)
	}
	if stats.DeletedRowCount == 0 {
		return fmt.Errorf("DeleteMapping: party %q: %w", party, domain.ErrMappingNotFound)
	}
	return nil
}

// ListMappings returns all mapping rows, newest first.
func (s *Store) ListMappings(ctx context.Context) ([]*domain.PartyMapping, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT party, label, category, status, description, created_ts, updated_ts
		FROM %s
		ORDER BY created_ts DESC
	`, s.table(mappingsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListMappings: query read: %w", err)
	}

	var mappings []*domain.PartyMapping
	for {
		var row MappingRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListMappings: iter next: %w", err)
		}
		mappings = append(mappings, row.ToDomain())
	}

	return mappings, nil
}
