package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/reyvanth/smsledger/internal/domain"
)

// FindAccountByFetcherName returns the account joined from
// LedgerEntry.Account, or domain.ErrAccountNotFound.
func (s *Store) FindAccountByFetcherName(ctx context.Context, fetcherName string) (*domain.Account, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT account_id, account_name, fetcher_name, account_type,
		       initial_balance, current_balance, lastupdate_ts
		FROM %s
		WHERE fetcher_name = @fetcher_name
		LIMIT 1
	`, s.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "fetcher_name", Value: fetcherName},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAccountByFetcherName: query read: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("FindAccountByFetcherName: %q: %w", fetcherName, domain.ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccountByFetcherName: iter next: %w", err)
	}

	return row.ToDomain(), nil
}

// ApplyBalanceDelta adds a signed decimal delta to an account's current
// balance and stamps lastupdate_ts. The arithmetic happens inside one
// UPDATE statement (string → BIGNUMERIC → string), so the read-modify-write
// is serialized by the store rather than by application code. Returns the
// new balance.
func (s *Store) ApplyBalanceDelta(ctx context.Context, fetcherName string, delta decimal.Decimal) (decimal.Decimal, error) {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET current_balance = CAST(CAST(current_balance AS BIGNUMERIC) + CAST(@delta AS BIGNUMERIC) AS STRING),
		    lastupdate_ts = @now
		WHERE fetcher_name = @fetcher_name
	`, s.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "delta", Value: delta.String()},
		{Name: "now", Value: time.Now()},
		{Name: "fetcher_name", Value: fetcherName},
	}

	stats, err := s.runDML(ctx, q)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ApplyBalanceDelta: %w", err)
	}
	if stats.UpdatedRowCount == 0 {
		return decimal.Zero, fmt.Errorf("ApplyBalanceDelta: %q: %w", fetcherName, domain.ErrAccountNotFound)
	}

	// The update itself carries the mutation; this read is only for
	// reporting the new balance back to the caller.
	acc, err := s.FindAccountByFetcherName(ctx, fetcherName)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ApplyBalanceDelta: reading back: %w", err)
	}

	balance, err := decimal.NewFromString(acc.CurrentBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ApplyBalanceDelta: malformed stored balance %q: %w", acc.CurrentBalance, err)
	}
	return balance, nil
}

// InsertAccount creates an account row.
func (s *Store) InsertAccount(ctx context.Context, acc *domain.Account) error {
	row := &AccountRow{
		AccountID:      acc.AccountID,
		AccountName:    acc.AccountName,
		FetcherName:    acc.FetcherName,
		AccountType:    acc.AccountType,
		InitialBalance: acc.InitialBalance,
		CurrentBalance: acc.CurrentBalance,
		LastUpdateTS:   acc.LastUpdate,
	}

	inserter := s.client.DatasetInProject(s.projectID, s.datasetID).Table(accountsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertAccount: inserting row: %w", err)
	}
	return nil
}

// ListAccounts returns all accounts.
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT account_id, account_name, fetcher_name, account_type,
		       initial_balance, current_balance, lastupdate_ts
		FROM %s
		ORDER BY account_name
	`, s.table(accountsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: query read: %w", err)
	}

	var accounts []*domain.Account
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: iter next: %w", err)
		}
		accounts = append(accounts, row.ToDomain())
	}

	return accounts, nil
}
