package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reyvanth/smsledger/internal/api"
	"github.com/reyvanth/smsledger/internal/domain"
	"github.com/reyvanth/smsledger/internal/jobs/inmemory"
)

type fakeMessages struct {
	inserted []*domain.RawMessage
	listErr  error
}

func (f *fakeMessages) InsertMessage(ctx context.Context, msg *domain.RawMessage) error {
	f.inserted = append(f.inserted, msg)
	return nil
}

func (f *fakeMessages) ListMessages(ctx context.Context) ([]*domain.RawMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.inserted, nil
}

type fakeImporter struct {
	gotUUIDs   []string
	considered int
	err        error
}

func (f *fakeImporter) ProcessBatch(ctx context.Context, uuids []string) (int, error) {
	f.gotUUIDs = uuids
	return f.considered, f.err
}

type fakeLedger struct {
	entries []*domain.LedgerEntry
}

func (f *fakeLedger) ListEntries(ctx context.Context) ([]*domain.LedgerEntry, error) {
	return f.entries, nil
}

type fakeMappings struct {
	created   []*domain.PartyMapping
	createErr error
	removeErr error
	removed   []string
}

func (f *fakeMappings) Create(ctx context.Context, m *domain.PartyMapping) error {
	if f.createErr != nil {
		return f.createErr
	}
	m.Status = domain.MappingActive
	f.created = append(f.created, m)
	return nil
}

func (f *fakeMappings) Remove(ctx context.Context, party string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, party)
	return nil
}

func (f *fakeMappings) Deactivate(ctx context.Context, party string) error {
	return f.removeErr
}

func (f *fakeMappings) List(ctx context.Context) ([]*domain.PartyMapping, error) {
	return f.created, nil
}

type fakeAccounts struct {
	accounts []*domain.Account
}

func (f *fakeAccounts) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return f.accounts, nil
}

func (f *fakeAccounts) InsertAccount(ctx context.Context, acc *domain.Account) error {
	f.accounts = append(f.accounts, acc)
	return nil
}

type testEnv struct {
	messages *fakeMessages
	importer *fakeImporter
	ledger   *fakeLedger
	mappings *fakeMappings
	accounts *fakeAccounts
	server   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		messages: &fakeMessages{},
		importer: &fakeImporter{},
		ledger:   &fakeLedger{},
		mappings: &fakeMappings{},
		accounts: &fakeAccounts{},
	}

	router := api.NewRouter(api.Deps{
		Messages: env.messages,
		Importer: env.importer,
		Ledger:   env.ledger,
		Mappings: env.mappings,
		Accounts: env.accounts,
		Jobs:     inmemory.NewStore(),
		Location: time.UTC,
		Log:      zerolog.New(io.Discard),
	})

	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded))
	}
	return resp, decoded
}

func TestCreateMessageAssignsUUIDAndDate(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/messages", map[string]string{
		"message": "Rs 15.00 debited from your account",
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["uuid"])
	assert.Equal(t, time.Now().UTC().Format(domain.MessageDateFormat), body["date"])

	require.Len(t, env.messages.inserted, 1)
	assert.Equal(t, "Rs 15.00 debited from your account", env.messages.inserted[0].Message)
}

func TestCreateMessageRejectsEmptyBody(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/messages", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImportWithExplicitUUIDs(t *testing.T) {
	env := newTestEnv(t)
	env.importer.considered = 2

	resp, body := env.do(t, http.MethodPost, "/api/import", map[string][]string{
		"uuids": {"aaa", "bbb"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["considered"])
	assert.Equal(t, []string{"aaa", "bbb"}, env.importer.gotUUIDs)
}

func TestImportWithoutBodyMeansToday(t *testing.T) {
	env := newTestEnv(t)
	env.importer.considered = 5

	resp, body := env.do(t, http.MethodPost, "/api/import", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), body["considered"])
	assert.Nil(t, env.importer.gotUUIDs)
}

func TestListLedger(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.entries = []*domain.LedgerEntry{
		{UUID: "aaa", Amount: "15", Account: "Federal Bank", Type: domain.TxnDebit},
	}

	resp, body := env.do(t, http.MethodGet, "/api/ledger", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
}

func TestCreateMappingConflict(t *testing.T) {
	env := newTestEnv(t)
	env.mappings.createErr = fmt.Errorf("store: %w", domain.ErrMappingExists)

	resp, _ := env.do(t, http.MethodPost, "/api/mappings", map[string]string{
		"party":    "zomato",
		"label":    "Takeout",
		"category": "Food",
	})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateMapping(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/mappings", map[string]string{
		"party":    "zomato",
		"label":    "Takeout",
		"category": "Food",
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, string(domain.MappingActive), body["status"])
	require.Len(t, env.mappings.created, 1)
}

func TestDeleteMappingNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.mappings.removeErr = domain.ErrMappingNotFound

	resp, _ := env.do(t, http.MethodDelete, "/api/mappings/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAccountDefaultsBalance(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/accounts", map[string]string{
		"account_name": "Federal Savings",
		"fetcher_name": "Federal Bank",
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, env.accounts.accounts, 1)
	acc := env.accounts.accounts[0]
	assert.Equal(t, "0", acc.InitialBalance)
	assert.Equal(t, "0", acc.CurrentBalance)
	assert.NotEmpty(t, acc.AccountID)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}
