package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reyvanth/smsledger/internal/api/middleware"
	"github.com/reyvanth/smsledger/internal/domain"
	"github.com/reyvanth/smsledger/internal/jobs"
)

// MessageStore is the message-store surface the capture endpoints need.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *domain.RawMessage) error
	ListMessages(ctx context.Context) ([]*domain.RawMessage, error)
}

// Importer runs the batch pipeline; empty uuids means today's messages.
type Importer interface {
	ProcessBatch(ctx context.Context, uuids []string) (int, error)
}

// LedgerReader lists finalized entries.
type LedgerReader interface {
	ListEntries(ctx context.Context) ([]*domain.LedgerEntry, error)
}

// MappingManager is the mapping service surface exposed over HTTP.
type MappingManager interface {
	Create(ctx context.Context, m *domain.PartyMapping) error
	Remove(ctx context.Context, party string) error
	Deactivate(ctx context.Context, party string) error
	List(ctx context.Context) ([]*domain.PartyMapping, error)
}

// AccountStore is the account surface exposed over HTTP.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	InsertAccount(ctx context.Context, acc *domain.Account) error
}

// MessagesHandler handles raw message capture and listing.
type MessagesHandler struct {
	store MessageStore
	loc   *time.Location
	log   zerolog.Logger
}

// NewMessagesHandler creates a new messages handler. Captured messages are
// stamped with the current calendar day in loc.
func NewMessagesHandler(store MessageStore, loc *time.Location, log zerolog.Logger) *MessagesHandler {
	return &MessagesHandler{store: store, loc: loc, log: log}
}

// CreateMessage handles POST /api/messages. It assigns a uuid and arrival
// date; processing happens asynchronously via the watcher or an explicit
// import.
func (h *MessagesHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		middleware.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}

	msg := &domain.RawMessage{
		UUID:      uuid.New().String(),
		Message:   req.Message,
		Date:      time.Now().In(h.loc).Format(domain.MessageDateFormat),
		CreatedAt: time.Now(),
	}

	if err := h.store.InsertMessage(r.Context(), msg); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert message")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save message")
		return
	}

	h.log.Info().Str("message_uuid", msg.UUID).Str("date", msg.Date).Msg("Message captured")

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{
		"uuid": msg.UUID,
		"date": msg.Date,
	})
}

// ListMessages handles GET /api/messages
func (h *MessagesHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.store.ListMessages(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list messages")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// ImportHandler triggers batch processing.
type ImportHandler struct {
	importer Importer
	log      zerolog.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(importer Importer, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, log: log}
}

// Import handles POST /api/import. The body may carry explicit uuids; an
// empty or missing list means "everything captured today". Per-message
// failures are contained, so the response reports how many messages were
// considered rather than how many landed.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UUIDs []string `json:"uuids"`
	}

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	considered, err := h.importer.ProcessBatch(r.Context(), req.UUIDs)
	if err != nil {
		h.log.Error().Err(err).Msg("Batch import failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Batch import failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]int{
		"considered": considered,
	})
}

// LedgerHandler handles ledger reads.
type LedgerHandler struct {
	ledger LedgerReader
	log    zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(ledger LedgerReader, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, log: log}
}

// ListEntries handles GET /api/ledger
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.ListEntries(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list ledger entries")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list ledger entries")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// MappingsHandler handles party mapping management.
type MappingsHandler struct {
	mappings MappingManager
	log      zerolog.Logger
}

// NewMappingsHandler creates a new mappings handler.
func NewMappingsHandler(mappings MappingManager, log zerolog.Logger) *MappingsHandler {
	return &MappingsHandler{mappings: mappings, log: log}
}

// CreateMapping handles POST /api/mappings. Creating a mapping rewrites
// the party's existing ledger entries as a side effect.
func (h *MappingsHandler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Party       string `json:"party"`
		Label       string `json:"label"`
		Category    string `json:"category"`
		Description string `json:"description"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Party == "" || req.Label == "" || req.Category == "" {
		middleware.WriteError(w, http.StatusBadRequest, "party, label and category are required")
		return
	}

	m := &domain.PartyMapping{
		Party:       req.Party,
		Label:       req.Label,
		Category:    req.Category,
		Description: req.Description,
	}

	if err := h.mappings.Create(r.Context(), m); err != nil {
		if errors.Is(err, domain.ErrMappingExists) {
			middleware.WriteError(w, http.StatusConflict, "Party already has an active mapping")
			return
		}
		h.log.Error().Err(err).Str("party", req.Party).Msg("Failed to create mapping")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create mapping")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{
		"party":    m.Party,
		"label":    m.Label,
		"category": m.Category,
		"status":   string(m.Status),
	})
}

// DeleteMapping handles DELETE /api/mappings/{party}. Existing ledger
// entries for the party revert to the uncategorized fallback.
func (h *MappingsHandler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	party := chi.URLParam(r, "party")

	if err := h.mappings.Remove(r.Context(), party); err != nil {
		if errors.Is(err, domain.ErrMappingNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Mapping not found")
			return
		}
		h.log.Error().Err(err).Str("party", party).Msg("Failed to delete mapping")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete mapping")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"party": party, "status": "deleted"})
}

// DeactivateMapping handles POST /api/mappings/{party}/deactivate.
// Unlike deletion, deactivation leaves past ledger entries untouched.
func (h *MappingsHandler) DeactivateMapping(w http.ResponseWriter, r *http.Request) {
	party := chi.URLParam(r, "party")

	if err := h.mappings.Deactivate(r.Context(), party); err != nil {
		if errors.Is(err, domain.ErrMappingNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Mapping not found")
			return
		}
		h.log.Error().Err(err).Str("party", party).Msg("Failed to deactivate mapping")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to deactivate mapping")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"party": party, "status": string(domain.MappingInactive)})
}

// ListMappings handles GET /api/mappings
func (h *MappingsHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	list, err := h.mappings.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list mappings")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list mappings")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"mappings": list,
		"count":    len(list),
	})
}

// AccountsHandler handles account reads and creation.
type AccountsHandler struct {
	store AccountStore
	log   zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(store AccountStore, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{store: store, log: log}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountName    string `json:"account_name"`
		FetcherName    string `json:"fetcher_name"`
		AccountType    string `json:"account_type"`
		InitialBalance string `json:"initial_balance"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountName == "" || req.FetcherName == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_name and fetcher_name are required")
		return
	}
	if req.InitialBalance == "" {
		req.InitialBalance = "0"
	}

	acc := &domain.Account{
		AccountID:      uuid.New().String(),
		AccountName:    req.AccountName,
		FetcherName:    req.FetcherName,
		AccountType:    req.AccountType,
		InitialBalance: req.InitialBalance,
		CurrentBalance: req.InitialBalance,
		LastUpdate:     time.Now(),
	}

	if err := h.store.InsertAccount(r.Context(), acc); err != nil {
		h.log.Error().Err(err).Str("fetcher_name", req.FetcherName).Msg("Failed to create account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, acc)
}

// JobsHandler handles job status endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		MessageUUID: query.Get("message_uuid"),
		Status:      jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
