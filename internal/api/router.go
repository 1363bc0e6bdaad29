// Package api assembles the HTTP surface. Handlers stay thin; every
// write of consequence goes through the ingest or mappings service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/reyvanth/smsledger/internal/api/handlers"
	"github.com/reyvanth/smsledger/internal/api/middleware"
	"github.com/reyvanth/smsledger/internal/jobs"
)

// Deps holds everything the router needs.
type Deps struct {
	Messages handlers.MessageStore
	Importer handlers.Importer
	Ledger   handlers.LedgerReader
	Mappings handlers.MappingManager
	Accounts handlers.AccountStore
	Jobs     jobs.JobStore
	Location *time.Location
	Log      zerolog.Logger
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	messagesHandler := handlers.NewMessagesHandler(d.Messages, d.Location, d.Log)
	importHandler := handlers.NewImportHandler(d.Importer, d.Log)
	ledgerHandler := handlers.NewLedgerHandler(d.Ledger, d.Log)
	mappingsHandler := handlers.NewMappingsHandler(d.Mappings, d.Log)
	accountsHandler := handlers.NewAccountsHandler(d.Accounts, d.Log)
	jobsHandler := handlers.NewJobsHandler(d.Jobs, d.Log)

	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		r.Route("/messages", func(r chi.Router) {
			r.Post("/", messagesHandler.CreateMessage)
			r.Get("/", messagesHandler.ListMessages)
		})

		r.Post("/import", importHandler.Import)

		r.Get("/ledger", ledgerHandler.ListEntries)

		r.Route("/mappings", func(r chi.Router) {
			r.Post("/", mappingsHandler.CreateMapping)
			r.Get("/", mappingsHandler.ListMappings)
			r.Delete("/{party}", mappingsHandler.DeleteMapping)
			r.Post("/{party}/deactivate", mappingsHandler.DeactivateMapping)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountsHandler.ListAccounts)
			r.Post("/", accountsHandler.CreateAccount)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", jobsHandler.ListJobs)
			r.Get("/{id}", jobsHandler.GetJob)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return r
}
