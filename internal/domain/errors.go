package domain

import "errors"

// Store-level sentinel errors. The pipeline branches on these with
// errors.Is, so every store implementation must return them (wrapped or
// not) for the matching condition.
var (
	// ErrDuplicateEntry means the ledger already holds an entry for the
	// message uuid. For the pipeline this is "already processed", not a
	// failure.
	ErrDuplicateEntry = errors.New("ledger entry already exists for uuid")

	// ErrAccountNotFound means no account matches the given fetcher name.
	ErrAccountNotFound = errors.New("account not found")

	// ErrMappingExists means the party already has an active mapping.
	ErrMappingExists = errors.New("party mapping already exists")

	// ErrMappingNotFound means no mapping exists for the party.
	ErrMappingNotFound = errors.New("party mapping not found")
)
