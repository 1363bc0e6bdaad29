package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Date/time formats used across the persisted shapes. RawMessage dates are
// calendar-day strings ("21/05/2025"); ledger entries carry the normalized
// "21 May 2025" / "17:55" pair produced by extraction.
const (
	MessageDateFormat = "02/01/2006"
	LedgerDateFormat  = "02 Jan 2006"
	LedgerTimeFormat  = "15:04"
)

// TxnType is the direction of a transaction. Sign is carried here; the
// amount itself is always a non-negative magnitude.
type TxnType string

const (
	TxnCredit TxnType = "credit"
	TxnDebit  TxnType = "debit"
)

// ParseTxnType validates a raw type string from the model or an API caller.
func ParseTxnType(s string) (TxnType, error) {
	switch TxnType(s) {
	case TxnCredit:
		return TxnCredit, nil
	case TxnDebit:
		return TxnDebit, nil
	}
	return "", fmt.Errorf("invalid transaction type %q", s)
}

// KnownAccounts is the fixed set of account names the extraction prompt is
// allowed to emit. Each corresponds to an Account row's fetcher name.
var KnownAccounts = []string{
	"Federal Bank",
	"HDFC Bank",
	"Jupiter",
	"OneCard",
	"Diners Club",
	"HDFC Biz",
}

// Fallback counterparties used when the message text names nobody.
const (
	PartyBankDeposit     = "Bank Deposit"
	PartyBankWithdrawal  = "Bank Withdrawal"
	PartyAccountTransfer = "Account Transfer"
)

// RawMessage is a captured SMS-style transaction message. It is short-term
// staging only: rows expire after MessageRetention and the ledger is the
// durable record.
type RawMessage struct {
	UUID          string
	Message       string
	Date          string // MessageDateFormat, day of arrival
	ParsedDetails map[string]interface{}
	CreatedAt     time.Time
}

// MessageRetention is how long a raw message is kept before the purge job
// removes it.
const MessageRetention = 14 * 24 * time.Hour

// ExtractedTxn is the structured candidate the model produces for one raw
// message. It is in-memory only; the ledger writer owns persistence.
type ExtractedTxn struct {
	Amount  decimal.Decimal
	Account string
	Party   string // the "sender_or_receiver" field
	Note    string
	// Category is the model's free-text guess; the resolver may override it.
	Category string
	Comment  string
	Type     TxnType
	Date     string // LedgerDateFormat
	Time     string // LedgerTimeFormat
}

// LedgerEntry is a finalized, categorized transaction. UUID is the source
// message's uuid and is unique across the ledger; that uniqueness is the
// pipeline's idempotency key.
type LedgerEntry struct {
	UUID     string
	Amount   string // decimal magnitude as exact string
	Account  string
	Party    string
	Category string
	Label    string
	Type     TxnType
	Date     string
	Time     string
	Note     string
	Comment  string

	CreatedAt time.Time
}

// MappingStatus scopes a party mapping in or out of resolution without
// deleting it.
type MappingStatus string

const (
	MappingActive   MappingStatus = "ACTIVE"
	MappingInactive MappingStatus = "INACTIVE"
)

// PartyMapping is one curated (party, label, category) row. A party appears
// in at most one ACTIVE mapping; the store rejects writes that would break
// that, which is what makes resolution deterministic.
type PartyMapping struct {
	Party       string
	Label       string
	Category    string
	Status      MappingStatus
	Description string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account is a tracked balance. FetcherName is the stable join key from
// LedgerEntry.Account; CurrentBalance is mutated only through the balance
// updater's signed-delta operation.
type Account struct {
	AccountID      string
	AccountName    string
	FetcherName    string
	AccountType    string
	InitialBalance string
	CurrentBalance string
	LastUpdate     time.Time
}

// Resolution is the final (category, label) pair for a ledger entry.
// Curated reports whether an active mapping supplied it.
type Resolution struct {
	Category string
	Label    string
	Curated  bool
}
