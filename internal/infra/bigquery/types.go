package bigquery

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/reyvanth/smsledger/internal/domain"
)

// Table names within the dataset.
const (
	messagesTable = "raw_messages"
	ledgerTable   = "ledger_entries"
	mappingsTable = "party_mappings"
	accountsTable = "accounts"
)

// MessageRow represents a raw_messages record.
type MessageRow struct {
	UUID          string            `bigquery:"uuid"`
	Message       string            `bigquery:"message"`
	Date          string            `bigquery:"date"`
	ParsedDetails bigquery.NullJSON `bigquery:"parsed_details"`
	CreatedTS     time.Time         `bigquery:"created_ts"`
}

// LedgerRow represents a ledger_entries record. Amount is stored as an
// exact decimal string; uuid is unique across the table.
type LedgerRow struct {
	UUID     string `bigquery:"uuid"`
	Amount   string `bigquery:"amount"`
	Account  string `bigquery:"account"`
	Party    string `bigquery:"party"`
	Category string `bigquery:"category"`
	Label    string `bigquery:"label"`
	Type     string `bigquery:"type"`
	Date     string `bigquery:"date"`
	Time     string `bigquery:"time"`
	Note     string `bigquery:"note"`
	Comment  string `bigquery:"comment"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// MappingRow represents a party_mappings record: one (party, label,
// category) relation row, scoped by status.
type MappingRow struct {
	Party       string `bigquery:"party"`
	Label       string `bigquery:"label"`
	Category    string `bigquery:"category"`
	Status      string `bigquery:"status"`
	Description string `bigquery:"description"`

	CreatedTS time.Time `bigquery:"created_ts"`
	UpdatedTS time.Time `bigquery:"updated_ts"`
}

// AccountRow represents an accounts record. Balances are decimal strings;
// current_balance is only ever touched by the balance-delta update.
type AccountRow struct {
	AccountID      string    `bigquery:"account_id"`
	AccountName    string    `bigquery:"account_name"`
	FetcherName    string    `bigquery:"fetcher_name"`
	AccountType    string    `bigquery:"account_type"`
	InitialBalance string    `bigquery:"initial_balance"`
	CurrentBalance string    `bigquery:"current_balance"`
	LastUpdateTS   time.Time `bigquery:"lastupdate_ts"`
}

func (r *MessageRow) ToDomain() *domain.RawMessage {
	msg := &domain.RawMessage{
		UUID:      r.UUID,
		Message:   r.Message,
		Date:      r.Date,
		CreatedAt: r.CreatedTS,
	}
	if r.ParsedDetails.Valid {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(r.ParsedDetails.JSONVal), &m); err == nil {
			msg.ParsedDetails = m
		}
	}
	return msg
}

func messageRowFromDomain(m *domain.RawMessage) *MessageRow {
	row := &MessageRow{
		UUID:      m.UUID,
		Message:   m.Message,
		Date:      m.Date,
		CreatedTS: m.CreatedAt,
	}
	if m.ParsedDetails != nil {
		if b, err := json.Marshal(m.ParsedDetails); err == nil {
			row.ParsedDetails = bigquery.NullJSON{JSONVal: string(b), Valid: true}
		}
	}
	return row
}

func (r *LedgerRow) ToDomain() *domain.LedgerEntry {
	return &domain.LedgerEntry{
		UUID:      r.UUID,
		Amount:    r.Amount,
		Account:   r.Account,
		Party:     r.Party,
		Category:  r.Category,
		Label:     r.Label,
		Type:      domain.TxnType(r.Type),
		Date:      r.Date,
		Time:      r.Time,
		Note:      r.Note,
		Comment:   r.Comment,
		CreatedAt: r.CreatedTS,
	}
}

func (r *MappingRow) ToDomain() *domain.PartyMapping {
	return &domain.PartyMapping{
		Party:       r.Party,
		Label:       r.Label,
		Category:    r.Category,
		Status:      domain.MappingStatus(r.Status),
		Description: r.Description,
		CreatedAt:   r.CreatedTS,
		UpdatedAt:   r.UpdatedTS,
	}
}

func (r *AccountRow) ToDomain() *domain.Account {
	return &domain.Account{
		AccountID:      r.AccountID,
		AccountName:    r.AccountName,
		FetcherName:    r.FetcherName,
		AccountType:    r.AccountType,
		InitialBalance: r.InitialBalance,
		CurrentBalance: r.CurrentBalance,
		LastUpdate:     r.LastUpdateTS,
	}
}
