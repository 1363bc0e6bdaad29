package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reyvanth/smsledger/internal/domain"
)

// fakeCompleter returns canned model output.
type fakeCompleter struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

const validResponse = `{
  "amount": 15,
  "account": "Federal Bank",
  "sender_or_receiver": "reyvanthrm@okaxis",
  "note": "debited via UPI",
  "category": "food",
  "comment": "",
  "type": "debit",
  "date": "21 May 2025",
  "time": "17:55"
}`

func testMessage() *domain.RawMessage {
	return &domain.RawMessage{
		UUID:    "msg-1",
		Message: "Rs 15.00 debited via UPI on 21-05-2025 17:55:11 to VPA reyvanthrm@okaxis.Ref No 550730368484.Small txns?Use UPI Lite!-Federal Bank",
		Date:    "21/05/2025",
	}
}

func TestExtract(t *testing.T) {
	completer := &fakeCompleter{response: validResponse}
	ex := NewExtractor(completer)

	txn, raw, err := ex.Extract(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, validResponse, raw)

	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(15)), "amount = %s", txn.Amount)
	assert.Equal(t, "Federal Bank", txn.Account)
	assert.Equal(t, "reyvanthrm@okaxis", txn.Party)
	assert.Equal(t, domain.TxnDebit, txn.Type)
	assert.Equal(t, "21 May 2025", txn.Date)
	assert.Equal(t, "17:55", txn.Time)
	assert.Equal(t, "food", txn.Category)

	// The prompt must carry the message body.
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "reyvanthrm@okaxis")
}

func TestExtractFencedResponse(t *testing.T) {
	completer := &fakeCompleter{response: "```json\n" + validResponse + "\n```"}
	ex := NewExtractor(completer)

	txn, _, err := ex.Extract(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "reyvanthrm@okaxis", txn.Party)
}

func TestExtractMalformedResponse(t *testing.T) {
	completer := &fakeCompleter{response: "sorry, I could not parse that message"}
	ex := NewExtractor(completer)

	txn, raw, err := ex.Extract(context.Background(), testMessage())
	require.Error(t, err)
	assert.Nil(t, txn)
	// Raw text still comes back so the failure is observable.
	assert.Equal(t, "sorry, I could not parse that message", raw)
}

func TestExtractCompleterFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("model unavailable")}
	ex := NewExtractor(completer)

	_, _, err := ex.Extract(context.Background(), testMessage())
	require.Error(t, err)
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "plain fence",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "surrounding prose",
			input: "Here is the JSON you asked for:\n{\"a\": 1}\nHope that helps!",
			want:  `{"a": 1}`,
		},
		{
			name:  "leading whitespace",
			input: "\n\n  {\"a\": 1}  \n",
			want:  `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.input))
		})
	}
}

func TestTransformModelOutput(t *testing.T) {
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"amount":             15.0,
			"account":            "Federal Bank",
			"sender_or_receiver": "reyvanthrm@okaxis",
			"note":               "debited via UPI",
			"category":           "food",
			"comment":            "",
			"type":               "debit",
			"date":               "21 May 2025",
			"time":               "17:55",
		}
	}

	t.Run("valid", func(t *testing.T) {
		txn, err := transformModelOutput(base())
		require.NoError(t, err)
		assert.Equal(t, "15", txn.Amount.String())
	})

	t.Run("missing amount", func(t *testing.T) {
		obj := base()
		delete(obj, "amount")
		_, err := transformModelOutput(obj)
		require.Error(t, err)
	})

	t.Run("missing party", func(t *testing.T) {
		obj := base()
		delete(obj, "sender_or_receiver")
		_, err := transformModelOutput(obj)
		require.Error(t, err)
	})

	t.Run("string amount", func(t *testing.T) {
		obj := base()
		obj["amount"] = "129.50"
		txn, err := transformModelOutput(obj)
		require.NoError(t, err)
		assert.Equal(t, "129.5", txn.Amount.String())
	})

	t.Run("negative amount becomes magnitude", func(t *testing.T) {
		obj := base()
		obj["amount"] = -42.0
		txn, err := transformModelOutput(obj)
		require.NoError(t, err)
		assert.Equal(t, "42", txn.Amount.String())
	})

	t.Run("invalid type", func(t *testing.T) {
		obj := base()
		obj["type"] = "transfer"
		_, err := transformModelOutput(obj)
		require.Error(t, err)
	})

	t.Run("empty category falls back", func(t *testing.T) {
		obj := base()
		obj["category"] = ""
		txn, err := transformModelOutput(obj)
		require.NoError(t, err)
		assert.Equal(t, FallbackCategory, txn.Category)
	})
}

func TestBuildExtractionPromptListsKnownAccounts(t *testing.T) {
	prompt := buildExtractionPrompt("some message")
	for _, acc := range domain.KnownAccounts {
		assert.Contains(t, prompt, acc)
	}
}
