package extract

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/reyvanth/smsledger/internal/domain"
)

// FallbackCategory is used when the model returns no usable category
// guess and no curated mapping applies.
const FallbackCategory = "Uncategorized"

// transformModelOutput converts the parsed model JSON into a validated
// ExtractedTxn. A missing required field is a data error and handled like
// any other parse failure by the caller.
func transformModelOutput(obj map[string]interface{}) (*domain.ExtractedTxn, error) {
	amount, err := getAmountField(obj, "amount")
	if err != nil {
		return nil, err
	}

	account, err := getStringField(obj, "account", true)
	if err != nil {
		return nil, err
	}

	party, err := getStringField(obj, "sender_or_receiver", true)
	if err != nil {
		return nil, err
	}

	typeStr, err := getStringField(obj, "type", true)
	if err != nil {
		return nil, err
	}
	txnType, err := domain.ParseTxnType(typeStr)
	if err != nil {
		return nil, err
	}

	date, err := getStringField(obj, "date", true)
	if err != nil {
		return nil, err
	}
	timeStr, err := getStringField(obj, "time", true)
	if err != nil {
		return nil, err
	}

	note, err := getStringField(obj, "note", false)
	if err != nil {
		return nil, err
	}
	category, err := getStringField(obj, "category", false)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(category) == "" {
		category = FallbackCategory
	}
	comment, err := getStringField(obj, "comment", false)
	if err != nil {
		return nil, err
	}

	return &domain.ExtractedTxn{
		// The amount is a magnitude; direction lives in Type.
		Amount:   amount.Abs(),
		Account:  account,
		Party:    party,
		Note:     note,
		Category: category,
		Comment:  comment,
		Type:     txnType,
		Date:     date,
		Time:     timeStr,
	}, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

// getAmountField accepts a JSON number or a numeric string; models emit
// both despite the contract.
func getAmountField(m map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: invalid number %q", key, val)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
