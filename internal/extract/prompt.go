package extract

import (
	"fmt"
	"strings"

	"github.com/reyvanth/smsledger/internal/domain"
)

// buildExtractionPrompt embeds one SMS message body into the fixed
// extraction prompt. The output contract is strict JSON with exactly the
// keys the transform step reads; the account enum comes from
// domain.KnownAccounts so prompt and pipeline never drift.
func buildExtractionPrompt(message string) string {
	var b strings.Builder

	b.WriteString("You are an expert financial data extractor.\n\n")
	b.WriteString("From the given SMS message, extract and return strictly valid JSON with these keys:\n")
	b.WriteString("- amount (number, without currency symbol)\n")
	b.WriteString(fmt.Sprintf("- account (one of: %s)\n", quoteList(domain.KnownAccounts)))
	b.WriteString("- sender_or_receiver (REQUIRED: the party involved - person name, UPI ID, merchant name)\n")
	b.WriteString("- note (any extra relevant info like transaction type, date, or reference)\n")
	b.WriteString("- category (auto-tag expense category: food, travel, etc.)\n")
	b.WriteString("- comment (leave it empty)\n")
	b.WriteString("- type (one of: \"credit\", \"debit\")\n")
	b.WriteString("- date (convert date like '30-05-2025' to '30 May 2025')\n")
	b.WriteString("- time (extract time like '13:04:50' as '13:04')\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- If sender_or_receiver is missing, use:\n")
	b.WriteString(fmt.Sprintf("  - %q for credits\n", domain.PartyBankDeposit))
	b.WriteString(fmt.Sprintf("  - %q for debits\n", domain.PartyBankWithdrawal))
	b.WriteString(fmt.Sprintf("  - %q for internal transfers\n", domain.PartyAccountTransfer))
	b.WriteString("- Return ONLY the raw JSON object. Do NOT wrap it in code fences or Markdown.\n\n")

	b.WriteString("Example input:\n")
	b.WriteString("\"Rs 15.00 debited via UPI on 21-05-2025 17:55:11 to VPA reyvanthrm@okaxis.Ref No 550730368484.Small txns?Use UPI Lite!-Federal Bank\"\n\n")
	b.WriteString("Example output:\n")
	b.WriteString(`{
  "amount": 15,
  "account": "Federal Bank",
  "sender_or_receiver": "reyvanthrm@okaxis",
  "note": "debited via UPI on 21-05-2025 17:55:11 to VPA reyvanthrm@okaxis.Ref No 550730368484.Small txns?Use UPI Lite!",
  "category": "food",
  "comment": "",
  "type": "debit",
  "date": "21 May 2025",
  "time": "17:55"
}` + "\n\n")

	b.WriteString("Now extract JSON from this message:\n")
	b.WriteString(fmt.Sprintf("%q\n", message))

	return b.String()
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
