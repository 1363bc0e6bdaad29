package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/reyvanth/smsledger/internal/domain"
)

// Completer sends a text prompt to a language model and returns the raw
// response text. The interface exists so tests can substitute canned
// output for the Gemini call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiCompleter calls Gemini through the genai SDK.
type GeminiCompleter struct {
	model   string
	timeout time.Duration
}

// NewGeminiCompleter creates a completer for the named model. Every call
// is bounded by timeout so a hung model invocation leaves the message
// unprocessed instead of stalling the batch.
func NewGeminiCompleter(model string, timeout time.Duration) *GeminiCompleter {
	return &GeminiCompleter{model: model, timeout: timeout}
}

// Complete implements Completer.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("Complete: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Complete: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", fmt.Errorf("Complete: empty response from model")
	}

	return rawText, nil
}

// Extractor turns one raw message into a structured transaction candidate.
type Extractor struct {
	completer Completer
}

// NewExtractor creates an Extractor on top of a Completer.
func NewExtractor(completer Completer) *Extractor {
	return &Extractor{completer: completer}
}

// Extract prompts the model with the message body and parses the response.
// The raw model text is returned alongside the candidate so the caller can
// archive it. Any call or parse failure comes back as an error; extraction
// has no side effects, so a failed message is simply retried by the next
// trigger.
func (e *Extractor) Extract(ctx context.Context, msg *domain.RawMessage) (*domain.ExtractedTxn, string, error) {
	prompt := buildExtractionPrompt(msg.Message)

	rawText, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, "", fmt.Errorf("Extract: uuid %s: %w", msg.UUID, err)
	}

	clean := cleanModelJSON(rawText)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, rawText, fmt.Errorf("Extract: uuid %s: unmarshal JSON: %w", msg.UUID, err)
	}

	txn, err := transformModelOutput(parsed)
	if err != nil {
		return nil, rawText, fmt.Errorf("Extract: uuid %s: %w", msg.UUID, err)
	}

	return txn, rawText, nil
}

// cleanModelJSON strips Markdown fences and surrounding prose the model
// may emit despite the prompt's instructions, keeping only the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			// Single-line weirdness; just return as-is.
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON object,
	// try to keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
