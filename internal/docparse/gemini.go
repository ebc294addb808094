package docparse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for document extraction.
const DefaultModelName = "gemini-2.5-flash"

const extractionPrompt = "You are a financial document parser for invoices and receipts.\n\n" +
	"Task:\n" +
	"- Extract the fields below from the attached document.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a single JSON object.\n\n" +
	"The object must have these fields:\n" +
	"- \"name\": string or null (merchant or issuer name)\n" +
	"- \"type\": string, one of \"invoice\", \"expense\" or null\n" +
	"- \"amount\": number or null (total amount due or paid)\n" +
	"- \"currency\": string or null (ISO 4217, e.g. \"EUR\")\n" +
	"- \"date\": string or null, ISO format \"YYYY-MM-DD\"\n" +
	"- \"website\": string or null (issuer domain, no scheme)\n" +
	"- \"description\": string or null (one-line summary)\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"{\" and end with \"}\".\n"

// GeminiParser extracts document fields with the Gemini vision model.
type GeminiParser struct {
	client *genai.Client
	model  string
}

// NewGeminiParser creates a parser backed by the given genai client.
func NewGeminiParser(client *genai.Client) *GeminiParser {
	return &GeminiParser{client: client, model: DefaultModelName}
}

// Parse sends the document to the model and decodes the strict-JSON reply.
func (p *GeminiParser) Parse(ctx context.Context, in Input) (*Extraction, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: in.ContentType,
						Data:     in.Content,
					},
				},
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var raw map[string]any
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshal model output: %v", ErrInvalidFormat, err)
	}

	out, err := transformExtraction(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return out, nil
}

// transformExtraction converts the generic decoded object into a typed
// Extraction, tolerating null and absent fields.
func transformExtraction(raw map[string]any) (*Extraction, error) {
	out := &Extraction{}

	var err error
	if out.Name, err = getString(raw, "name"); err != nil {
		return nil, err
	}
	if out.Type, err = getString(raw, "type"); err != nil {
		return nil, err
	}
	if out.Currency, err = getString(raw, "currency"); err != nil {
		return nil, err
	}
	if out.Website, err = getString(raw, "website"); err != nil {
		return nil, err
	}
	if out.Description, err = getString(raw, "description"); err != nil {
		return nil, err
	}
	out.Currency = strings.ToUpper(out.Currency)

	amount, err := getFloat(raw, "amount")
	if err != nil {
		return nil, err
	}
	if amount != nil {
		d := decimal.NewFromFloat(*amount)
		out.Amount = &d
	}

	dateStr, err := getString(raw, "date")
	if err != nil {
		return nil, err
	}
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", dateStr, err)
		}
		out.Date = &parsed
	}

	return out, nil
}

func getString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
	return strings.TrimSpace(s), nil
}

func getFloat(m map[string]any, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("field %q has type %T, want number or null", key, v)
	}
	return &f, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

var _ Parser = (*GeminiParser)(nil)
