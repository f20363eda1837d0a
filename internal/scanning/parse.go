package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-itemizer/internal/parsing"
)

// aiItemConfidence is assigned to every item returned by an LLM
const aiItemConfidence = 0.9

// aiReceipt is the JSON shape requested by receiptParsePrompt
type aiReceipt struct {
	Merchant string           `json:"merchant"`
	Date     string           `json:"date"`
	Total    *decimal.Decimal `json:"total"`
	Subtotal *decimal.Decimal `json:"subtotal"`
	Tax      *decimal.Decimal `json:"tax"`
	Items    []aiItem         `json:"items"`
}

type aiItem struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    string           `json:"category"`
}

func amountSchema() map[string]any {
	return map[string]any{"type": []string{"number", "string", "null"}}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

// receiptSchema describes aiReceipt loosely; unusable items are dropped after validation
func receiptSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"merchant": nullableString(),
			"date":     nullableString(),
			"total":    amountSchema(),
			"subtotal": amountSchema(),
			"tax":      amountSchema(),
			"items": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": nullableString(),
						"amount":      amountSchema(),
						"category":    nullableString(),
					},
				},
			},
		},
	}
}

var compiledReceiptSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(receiptSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("receipt.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("receipt.json")
})

// extractJSONObject cuts the outermost JSON object out of an LLM response
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")

	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return "", fmt.Errorf("invalid JSON object in response")
	}
	return text[start : end+1], nil
}

// parseReceiptJSON converts an LLM response into a receipt
func parseReceiptJSON(text string, now time.Time, parser string) (*parsing.Receipt, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	schema, err := compiledReceiptSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling receipt schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}

	var data aiReceipt
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt: %w", err)
	}

	receipt := &parsing.Receipt{
		Merchant:        strings.TrimSpace(data.Merchant),
		Date:            now.Format("2006-01-02"),
		Total:           valueOrZero(data.Total),
		Subtotal:        valueOrZero(data.Subtotal),
		Tax:             valueOrZero(data.Tax),
		Items:           make([]parsing.Item, 0, len(data.Items)),
		PotentialItems:  []parsing.PotentialItem{},
		ProcessingSteps: []string{fmt.Sprintf("Parsing with %s...", parser)},
		Parser:          parser,
	}
	if receipt.Merchant == "" {
		receipt.Merchant = parsing.UnknownMerchant
	}
	if d, ok := parsing.NormalizeDate(data.Date); ok {
		receipt.Date = d.Format("2006-01-02")
	}

	for _, item := range data.Items {
		description := strings.TrimSpace(item.Description)
		if description == "" || item.Amount == nil || item.Amount.IsZero() {
			continue
		}
		n := len(receipt.Items)
		receipt.Items = append(receipt.Items, parsing.Item{
			ID:          fmt.Sprintf("ai-item-%d", n),
			Description: description,
			Amount:      item.Amount.Abs(),
			Category:    parsing.ParseCategory(item.Category),
			Selected:    true,
			LineNumber:  n + 1,
			Confidence:  aiItemConfidence,
		})
	}

	receipt.Confidence = receipt.Score()
	return receipt, nil
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return d.Abs()
}
