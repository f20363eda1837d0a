package scanning

import "fmt"

// receiptParsePrompt is the shared prompt used by all LLM providers for parsing OCR text
const receiptParsePrompt = `You are given the raw OCR text of a shopping receipt. The text may contain recognition errors, split lines and store boilerplate.

Extract the following:

1. **merchant**: the store or business name, usually on the first lines.
2. **date**: the purchase date as printed on the receipt.
3. **total**, **subtotal**, **tax**: the summary amounts as numbers.
4. **items**: every purchased line item with its description, its amount as a number, and a category.

The category must be exactly one of: Food, Transport, Health, Shopping, Entertainment, Bills, Other.

Return ONLY valid JSON in this exact format:
{
  "merchant": "Store Name",
  "date": "MM/DD/YYYY",
  "total": 0.00,
  "subtotal": 0.00,
  "tax": 0.00,
  "items": [
    {"description": "Item name", "amount": 0.00, "category": "Food"}
  ]
}

Important:
- Do not include totals, subtotals, tax, payment or change lines as items
- Amounts must be numbers, not strings
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON

Receipt text:
%s`

func buildParsePrompt(text string) string {
	return fmt.Sprintf(receiptParsePrompt, text)
}
