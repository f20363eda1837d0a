package parsing

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	minTypicalAmount = decimal.RequireFromString("0.5")
	maxTypicalAmount = decimal.NewFromInt(200)
	hasLowercase     = regexp.MustCompile(`[a-z]`)
	onlyDigits       = regexp.MustCompile(`^\d+$`)
)

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// ItemConfidence scores how much an extracted item looks like a real purchase
func ItemConfidence(description string, amount decimal.Decimal) float64 {
	confidence := 0.5
	if amount.GreaterThanOrEqual(minTypicalAmount) && amount.LessThanOrEqual(maxTypicalAmount) {
		confidence += 0.2
	}
	if n := utf8.RuneCountInString(description); n >= 3 && n <= 30 {
		confidence += 0.2
	}
	if hasLowercase.MatchString(description) {
		confidence += 0.1
	}
	if onlyDigits.MatchString(description) {
		confidence -= 0.4
	}
	return clamp(confidence)
}

var (
	dollarPrice    = regexp.MustCompile(`\$\d+\.?\d*`)
	receiptWords   = []string{"total", "subtotal", "tax", "thank", "receipt", "store", "date", "time"}
	wordOfThree    = regexp.MustCompile(`[A-Za-z]{3,}`)
	containsNumber = regexp.MustCompile(`\d`)
)

// TextConfidence scores raw OCR output by how receipt-like it reads
func TextConfidence(text string, blockCount int) float64 {
	if text == "" {
		return 0
	}

	confidence := 0.5
	n := utf8.RuneCountInString(text)
	if n > 100 {
		confidence += 0.2
	}
	if n > 200 {
		confidence += 0.1
	}
	if blockCount > 5 {
		confidence += 0.1
	}
	if blockCount > 10 {
		confidence += 0.1
	}
	if containsNumber.MatchString(text) {
		confidence += 0.1
	}
	if dollarPrice.MatchString(text) {
		confidence += 0.2
	}
	if wordOfThree.MatchString(text) {
		confidence += 0.1
	}
	if strings.Contains(text, "\n") {
		confidence += 0.1
	}

	lower := strings.ToLower(text)
	for _, word := range receiptWords {
		if strings.Contains(lower, word) {
			confidence += 0.05
		}
	}

	return clamp(confidence)
}

// parseConfidence scores the overall parse from what was found
func parseConfidence(merchant string, total decimal.Decimal, items []Item) float64 {
	var confidence float64
	if merchant != "" && merchant != UnknownMerchant {
		confidence += 0.2
	}
	if total.IsPositive() {
		confidence += 0.3
	}
	if len(items) > 0 {
		confidence += 0.3
		var sum float64
		for _, item := range items {
			sum += item.Confidence
		}
		confidence += sum / float64(len(items)) * 0.2
	}
	return math.Min(1, confidence)
}
