package parsing

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SplitLines splits text on newlines, trims each line and drops the empty ones.
// Indices are assigned after dropping, so they match item line numbers minus one.
func SplitLines(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, Line{Index: len(lines), Text: l})
	}
	return lines
}

var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(receipt|thank\s*you|visit|welcome|store|location|phone|address|cashier|clerk|tran\s#)`),
	regexp.MustCompile(`(?i)^(subtotal|sub-total|tax|total|change|cash|card|credit|debit|payment|balance|due|amount\s*tendered)`),
	regexp.MustCompile(`^[\d\s\-/:.]+$`),
	regexp.MustCompile(`(?i)^store\s*#?\d+`),
	regexp.MustCompile(`^\*+$`),
	regexp.MustCompile(`^-+$`),
	regexp.MustCompile(`^=+$`),
	regexp.MustCompile(`^\d+\s+\$\d+`),
	regexp.MustCompile(`^\(\d{3}\)\s*\d{3}[\s\-]?\d{4}$`),
	regexp.MustCompile(`(?i)^\d+\s+[A-Za-z\s]+\s+(way|street|ave|blvd|drive|dr|st)$`),
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}`),
}

// ShouldSkipLine reports whether a line is boilerplate, a separator, a summary line,
// a phone number, an address or a bare date and so can never be an item.
func ShouldSkipLine(line string) bool {
	line = strings.TrimSpace(line)
	for _, p := range skipPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

var (
	letterRun  = regexp.MustCompile(`[A-Za-z]{2,}`)
	anyDigit   = regexp.MustCompile(`\d`)
	priceToken = regexp.MustCompile(`\$?\d+\.?\d{0,2}`)
	wordToken  = regexp.MustCompile(`[A-Za-z]{3,}`)
	multiplier = regexp.MustCompile(`\d+\s*x\s*\d`)
)

// IsPotentialItem reports whether an unmatched line still looks like it could be an item
func IsPotentialItem(line string) bool {
	n := utf8.RuneCountInString(line)
	return letterRun.MatchString(line) && anyDigit.MatchString(line) && n >= 3 && n <= 60
}

// potentialItemScore ranks potential items for manual review
func potentialItemScore(line string) float64 {
	var score float64
	if priceToken.MatchString(line) {
		score += 0.3
	}
	if wordToken.MatchString(line) {
		score += 0.2
	}
	if n := utf8.RuneCountInString(line); n >= 5 && n <= 30 {
		score += 0.2
	}
	if multiplier.MatchString(line) {
		score += 0.3
	}
	return score
}
