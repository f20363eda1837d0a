package parsing

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const merchantSearchLines = 5

var merchantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z\s&'.-]{4,40}$`),
	regexp.MustCompile(`^[A-Z][a-zA-Z\s&'.-]{3,40}$`),
	regexp.MustCompile(`^[A-Z]{2,}\s+[A-Z]{2,}`),
	regexp.MustCompile(`^[A-Za-z]+\s*[A-Za-z]*\s*[A-Za-z]*$`),
}

var (
	dollarAmount = regexp.MustCompile(`\$\d`)
	leadingDigit = regexp.MustCompile(`^\d+`)
)

// extractMerchant returns the first of the top lines that looks like a store name
func extractMerchant(lines []Line) string {
	for i, line := range lines {
		if i >= merchantSearchLines {
			break
		}
		text := line.Text
		if dollarAmount.MatchString(text) || leadingDigit.MatchString(text) || utf8.RuneCountInString(text) < 3 {
			continue
		}
		for _, p := range merchantPatterns {
			if p.MatchString(text) {
				return text
			}
		}
	}
	return UnknownMerchant
}

// datePatterns capture the date in their last group. The numeric day/month forms
// must not follow a digit, so the tail of an ISO year never reads as D-D-YY.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:^|\D)(\d{1,2}/\d{1,2}/\d{2,4})`),
	regexp.MustCompile(`(?:^|\D)(\d{1,2}-\d{1,2}-\d{2,4})`),
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(?i)((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2},?\s+\d{4})`),
}

// extractDate returns the first date-like substring in line order, or today as YYYY-MM-DD
func extractDate(lines []Line, now time.Time) string {
	for _, line := range lines {
		for _, p := range datePatterns {
			if m := p.FindStringSubmatch(line.Text); m != nil {
				return m[len(m)-1]
			}
		}
	}
	return now.Format(dateLayout)
}

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"1-2-2006",
	"01-02-06",
	"1-2-06",
	dateLayout,
	"Jan 2, 2006",
	"Jan 2 2006",
}

// NormalizeDate parses an extracted date string. Month-first layouts are assumed.
func NormalizeDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// month names come back in whatever case the receipt printed
	if len(s) >= 3 {
		s = strings.ToUpper(s[:1]) + strings.ToLower(s[1:3]) + s[3:]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var summaryAmount = regexp.MustCompile(`\d+\.\d{2}`)

// ExtractTotals scans lines bottom-up for total, subtotal and tax amounts.
// The largest amount on each line is used, and the largest candidate of each kind wins.
func ExtractTotals(lines []Line) Totals {
	totals := Totals{
		Total:    decimal.Zero,
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Excluded: make(map[int]struct{}),
	}

	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		matches := summaryAmount.FindAllString(line.Text, -1)
		if len(matches) == 0 {
			continue
		}

		value := decimal.Zero
		for _, m := range matches {
			if d, err := decimal.NewFromString(m); err == nil && d.GreaterThan(value) {
				value = d
			}
		}

		lower := strings.ToLower(line.Text)
		switch {
		case (strings.Contains(lower, "total") && !strings.Contains(lower, "sub")) || strings.Contains(lower, "cash"):
			totals.Total = decimal.Max(totals.Total, value)
			totals.Excluded[line.Index] = struct{}{}
		case strings.Contains(lower, "subtotal") || strings.Contains(lower, "sub total"):
			totals.Subtotal = decimal.Max(totals.Subtotal, value)
			totals.Excluded[line.Index] = struct{}{}
		case strings.Contains(lower, "tax"):
			totals.Tax = decimal.Max(totals.Tax, value)
			totals.Excluded[line.Index] = struct{}{}
		}
	}

	return totals
}
