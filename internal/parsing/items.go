package parsing

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// matcherKind identifies a family of item line patterns
type matcherKind int

const (
	// multiLine is a "1@ <price>" line followed by a department label line
	multiLine matcherKind = iota
	// quantity is a line carrying a count, e.g. "APPLES 3 x 1.25" or "2 MUFFIN 4.50"
	quantity
	// standard is a "<description> <price>" line with an optional separator
	standard
)

func (k matcherKind) String() string {
	switch k {
	case multiLine:
		return "multi-line"
	case quantity:
		return "quantity"
	case standard:
		return "standard"
	}
	return "unknown"
}

// lineMatcher pulls a description and amount out of a line via capture groups
type lineMatcher struct {
	kind        matcherKind
	pattern     *regexp.Regexp
	description int
	amount      int
}

func (m lineMatcher) match(text string) (description, amount string, ok bool) {
	groups := m.pattern.FindStringSubmatch(text)
	if groups == nil {
		return "", "", false
	}
	if m.description > 0 {
		description = groups[m.description]
	}
	return description, groups[m.amount], true
}

var (
	multiLineMatcher = lineMatcher{kind: multiLine, pattern: regexp.MustCompile(`^1@\s*(\d+\.?\d{0,2})$`), amount: 1}

	quantityMatchers = []lineMatcher{
		{kind: quantity, pattern: regexp.MustCompile(`^(.+?)\s+\d+\s*x\s*(\d+\.?\d{0,2})$`), description: 1, amount: 2},
		{kind: quantity, pattern: regexp.MustCompile(`^(\d+)\s+(.+?)\s+(\d+\.?\d{0,2})$`), description: 2, amount: 3},
		{kind: quantity, pattern: regexp.MustCompile(`(?i)^(.+?)\s+qty:\s*\d+\s+(\d+\.?\d{0,2})$`), description: 1, amount: 2},
	}

	standardMatchers = []lineMatcher{
		{kind: standard, pattern: regexp.MustCompile(`^(.+?)\s+\$?(\d+\.?\d{0,2})$`), description: 1, amount: 2},
		{kind: standard, pattern: regexp.MustCompile(`^(.+?)\s{2,}(\d+\.?\d{0,2})$`), description: 1, amount: 2},
		{kind: standard, pattern: regexp.MustCompile(`^(.+?)\s*\$(\d+\.?\d{0,2})$`), description: 1, amount: 2},
		{kind: standard, pattern: regexp.MustCompile(`^(.+?)\s*-\s*(\d+\.?\d{0,2})$`), description: 1, amount: 2},
		{kind: standard, pattern: regexp.MustCompile(`^(.+?)\s*@\s*(\d+\.?\d{0,2})$`), description: 1, amount: 2},
	}

	departmentLabel = regexp.MustCompile(`^[A-Za-z][A-Za-z\s&'-]{2,40}$`)
	leadingCount    = regexp.MustCompile(`^\d+\s*`)
	summaryPrefix   = regexp.MustCompile(`(?i)^(tax|total|subtotal|sub-total|change|cash|card|payment|balance|discount|coupon|due)`)
)

var maxItemAmount = decimal.NewFromInt(5000)

// ValidateItem reports whether a description and amount form a plausible line item
func ValidateItem(description string, amount decimal.Decimal) bool {
	description = strings.TrimSpace(description)
	if description == "" || amount.IsZero() {
		return false
	}
	if n := utf8.RuneCountInString(description); n < 2 || n > 50 {
		return false
	}
	if !amount.IsPositive() || amount.GreaterThan(maxItemAmount) {
		return false
	}
	return !summaryPrefix.MatchString(description)
}

// parseAmount converts a captured price into a decimal
func parseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// newItem builds an item, stripping any leading count from the description
func newItem(description string, amount decimal.Decimal, lineNumber int) Item {
	clean := leadingCount.ReplaceAllString(strings.TrimSpace(description), "")
	return Item{
		ID:          fmt.Sprintf("%d-%s-%s", lineNumber, clean, amount.String()),
		Description: clean,
		Amount:      amount,
		Category:    Categorize(clean),
		Selected:    true,
		LineNumber:  lineNumber,
		Confidence:  ItemConfidence(clean, amount),
	}
}

// tryMatchers returns an item from the first matcher whose match validates
func tryMatchers(matchers []lineMatcher, line Line) (Item, bool) {
	for _, m := range matchers {
		description, raw, ok := m.match(line.Text)
		if !ok {
			continue
		}
		amount, ok := parseAmount(raw)
		if !ok || !ValidateItem(description, amount) {
			continue
		}
		return newItem(description, amount, line.Index+1), true
	}
	return Item{}, false
}

// matchDepartmentItem handles a "1@ <price>" line whose description is on the next line
func matchDepartmentItem(line Line, next *Line) (Item, bool) {
	if next == nil {
		return Item{}, false
	}
	_, raw, ok := multiLineMatcher.match(line.Text)
	if !ok || ShouldSkipLine(next.Text) || !departmentLabel.MatchString(next.Text) {
		return Item{}, false
	}
	amount, ok := parseAmount(raw)
	if !ok || !ValidateItem(next.Text, amount) {
		return Item{}, false
	}
	item := newItem(next.Text, amount, line.Index+1)
	if category := MapVendorCategory(next.Text); category != Other {
		item.Category = category
		item.DetectedCategory = next.Text
	}
	return item, true
}

// extractItems walks the lines in order, trying matcher families by priority.
// A matched multi-line item consumes the following line.
func extractItems(lines []Line, totals Totals, mode Mode) ([]Item, []PotentialItem) {
	items := make([]Item, 0)
	potential := make([]PotentialItem, 0)

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if totals.IsExcluded(line.Index) || ShouldSkipLine(line.Text) {
			continue
		}

		if mode == Advanced {
			var next *Line
			if i+1 < len(lines) {
				next = &lines[i+1]
			}
			if item, ok := matchDepartmentItem(line, next); ok {
				items = append(items, item)
				i++
				continue
			}
			if item, ok := tryMatchers(quantityMatchers, line); ok {
				items = append(items, item)
				continue
			}
		}

		matchers := standardMatchers
		if mode == Basic {
			matchers = standardMatchers[:1]
		}
		if item, ok := tryMatchers(matchers, line); ok {
			items = append(items, item)
			continue
		}

		if IsPotentialItem(line.Text) {
			potential = append(potential, PotentialItem{
				Text:       line.Text,
				LineNumber: line.Index + 1,
				Score:      potentialItemScore(line.Text),
			})
		}
	}

	return items, potential
}
