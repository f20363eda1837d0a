package parsing

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Mode selects how aggressively items are extracted
type Mode string

const (
	// Advanced tries multi-line, quantity and every standard pattern
	Advanced Mode = "advanced"
	// Basic only accepts "<description> <price>" lines
	Basic Mode = "basic"
)

// ParseMode converts a configuration value into a Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Advanced, "":
		return Advanced, nil
	case Basic:
		return Basic, nil
	}
	return "", fmt.Errorf("invalid parse mode %q: must be basic or advanced", s)
}

// Options configures a parse
type Options struct {
	Mode  Mode
	Clock Clock
}

// Processing steps recorded on every heuristic parse, in order
const (
	StepMerchant = "Extracting merchant..."
	StepDate     = "Extracting date..."
	StepTotals   = "Extracting totals..."
	StepItems    = "Extracting items..."
)

// HeuristicParserName is recorded on receipts produced by the heuristic parser
const HeuristicParserName = "heuristic"

// Parse turns OCR text into a structured receipt. It never fails: fields that cannot
// be found fall back to defaults and the confidence reflects what was recovered.
func Parse(text string, blocks []Block, opts Options) *Receipt {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Mode == "" {
		opts.Mode = Advanced
	}

	lines := SplitLines(text)
	steps := make([]string, 0, 4)

	steps = append(steps, StepMerchant)
	merchant := extractMerchant(lines)

	steps = append(steps, StepDate)
	date := extractDate(lines, opts.Clock.Now())

	steps = append(steps, StepTotals)
	totals := ExtractTotals(lines)

	steps = append(steps, StepItems)
	items, potential := extractItems(lines, totals, opts.Mode)

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Confidence > items[j].Confidence
	})
	sort.SliceStable(potential, func(i, j int) bool {
		return potential[i].Score > potential[j].Score
	})

	return &Receipt{
		Merchant:        merchant,
		Date:            date,
		Total:           totals.Total,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Items:           items,
		PotentialItems:  potential,
		Confidence:      parseConfidence(merchant, totals.Total, items),
		ProcessingSteps: steps,
		Parser:          HeuristicParserName,
	}
}

// Parser turns OCR output into a structured receipt
type Parser interface {
	Parse(ctx context.Context, text string, blocks []Block) (*Receipt, error)
}

// Heuristic is the pattern-based Parser
type Heuristic struct {
	opts Options
}

// NewHeuristic creates a Heuristic parser
func NewHeuristic(opts Options) *Heuristic {
	return &Heuristic{opts: opts}
}

// Parse implements Parser. The error is always nil.
func (h *Heuristic) Parse(_ context.Context, text string, blocks []Block) (*Receipt, error) {
	return Parse(text, blocks, h.opts), nil
}
