package parsing

import (
	"image"
	"time"

	"github.com/shopspring/decimal"
)

// Default values used when a field cannot be extracted
const (
	UnknownMerchant = "Unknown Store"
	dateLayout      = "2006-01-02"
)

// Block is a layout fragment reported by an OCR engine. The parser only counts blocks.
type Block struct {
	Text       string          `json:"text"`
	Bounds     image.Rectangle `json:"bounds"`
	Confidence float64         `json:"confidence"`
}

// Line is a trimmed, non-empty line of receipt text
type Line struct {
	Index int    // 0-based position after empty lines are dropped
	Text  string
}

// Item is a line item extracted from a receipt
type Item struct {
	ID               string          `json:"id"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	Category         Category        `json:"category"`
	Selected         bool            `json:"selected"`
	LineNumber       int             `json:"line_number"` // 1-based
	Confidence       float64         `json:"confidence"`
	DetectedCategory string          `json:"detected_category,omitempty"`
}

// PotentialItem is an item-like line that no extraction pattern accepted
type PotentialItem struct {
	Text       string  `json:"text"`
	LineNumber int     `json:"line_number"`
	Score      float64 `json:"score"`
}

// Totals holds the summary amounts found at the bottom of a receipt.
// Excluded contains the line indices that contributed to any of them.
type Totals struct {
	Total    decimal.Decimal
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Excluded map[int]struct{}
}

// IsExcluded reports whether the line at index was consumed as a total, subtotal or tax line
func (t Totals) IsExcluded(index int) bool {
	_, ok := t.Excluded[index]
	return ok
}

// Receipt is the structured result of parsing receipt text
type Receipt struct {
	Merchant        string          `json:"merchant"`
	Date            string          `json:"date"`
	Total           decimal.Decimal `json:"total"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Items           []Item          `json:"items"`
	PotentialItems  []PotentialItem `json:"potential_items"`
	Confidence      float64         `json:"confidence"`
	ProcessingSteps []string        `json:"processing_steps"`
	Parser          string          `json:"parser"`
}

// TopPotentialItems returns at most n potential items, highest score first
func (r *Receipt) TopPotentialItems(n int) []PotentialItem {
	if n < 0 || n >= len(r.PotentialItems) {
		return r.PotentialItems
	}
	return r.PotentialItems[:n]
}

// Score computes the overall confidence from the merchant, total and items
func (r *Receipt) Score() float64 {
	return parseConfidence(r.Merchant, r.Total, r.Items)
}

// SelectedItems returns the items currently marked as selected
func (r *Receipt) SelectedItems() []Item {
	selected := make([]Item, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Selected {
			selected = append(selected, item)
		}
	}
	return selected
}

// Clock provides the current time for the date default
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns a Clock backed by time.Now
func SystemClock() Clock {
	return systemClock{}
}
