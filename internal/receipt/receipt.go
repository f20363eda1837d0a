package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-itemizer/internal/parsing"
	"github.com/zombor/receipt-itemizer/internal/scanning"
)

// TransactionTypeExpense is the only transaction type created from receipts
const TransactionTypeExpense = "expense"

// Receipt represents a scanned receipt with its OCR output and parsed contents
type Receipt struct {
	ID             string          `json:"id"`
	Filename       string          `json:"filename"`
	ContentType    string          `json:"content_type"`
	Date           time.Time       `json:"date"`
	OCR            OCR             `json:"ocr"`
	Parsed         parsing.Receipt `json:"parsed"`
	TotalDerived   bool            `json:"total_derived"` // Parsed.Total is the sum of transactions, not the printed total
	TransactionIDs []string        `json:"transaction_ids,omitempty"`
	ScannedAt      time.Time       `json:"scanned_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OCR holds the text recognition details kept with a receipt
type OCR struct {
	Text       string             `json:"text"`
	Engine     string             `json:"engine"`
	Confidence float64            `json:"confidence"`
	Blocks     int                `json:"blocks"`
	Attempts   []scanning.Attempt `json:"attempts"`
}

// Transaction is an expense created from a receipt line item
type Transaction struct {
	ID          string           `json:"id"`
	ReceiptID   string           `json:"receipt_id"`
	ItemID      string           `json:"item_id"`
	Type        string           `json:"type"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Category    parsing.Category `json:"category"`
	Date        time.Time        `json:"date"`
	CreatedAt   time.Time        `json:"created_at"`
}
