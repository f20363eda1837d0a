package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-itemizer/internal/parsing"
	"github.com/zombor/receipt-itemizer/internal/scanning"
)

// Recognizer turns a receipt image into text
type Recognizer interface {
	Recognize(ctx context.Context, imageData []byte, contentType string) (*scanning.Result, error)
}

// IDGenerator generates unique IDs for receipts and transactions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	recognizer  Recognizer
	parser      parsing.Parser
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUIDs and the system clock
func NewService(db DB, recognizer Recognizer, parser parsing.Parser, storage Storage) *Service {
	return NewServiceWithDeps(db, recognizer, parser, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer Recognizer, parser parsing.Parser, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		recognizer:  recognizer,
		parser:      parser,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// maxPotentialItems caps the unmatched item-like lines kept for review
const maxPotentialItems = 10

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters from phone-generated filenames and truncates them
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(repeatedSpaces.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// discardFile removes a stored file after a failed scan
func (s *Service) discardFile(key string) {
	if err := s.storage.Delete(key); err != nil {
		slog.Warn("Failed to delete file", "filename", key, "error", err)
	}
}

// parse runs the configured parser and trims the potential items for review
func (s *Service) parse(ctx context.Context, text string, blocks []parsing.Block) (*parsing.Receipt, error) {
	parsed, err := s.parser.Parse(ctx, text, blocks)
	if err != nil {
		return nil, err
	}
	parsed.PotentialItems = parsed.TopPotentialItems(maxPotentialItems)
	return parsed, nil
}

// ProcessReceipt stores the image, runs OCR and parses the text into a new receipt
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Receipt, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	ocr, err := s.recognizer.Recognize(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to recognize receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.discardFile(savedPath)
		return nil, fmt.Errorf("recognizing receipt: %w", err)
	}

	parsed, err := s.parse(ctx, ocr.Text, ocr.Blocks)
	if err != nil {
		s.discardFile(savedPath)
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}

	receipt := &Receipt{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		Date:        receiptDate(parsed.Date, now),
		OCR:         ocrDetails(ocr),
		Parsed:      *parsed,
		ScannedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.discardFile(savedPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Receipt processed",
		"id", id,
		"engine", ocr.Engine,
		"merchant", parsed.Merchant,
		"items", len(parsed.Items),
		"confidence", parsed.Confidence,
	)
	return receipt, nil
}

// receiptDate turns the extracted date into a time, falling back to the scan time
func receiptDate(extracted string, scannedAt time.Time) time.Time {
	if d, ok := parsing.NormalizeDate(extracted); ok {
		return d
	}
	return scannedAt
}

// ocrDetails keeps the OCR metadata without the per-attempt layout blocks
func ocrDetails(result *scanning.Result) OCR {
	attempts := make([]scanning.Attempt, len(result.Attempts))
	for i, a := range result.Attempts {
		a.Blocks = nil
		attempts[i] = a
	}
	return OCR{
		Text:       result.Text,
		Engine:     result.Engine,
		Confidence: result.Confidence,
		Blocks:     len(result.Blocks),
		Attempts:   attempts,
	}
}

// ParseText runs the configured parser over text without storing anything
func (s *Service) ParseText(ctx context.Context, text string) (*parsing.Receipt, error) {
	parsed, err := s.parse(ctx, text, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing text: %w", err)
	}
	return parsed, nil
}

// ReparseReceipt runs the parser again over the stored OCR text
func (s *Service) ReparseReceipt(ctx context.Context, id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	if len(receipt.TransactionIDs) > 0 {
		return nil, fmt.Errorf("receipt %s: %w", id, ErrTransactionsExist)
	}

	parsed, err := s.parse(ctx, receipt.OCR.Text, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}

	receipt.Parsed = *parsed
	receipt.Date = receiptDate(parsed.Date, receipt.ScannedAt)
	receipt.TotalDerived = false
	receipt.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	return receipt, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, most recently scanned first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].ScannedAt.After(receipts[j].ScannedAt)
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt and its file. Transactions created from it are kept.
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the image data for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}

// SetItemSelected marks an extracted item as selected or not
func (s *Service) SetItemSelected(id, itemID string, selected bool) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	found := false
	for i := range receipt.Parsed.Items {
		if receipt.Parsed.Items[i].ID == itemID {
			receipt.Parsed.Items[i].Selected = selected
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("item %s on receipt %s: %w", itemID, id, ErrNotFound)
	}

	receipt.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	return receipt, nil
}

// AddTransactions creates an expense transaction for each selected item on a receipt.
// The receipt total is replaced by the sum of those items and flagged as derived.
func (s *Service) AddTransactions(id string) ([]*Transaction, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	if len(receipt.TransactionIDs) > 0 {
		return nil, fmt.Errorf("receipt %s: %w", id, ErrTransactionsExist)
	}

	items := receipt.Parsed.SelectedItems()
	if len(items) == 0 {
		return nil, fmt.Errorf("receipt %s: %w", id, ErrNoSelectedItems)
	}

	now := s.timeSource.Now()
	total := decimal.Zero
	transactions := make([]*Transaction, 0, len(items))
	for _, item := range items {
		transactions = append(transactions, &Transaction{
			ID:          s.idGenerator.Generate(),
			ReceiptID:   receipt.ID,
			ItemID:      item.ID,
			Type:        TransactionTypeExpense,
			Description: item.Description,
			Amount:      item.Amount,
			Category:    item.Category,
			Date:        receipt.Date,
			CreatedAt:   now,
		})
		receipt.TransactionIDs = append(receipt.TransactionIDs, transactions[len(transactions)-1].ID)
		total = total.Add(item.Amount)
	}

	receipt.Parsed.Total = total
	receipt.TotalDerived = true
	receipt.UpdatedAt = now

	if err := s.db.SaveTransactions(receipt, transactions); err != nil {
		return nil, fmt.Errorf("saving transactions: %w", err)
	}
	return transactions, nil
}

// ListTransactions returns all transactions, newest receipt date first
func (s *Service) ListTransactions() ([]*Transaction, error) {
	transactions, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date.After(transactions[j].Date)
	})
	return transactions, nil
}

// CategoryTotal is the amount spent in one category
type CategoryTotal struct {
	Category parsing.Category `json:"category"`
	Amount   decimal.Decimal  `json:"amount"`
}

// ExpensesByCategory sums expense transactions per category, in category order.
// Categories without expenses are left out.
func (s *Service) ExpensesByCategory() ([]CategoryTotal, error) {
	transactions, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	sums := make(map[parsing.Category]decimal.Decimal)
	for _, t := range transactions {
		if t.Type != TransactionTypeExpense {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(t.Amount)
	}

	totals := make([]CategoryTotal, 0, len(sums))
	for _, c := range parsing.Categories {
		if amount, ok := sums[c]; ok {
			totals = append(totals, CategoryTotal{Category: c, Amount: amount})
		}
	}
	return totals, nil
}
