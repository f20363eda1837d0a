package receipt

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	receiptsSheet     = "Receipts"
	transactionsSheet = "Transactions"
)

var receiptHeaders = []string{"Scan Date", "Receipt Date", "Merchant", "Subtotal", "Tax", "Total", "Total Derived", "Items", "Confidence", "OCR Engine", "Receipt ID"}

var transactionHeaders = []string{"Date", "Category", "Description", "Amount", "Type", "Receipt ID", "Transaction ID"}

// ExportXLSX builds a workbook with one sheet of receipts and one of transactions
func (s *Service) ExportXLSX() ([]byte, error) {
	receipts, err := s.ListReceipts()
	if err != nil {
		return nil, err
	}
	transactions, err := s.ListTransactions()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the receipts sheet
	if err := f.SetSheetName(f.GetSheetName(0), receiptsSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(transactionsSheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	rows := make([][]any, 0, len(receipts))
	for _, r := range receipts {
		rows = append(rows, []any{
			r.ScannedAt.Format("2006-01-02 15:04"),
			r.Date.Format("2006-01-02"),
			r.Parsed.Merchant,
			r.Parsed.Subtotal.InexactFloat64(),
			r.Parsed.Tax.InexactFloat64(),
			r.Parsed.Total.InexactFloat64(),
			r.TotalDerived,
			len(r.Parsed.Items),
			r.Parsed.Confidence,
			r.OCR.Engine,
			r.ID,
		})
	}
	if err := writeSheet(f, receiptsSheet, receiptHeaders, rows); err != nil {
		return nil, err
	}

	rows = make([][]any, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, []any{
			t.Date.Format("2006-01-02"),
			string(t.Category),
			t.Description,
			t.Amount.InexactFloat64(),
			t.Type,
			t.ReceiptID,
			t.ID,
		})
	}
	if err := writeSheet(f, transactionsSheet, transactionHeaders, rows); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(receiptsSheet, "A", "B", 16)
	_ = f.SetColWidth(receiptsSheet, "C", "C", 28)
	_ = f.SetColWidth(receiptsSheet, "K", "K", 38)
	_ = f.SetColWidth(transactionsSheet, "C", "C", 32)
	_ = f.SetColWidth(transactionsSheet, "F", "G", 38)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("writing %s header: %w", sheet, err)
		}
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, r+2, err)
		}
	}
	return nil
}
