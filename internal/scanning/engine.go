package scanning

import (
	"context"

	"github.com/zombor/receipt-itemizer/internal/parsing"
)

// Recognition is the raw output of a single OCR pass
type Recognition struct {
	Text   string
	Blocks []parsing.Block
}

// Engine defines the interface for OCR engines
type Engine interface {
	// Name identifies the engine in attempt labels
	Name() string

	// Recognize extracts text from an image
	Recognize(ctx context.Context, imageData []byte, contentType string) (Recognition, error)

	// Close releases engine resources
	Close() error
}
