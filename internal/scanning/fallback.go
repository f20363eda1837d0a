package scanning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zombor/receipt-itemizer/internal/parsing"
)

// StepFallback is appended to the processing steps when the primary parser failed
const StepFallback = "AI parsing failed, used heuristic parser"

// Fallback tries a primary parser and falls back to a secondary one on error
type Fallback struct {
	primary   parsing.Parser
	secondary parsing.Parser
	logger    *slog.Logger
}

// NewFallback creates a Fallback parser
func NewFallback(primary, secondary parsing.Parser, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Parse implements parsing.Parser
func (f *Fallback) Parse(ctx context.Context, text string, blocks []parsing.Block) (*parsing.Receipt, error) {
	receipt, err := f.primary.Parse(ctx, text, blocks)
	if err == nil {
		return receipt, nil
	}
	f.logger.Warn("Primary parser failed, falling back", "error", err)

	receipt, err = f.secondary.Parse(ctx, text, blocks)
	if err != nil {
		return nil, fmt.Errorf("fallback parser: %w", err)
	}
	receipt.ProcessingSteps = append(receipt.ProcessingSteps, StepFallback)
	return receipt, nil
}
