package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/zombor/receipt-itemizer/internal/parsing"
)

// ErrOCRExhausted is returned when no OCR attempt produced any text
var ErrOCRExhausted = errors.New("ocr attempts exhausted")

const (
	// DefaultConfidenceThreshold is the confidence above which retries stop
	DefaultConfidenceThreshold = 0.7
	// DefaultRetryDelay is the pause between attempts
	DefaultRetryDelay = time.Second

	multipleAttemptCount = 3
	minAcceptedLength    = 50
)

// ConfidenceThresholds are the selectable retry thresholds
var ConfidenceThresholds = []float64{0.5, 0.6, 0.7, 0.8, 0.9}

// Settings configures the retry behaviour of an Orchestrator
type Settings struct {
	MultipleAttempts    bool
	ConfidenceThreshold float64
	RetryDelay          time.Duration
	// AttemptTimeout bounds a single engine call. Zero means no limit.
	AttemptTimeout time.Duration
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		MultipleAttempts:    true,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		RetryDelay:          DefaultRetryDelay,
	}
}

// Validate checks that the threshold is one of ConfidenceThresholds
func (s Settings) Validate() error {
	for _, t := range ConfidenceThresholds {
		if math.Abs(t-s.ConfidenceThreshold) < 1e-9 {
			return nil
		}
	}
	return fmt.Errorf("invalid confidence threshold %v: must be one of %v", s.ConfidenceThreshold, ConfidenceThresholds)
}

func (s Settings) maxAttempts() int {
	if s.MultipleAttempts {
		return multipleAttemptCount
	}
	return 1
}

// Attempt records the outcome of one OCR pass
type Attempt struct {
	Number     int             `json:"attempt"`
	Text       string          `json:"text,omitempty"`
	Blocks     []parsing.Block `json:"blocks,omitempty"`
	Confidence float64         `json:"confidence"`
	Error      string          `json:"error,omitempty"`
}

// Result is the text chosen from one or more OCR attempts
type Result struct {
	Text       string          `json:"text"`
	Blocks     []parsing.Block `json:"blocks"`
	Confidence float64         `json:"confidence"`
	Engine     string          `json:"engine"`
	Attempts   []Attempt       `json:"attempts"`
}

// Orchestrator retries an OCR engine until the text looks good enough
type Orchestrator struct {
	engine   Engine
	settings Settings
	logger   *slog.Logger
	wait     func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an Orchestrator around engine
func NewOrchestrator(engine Engine, settings Settings, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		engine:   engine,
		settings: settings,
		logger:   logger,
		wait:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recognize runs up to three OCR attempts (one when multiple attempts are disabled).
// It stops early once an attempt has more than 50 characters and beats the threshold,
// otherwise it keeps the most confident attempt that produced text.
func (o *Orchestrator) Recognize(ctx context.Context, imageData []byte, contentType string) (*Result, error) {
	maxAttempts := o.settings.maxAttempts()
	attempts := make([]Attempt, 0, maxAttempts)

	for n := 1; n <= maxAttempts; n++ {
		attempt := o.attempt(ctx, n, imageData, contentType)
		attempts = append(attempts, attempt)

		if attempt.Error == "" && utf8.RuneCountInString(attempt.Text) > minAcceptedLength && attempt.Confidence > o.settings.ConfidenceThreshold {
			o.logger.Info("OCR attempt accepted", "attempt", n, "confidence", attempt.Confidence)
			return o.result(attempt, fmt.Sprintf("%s (Attempt %d)", o.engine.Name(), n), attempts), nil
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("recognizing receipt: %w", err)
		}
		if n < maxAttempts {
			if err := o.wait(ctx, o.settings.RetryDelay); err != nil {
				return nil, fmt.Errorf("waiting between OCR attempts: %w", err)
			}
		}
	}

	best, ok := bestAttempt(attempts)
	if !ok {
		return nil, fmt.Errorf("all %d OCR attempts failed: %w", maxAttempts, ErrOCRExhausted)
	}

	o.logger.Info("Using best OCR attempt", "attempt", best.Number, "confidence", best.Confidence, "attempts", maxAttempts)
	return o.result(best, fmt.Sprintf("%s (Best of %d)", o.engine.Name(), maxAttempts), attempts), nil
}

// attempt runs the engine once. Engine failures are recorded on the attempt.
func (o *Orchestrator) attempt(ctx context.Context, n int, imageData []byte, contentType string) Attempt {
	if o.settings.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.settings.AttemptTimeout)
		defer cancel()
	}

	recognition, err := o.engine.Recognize(ctx, imageData, contentType)
	if err != nil {
		err = fmt.Errorf("OCR attempt %d failed: %w", n, err)
		o.logger.Warn("OCR attempt failed", "attempt", n, "engine", o.engine.Name(), "error", err)
		return Attempt{Number: n, Error: err.Error()}
	}

	return Attempt{
		Number:     n,
		Text:       recognition.Text,
		Blocks:     recognition.Blocks,
		Confidence: parsing.TextConfidence(recognition.Text, len(recognition.Blocks)),
	}
}

func (o *Orchestrator) result(chosen Attempt, engine string, attempts []Attempt) *Result {
	return &Result{
		Text:       chosen.Text,
		Blocks:     chosen.Blocks,
		Confidence: chosen.Confidence,
		Engine:     engine,
		Attempts:   attempts,
	}
}

// bestAttempt folds over the attempts that produced text, keeping the first
// attempt with the highest confidence.
func bestAttempt(attempts []Attempt) (Attempt, bool) {
	best := fold(attempts, Attempt{}, func(best, a Attempt) Attempt {
		if a.Text == "" {
			return best
		}
		if best.Text == "" || a.Confidence > best.Confidence {
			return a
		}
		return best
	})
	return best, best.Text != ""
}

func fold[T, A any](items []T, acc A, f func(A, T) A) A {
	for _, item := range items {
		acc = f(acc, item)
	}
	return acc
}
