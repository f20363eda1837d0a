package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zombor/receipt-itemizer/internal/scanning"
)

const (
	processedDir    = "processed"
	failedDir       = "failed"
	defaultDebounce = 500 * time.Millisecond
)

// Processor scans a receipt file
type Processor interface {
	ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Receipt, error)
}

// Watcher scans receipt images dropped into an inbox directory.
// Files are moved into processed/ or failed/ afterwards.
type Watcher struct {
	dir       string
	processor Processor
	debounce  time.Duration
	logger    *slog.Logger
}

// NewWatcher creates a Watcher for dir
func NewWatcher(dir string, processor Processor, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:       dir,
		processor: processor,
		debounce:  defaultDebounce,
		logger:    logger,
	}
}

// Run processes existing files, then watches for new ones until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0755); err != nil {
			return fmt.Errorf("creating %s directory: %w", sub, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.process(ctx, filepath.Join(w.dir, e.Name()))
		}
	}

	w.logger.Info("Watching for receipts", "dir", w.dir)

	ready := make(chan string, 64)
	timers := map[string]*time.Timer{}
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if _, supported := scanning.ContentTypeFor(event.Name); !supported {
				continue
			}
			// writes arrive in bursts; wait for the file to settle
			path := event.Name
			if t, exists := timers[path]; exists {
				t.Reset(w.debounce)
				continue
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})
		case path := <-ready:
			delete(timers, path)
			w.process(ctx, path)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)
		}
	}
}

// process scans one file and files it away
func (w *Watcher) process(ctx context.Context, path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	contentType, supported := scanning.ContentTypeFor(name)
	if !supported {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Error("Failed to read receipt file", "path", path, "error", err)
		}
		return
	}

	dest := processedDir
	receipt, err := w.processor.ProcessReceipt(ctx, name, data, contentType)
	if err != nil {
		dest = failedDir
		w.logger.Error("Failed to process receipt file", "path", path, "error", err)
	} else {
		w.logger.Info("Processed receipt file", "path", path, "id", receipt.ID)
	}

	if err := os.Rename(path, filepath.Join(w.dir, dest, name)); err != nil {
		w.logger.Error("Failed to move receipt file", "path", path, "error", err)
	}
}
