package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-itemizer/internal/parsing"
	"github.com/zombor/receipt-itemizer/internal/receipt"
	"github.com/zombor/receipt-itemizer/internal/scanning"
	"github.com/zombor/receipt-itemizer/internal/scanning/tesseract"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-itemizer")
	var (
		port             = fs.IntLong("port", 8080, "HTTP server port")
		dbPath           = fs.StringLong("db", "receipt-itemizer.db", "Database file path")
		storagePath      = fs.StringLong("storage", "./receipts", "Storage directory path")
		tessdataPrefix   = fs.StringLong("tessdata-prefix", "", "Directory containing Tesseract language data (optional)")
		ocrLanguages     = fs.StringLong("ocr-languages", "eng", "Comma separated Tesseract languages")
		multipleAttempts = fs.StringLong("multiple-attempts", "true", "Retry OCR up to three times until the confidence threshold is met")
		threshold        = fs.Float64Long("confidence-threshold", scanning.DefaultConfidenceThreshold, "OCR confidence threshold: 0.5, 0.6, 0.7, 0.8 or 0.9")
		attemptTimeout   = fs.DurationLong("attempt-timeout", 0, "Time limit for a single OCR attempt (0 for none)")
		parseMode        = fs.StringLong("parse-mode", string(parsing.Advanced), "Item extraction mode: 'basic' or 'advanced'")
		aiParser         = fs.StringLong("ai-parser", "none", "AI parser: 'none', 'gemini' or 'ollama'")
		geminiKey        = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel      = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL        = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel      = fs.StringLong("ollama-model", "mistral", "Ollama model name")
		watchDir         = fs.StringLong("watch-dir", "", "Directory to watch for new receipt files (optional)")
		authUser         = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass         = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion      = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_ITEMIZER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode, err := parsing.ParseMode(*parseMode)
	if err != nil {
		slog.Error("Invalid parse mode", "error", err)
		os.Exit(1)
	}

	retry, err := strconv.ParseBool(*multipleAttempts)
	if err != nil {
		slog.Error("Invalid multiple-attempts value", "value", *multipleAttempts, "error", err)
		os.Exit(1)
	}

	settings := scanning.DefaultSettings()
	settings.MultipleAttempts = retry
	settings.ConfidenceThreshold = *threshold
	settings.AttemptTimeout = *attemptTimeout
	if err := settings.Validate(); err != nil {
		slog.Error("Invalid OCR settings", "error", err)
		os.Exit(1)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize OCR
	languages := strings.Split(*ocrLanguages, ",")
	for i := range languages {
		languages[i] = strings.TrimSpace(languages[i])
	}
	slog.Info("Initializing Tesseract...", "languages", languages)
	engine := tesseract.New(*tessdataPrefix, languages...)
	defer engine.Close()
	recognizer := scanning.NewOrchestrator(engine, settings, slog.Default())

	// Initialize parser based on type
	heuristic := parsing.NewHeuristic(parsing.Options{Mode: mode, Clock: parsing.SystemClock()})
	var parser parsing.Parser = heuristic
	switch *aiParser {
	case "none", "":
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini parser...", "model", *geminiModel)
		gemini, err := scanning.NewGemini(ctx, apiKey, *geminiModel, parsing.SystemClock())
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		parser = scanning.NewFallback(gemini, heuristic, slog.Default())
	case "ollama":
		slog.Info("Initializing Ollama parser...", "url", *ollamaURL, "model", *ollamaModel)
		ollama := scanning.NewOllama(*ollamaURL, *ollamaModel, parsing.SystemClock())
		defer ollama.Close()
		parser = scanning.NewFallback(ollama, heuristic, slog.Default())
	default:
		slog.Error("Invalid AI parser", "type", *aiParser, "valid", "none, gemini or ollama")
		os.Exit(1)
	}

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	receiptService := receipt.NewService(db, recognizer, parser, store)

	if *watchDir != "" {
		watcher := receipt.NewWatcher(*watchDir, receiptService, slog.Default())
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("Watcher error", "error", err)
			}
		}()
	}

	// Initialize server
	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	addr := fmt.Sprintf(":%d", *port)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shut down")
}
