package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/receipt-itemizer/internal/parsing"
)

// Ollama implements parsing.Parser using a local Ollama server
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	clock   parsing.Clock
}

// NewOllama creates a new Ollama parser. Any instruction-tuned text model works,
// e.g. llama3.1, mistral or qwen2.5.
func NewOllama(baseURL string, modelName string, clock parsing.Clock) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "mistral"
	}
	if clock == nil {
		clock = parsing.SystemClock()
	}

	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		clock: clock,
	}
}

// ollamaChatRequest represents the request body for Ollama's chat API
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatResponse represents the response from Ollama's chat API
type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Parse sends the OCR text to Ollama and converts the JSON reply into a receipt
func (o *Ollama) Parse(ctx context.Context, text string, _ []parsing.Block) (*parsing.Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text to parse")
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Format: "json",
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading receipts. You turn noisy OCR text into structured purchase data.",
			},
			{
				Role:    "user",
				Content: buildParsePrompt(text),
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	receipt, err := parseReceiptJSON(chatResp.Message.Content, o.clock.Now(), "ollama")
	if err != nil {
		return nil, fmt.Errorf("parsing ollama response: %w", err)
	}
	return receipt, nil
}

// Close is a no-op for the HTTP client
func (o *Ollama) Close() error {
	return nil
}
