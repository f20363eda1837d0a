package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/receipt-itemizer/internal/parsing"
)

// Gemini implements parsing.Parser using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	clock  parsing.Clock
}

// NewGemini creates a new Gemini parser
func NewGemini(ctx context.Context, apiKey string, modelName string, clock parsing.Clock) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}
	if clock == nil {
		clock = parsing.SystemClock()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &Gemini{
		client: client,
		model:  model,
		clock:  clock,
	}, nil
}

// Parse sends the OCR text to Gemini and converts the JSON reply into a receipt
func (g *Gemini) Parse(ctx context.Context, text string, _ []parsing.Block) (*parsing.Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text to parse")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, genai.Text(buildParsePrompt(text)))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			responseText.WriteString(string(t))
		}
	}

	receipt, err := parseReceiptJSON(responseText.String(), g.clock.Now(), "gemini")
	if err != nil {
		return nil, fmt.Errorf("parsing gemini response: %w", err)
	}
	return receipt, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
