// Package tesseract runs receipt OCR through a local Tesseract install.
// It links libtesseract through cgo and is kept apart from the scanning
// package so the rest of the pipeline builds without it.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/zombor/receipt-itemizer/internal/parsing"
	"github.com/zombor/receipt-itemizer/internal/scanning"
)

// minHeight is the image height below which receipts are upscaled before OCR
const minHeight = 1200

// Engine implements scanning.Engine
type Engine struct {
	languages      []string
	tessdataPrefix string
	clientFactory  func() *gosseract.Client
}

var _ scanning.Engine = (*Engine)(nil)

// New creates an Engine. Languages default to English.
func New(tessdataPrefix string, languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{
		languages:      languages,
		tessdataPrefix: tessdataPrefix,
		clientFactory:  gosseract.NewClient,
	}
}

func (e *Engine) Name() string {
	return "Tesseract"
}

// Recognize normalizes the image and runs it through Tesseract
func (e *Engine) Recognize(ctx context.Context, imageData []byte, contentType string) (scanning.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return scanning.Recognition{}, err
	}

	pngData, err := scanning.PrepareImage(imageData, contentType)
	if err != nil {
		return scanning.Recognition{}, err
	}

	prepared, err := preprocess(pngData)
	if err != nil {
		return scanning.Recognition{}, err
	}

	client := e.clientFactory()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return scanning.Recognition{}, fmt.Errorf("setting tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(e.languages...); err != nil {
		return scanning.Recognition{}, fmt.Errorf("setting languages: %w", err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return scanning.Recognition{}, fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return scanning.Recognition{}, fmt.Errorf("recognizing text: %w", err)
	}

	return scanning.Recognition{
		Text:   strings.TrimSpace(text),
		Blocks: textBlocks(client),
	}, ctx.Err()
}

// Close is a no-op; clients are created per recognition
func (e *Engine) Close() error {
	return nil
}

// textBlocks collects block-level layout from the last recognition
func textBlocks(client *gosseract.Client) []parsing.Block {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil
	}
	blocks := make([]parsing.Block, 0, len(boxes))
	for _, b := range boxes {
		blocks = append(blocks, parsing.Block{
			Text:       strings.TrimSpace(b.Word),
			Bounds:     b.Box,
			Confidence: b.Confidence / 100.0,
		})
	}
	return blocks
}

// preprocess converts to grayscale and upscales short images
func preprocess(pngData []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decoding image for OCR: %w", err)
	}

	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < minHeight {
		gray = imaging.Resize(gray, 0, minHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding image for OCR: %w", err)
	}
	return buf.Bytes(), nil
}
