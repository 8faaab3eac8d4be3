// factory.go - Engine factory for creating the configured OCR engine

package engine

import (
	"context"
	"fmt"
	"strings"
)

// Options selects and configures one engine
type Options struct {
	// Name is "paddle", "tesseract" or "gemini"
	Name string

	Paddle PaddleOptions

	TesseractLanguages []string

	GeminiAPIKey string
	GeminiModel  string
	// GeminiRequestsPerMinute paces API calls; <= 0 disables pacing
	GeminiRequestsPerMinute int
}

// New creates the engine named in opts
func New(ctx context.Context, opts Options) (Engine, error) {
	switch strings.ToLower(opts.Name) {
	case "paddle", "paddleocr":
		return NewPaddleEngine(opts.Paddle)

	case "tesseract":
		return NewTesseractEngine(opts.TesseractLanguages...), nil

	case "gemini":
		if opts.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini engine requires an API key")
		}
		return NewGeminiEngine(ctx, opts.GeminiAPIKey, opts.GeminiModel, opts.GeminiRequestsPerMinute)

	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s (supported: paddle, tesseract, gemini)", opts.Name)
	}
}
