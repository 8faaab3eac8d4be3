// tesseract.go - Tesseract engine using the gosseract client

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine with a fresh gosseract client per call.
// Lines come from the RIL_TEXTLINE iterator level.
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed engine for the given
// language codes (e.g. "tha", "eng").
func NewTesseractEngine(languages ...string) *TesseractEngine {
	return &TesseractEngine{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
	}
}

func (e *TesseractEngine) ModelName() string {
	return "Tesseract " + strings.Join(e.languages, "+")
}

// Recognize performs OCR on a single image file
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}
	return linesFromBoxes(boxes), nil
}

func linesFromBoxes(boxes []gosseract.BoundingBox) []Detection {
	detections := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		detections = append(detections, Detection{
			Text:  text,
			Score: b.Confidence / 100.0,
			Box: FlatBox{
				float64(b.Box.Min.X),
				float64(b.Box.Min.Y),
				float64(b.Box.Max.X),
				float64(b.Box.Max.Y),
			},
		})
	}
	return detections
}

func (e *TesseractEngine) Close() error { return nil }
