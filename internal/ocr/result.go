package ocr

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bosocmputer/thai_ocr_api/internal/ocr/engine"
	"github.com/bosocmputer/thai_ocr_api/internal/processor"
)

// TextRegion is one recognized line with its location
type TextRegion struct {
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
	Y          float64    `json:"y"`
}

// Result is the response of one OCR request
type Result struct {
	RawText   string       `json:"raw_text"`
	Regions   []TextRegion `json:"regions"`
	ElapsedMs float64      `json:"elapsed_ms"`
}

// buildResult shapes engine detections into a Result: boxes normalized,
// regions ordered top-to-bottom by vertical center, ties in engine order.
// scale maps boxes from the image the engine saw back to the uploaded one.
func buildResult(detections []engine.Detection, elapsedMs float64, scale processor.Scale) (*Result, error) {
	result := &Result{Regions: []TextRegion{}, ElapsedMs: elapsedMs}
	if len(detections) == 0 {
		return result, nil
	}

	for i, d := range detections {
		box, err := NormalizeBox(d.Box)
		if err != nil {
			return nil, fmt.Errorf("detection %d (%q): %w", i, d.Text, err)
		}
		box = scale.Apply(box)
		result.Regions = append(result.Regions, TextRegion{
			Text:       d.Text,
			Confidence: clampConfidence(d.Score),
			Box:        box,
			Y:          (box[1] + box[3]) / 2,
		})
	}

	sort.SliceStable(result.Regions, func(i, j int) bool {
		return result.Regions[i].Y < result.Regions[j].Y
	})

	texts := make([]string, len(result.Regions))
	for i, r := range result.Regions {
		texts[i] = r.Text
	}
	result.RawText = strings.Join(texts, "\n")
	return result, nil
}

func clampConfidence(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}
