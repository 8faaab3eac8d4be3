package ocr

import (
	"fmt"
	"math"

	"github.com/bosocmputer/thai_ocr_api/internal/ocr/engine"
)

// NormalizeBox reduces an engine box to x1, y1, x2, y2.
// A polygon becomes its axis-aligned bounding rectangle.
func NormalizeBox(box engine.RawBox) ([4]float64, error) {
	switch b := box.(type) {
	case engine.FlatBox:
		if len(b) != 4 {
			return [4]float64{}, fmt.Errorf("box has %d values, want 4", len(b))
		}
		return [4]float64{b[0], b[1], b[2], b[3]}, nil

	case engine.PointBox:
		if len(b) == 0 {
			return [4]float64{}, fmt.Errorf("box has no points")
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, p := range b {
			minX = math.Min(minX, p[0])
			minY = math.Min(minY, p[1])
			maxX = math.Max(maxX, p[0])
			maxY = math.Max(maxY, p[1])
		}
		return [4]float64{minX, minY, maxX, maxY}, nil

	case nil:
		return [4]float64{}, fmt.Errorf("missing box")

	default:
		return [4]float64{}, fmt.Errorf("unsupported box type %T", box)
	}
}
