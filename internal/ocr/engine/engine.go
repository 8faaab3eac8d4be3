// engine.go - OCR engine interface for the supported recognition backends

package engine

import "context"

// Engine recognizes text lines in an image file.
// Implementations are not assumed to be safe for concurrent use; callers
// serialize access.
type Engine interface {
	// Recognize runs detection + recognition on the image at imagePath and
	// returns one Detection per text line, in engine order.
	Recognize(ctx context.Context, imagePath string) ([]Detection, error)

	// ModelName identifies the loaded model (reported by /health)
	ModelName() string

	// Close releases the model and any helper process
	Close() error
}

// Detection is one recognized text line as reported by an engine
type Detection struct {
	Text  string
	Score float64
	Box   RawBox
}

// RawBox is the location of a detection in the engine's native form.
// It is either a PointBox or a FlatBox.
type RawBox interface {
	isRawBox()
}

// PointBox is a polygon of [x, y] points, clockwise from top-left.
// PaddleOCR reports quadrilaterals this way.
type PointBox [][2]float64

// FlatBox is an axis-aligned rectangle as x1, y1, x2, y2.
type FlatBox []float64

func (PointBox) isRawBox() {}
func (FlatBox) isRawBox()  {}
