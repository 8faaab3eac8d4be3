// paddle.go - PaddleOCR (PP-OCRv5) engine backed by a PaddleOCR-json process

package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/doraemonkeys/paddleocr"
)

// PaddleOCR-json response codes
const (
	paddleCodeSuccess = 100
	paddleCodeNoText  = 101
)

// PaddleOptions configures the PaddleOCR-json process
type PaddleOptions struct {
	// ExePath is the PaddleOCR-json binary
	ExePath string
	// ModelsPath is the directory holding det/rec/cls inference models
	ModelsPath string
	// ConfigPath selects the language config, e.g. models/config_thai.txt
	ConfigPath string
	// Label is the model name reported by ModelName
	Label string
}

// PaddleEngine runs recognition through one long-lived PaddleOCR-json process
type PaddleEngine struct {
	client *paddleocr.Ppocr
	label  string
}

// NewPaddleEngine starts the PaddleOCR-json process and loads the model
func NewPaddleEngine(opts PaddleOptions) (*PaddleEngine, error) {
	// PaddleOCR-json only reads local models; a bad path fails here instead of
	// inside the child process.
	if err := checkPaddleFiles(opts); err != nil {
		return nil, err
	}

	var extra []string
	if opts.ModelsPath != "" {
		extra = append(extra, "-models_path", opts.ModelsPath)
	}
	if opts.ConfigPath != "" {
		extra = append(extra, "-config_path", opts.ConfigPath)
	}

	p, err := paddleocr.NewPpocr(opts.ExePath, paddleocr.OcrArgs{}, extra...)
	if err != nil {
		return nil, fmt.Errorf("failed to start PaddleOCR-json (%s): %w", opts.ExePath, err)
	}

	label := opts.Label
	if label == "" {
		label = "PP-OCRv5 Thai"
	}
	return &PaddleEngine{client: p, label: label}, nil
}

func checkPaddleFiles(opts PaddleOptions) error {
	if opts.ExePath == "" {
		return fmt.Errorf("paddleocr: executable path is required")
	}
	paths := []struct{ name, path string }{
		{"executable", opts.ExePath},
		{"models directory", opts.ModelsPath},
		{"config", opts.ConfigPath},
	}
	for _, p := range paths {
		if p.path == "" {
			continue
		}
		if _, err := os.Stat(p.path); err != nil {
			return fmt.Errorf("paddleocr: %s %s: %w", p.name, p.path, err)
		}
	}
	return nil
}

func (e *PaddleEngine) ModelName() string { return e.label }

// Recognize sends the image path to the running PaddleOCR-json process.
// The process cannot be interrupted mid-image, so ctx is only checked up front.
func (e *PaddleEngine) Recognize(ctx context.Context, imagePath string) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := e.client.OcrFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("paddleocr: %w", err)
	}

	switch res.Code {
	case paddleCodeSuccess:
	case paddleCodeNoText:
		return nil, nil
	default:
		return nil, fmt.Errorf("paddleocr: code %d: %s", res.Code, res.Msg)
	}

	detections := make([]Detection, 0, len(res.Data))
	for _, d := range res.Data {
		points := make(PointBox, 0, len(d.Rect))
		for _, pt := range d.Rect {
			if len(pt) < 2 {
				return nil, fmt.Errorf("paddleocr: malformed box point %v for %q", pt, d.Text)
			}
			points = append(points, [2]float64{float64(pt[0]), float64(pt[1])})
		}
		detections = append(detections, Detection{
			Text:  d.Text,
			Score: float64(d.Score),
			Box:   points,
		})
	}
	return detections, nil
}

// Close stops the PaddleOCR-json process
func (e *PaddleEngine) Close() error {
	if e.client == nil {
		return nil
	}
	e.client.Close()
	e.client = nil
	return nil
}
