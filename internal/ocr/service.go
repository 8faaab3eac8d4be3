// service.go - Inference adapter: exclusive engine access and response shaping

package ocr

import (
	"context"
	"sync"
	"time"

	"github.com/bosocmputer/thai_ocr_api/internal/common"
	"github.com/bosocmputer/thai_ocr_api/internal/ocr/engine"
	"github.com/bosocmputer/thai_ocr_api/internal/processor"
)

// Options configures a Service
type Options struct {
	// Stager creates scratch files; defaults to the OS temp dir
	Stager *Stager

	// Preprocess enables in-place image enhancement before inference
	Preprocess        bool
	MaxImageDimension int
}

// Service owns the engine. At most one inference runs at a time;
// other callers wait on mu with no fairness guarantee.
type Service struct {
	engine engine.Engine
	stager *Stager

	preprocess bool
	maxDim     int

	mu sync.Mutex
}

// NewService wraps eng. The service takes ownership: Close closes eng.
func NewService(eng engine.Engine, opts Options) *Service {
	stager := opts.Stager
	if stager == nil {
		stager = NewStager("")
	}
	return &Service{
		engine:     eng,
		stager:     stager,
		preprocess: opts.Preprocess,
		maxDim:     opts.MaxImageDimension,
	}
}

// ModelName reports the loaded model without touching the inference lock
func (s *Service) ModelName() string {
	return s.engine.ModelName()
}

// RecognizeBytes stages data to a scratch file and recognizes it.
// The scratch file never outlives the call.
func (s *Service) RecognizeBytes(ctx context.Context, data []byte, suffix string, reqCtx *common.RequestContext) (*Result, error) {
	reqCtx.StartStep("stage_file")
	path, err := s.stager.Stage(data, suffix)
	if err != nil {
		reqCtx.EndStep("failed", err)
		return nil, InferenceFailed(err)
	}
	reqCtx.EndStep("success", nil)

	return s.RecognizeFile(ctx, path, reqCtx)
}

// RecognizeFile runs OCR on the image at path and always deletes path before
// returning. Cancellation of ctx does not interrupt a started inference.
func (s *Service) RecognizeFile(ctx context.Context, path string, reqCtx *common.RequestContext) (*Result, error) {
	defer func() {
		if err := s.stager.Remove(path); err != nil {
			reqCtx.LogWarning("%v", err)
		}
	}()

	scale := processor.Identity
	if s.preprocess {
		reqCtx.StartStep("preprocess")
		sc, err := processor.PreprocessFile(path, s.maxDim)
		if err != nil {
			// The engine still gets the uploaded bytes.
			reqCtx.EndStep("failed", err)
		} else {
			reqCtx.EndStep("success", nil)
			scale = sc
		}
	}

	reqCtx.StartStep("inference")
	detections, elapsedMs, err := s.infer(context.WithoutCancel(ctx), path)
	if err != nil {
		reqCtx.EndStep("failed", err)
		reqCtx.LogError("OCR inference failed (engine: %s): %v", s.engine.ModelName(), err)
		return nil, InferenceFailed(err)
	}
	reqCtx.EndStep("success", nil)

	result, err := buildResult(detections, elapsedMs, scale)
	if err != nil {
		reqCtx.LogError("OCR inference returned an unusable result: %v", err)
		return nil, InferenceFailed(err)
	}
	reqCtx.LogInfo("recognized %d region(s) in %.1fms", len(result.Regions), result.ElapsedMs)
	return result, nil
}

// infer holds the engine lock for exactly one Recognize call.
// Elapsed time covers the engine call only, not the wait for the lock.
func (s *Service) infer(ctx context.Context, path string) ([]engine.Detection, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	detections, err := s.engine.Recognize(ctx, path)
	elapsedMs := float64(time.Since(start)) / float64(time.Millisecond)
	return detections, elapsedMs, err
}

// Close waits for any running inference and closes the engine
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Close()
}
