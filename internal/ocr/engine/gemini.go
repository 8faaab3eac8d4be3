// gemini.go - Gemini engine returning text lines with bounding boxes

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/bosocmputer/thai_ocr_api/internal/ratelimit"
	"github.com/disintegration/imaging"
	"github.com/google/generative-ai-go/genai"
	_ "golang.org/x/image/webp"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Gemini reports box_2d as [ymin, xmin, ymax, xmax] normalized to 0-1000
const geminiBoxScale = 1000.0

const geminiLinePrompt = `You are an OCR engine for Thai and English documents.
Return every line of text visible in the image, in reading order.
For each line give:
- "text": the exact characters of the line, without translation or correction
- "confidence": your confidence between 0 and 1
- "box_2d": [ymin, xmin, ymax, xmax] of the line, normalized to 0-1000
Do not merge separate lines. Return an empty "lines" array if there is no text.`

// GeminiEngine asks a Gemini model for line-level OCR as structured JSON
type GeminiEngine struct {
	client    *genai.Client
	modelName string
	limiter   *ratelimit.RateLimiter
}

// NewGeminiEngine creates the Gemini client used for all requests.
// requestsPerMinute <= 0 disables client-side pacing.
func NewGeminiEngine(ctx context.Context, apiKey, modelName string, requestsPerMinute int) (*GeminiEngine, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEngine{
		client:    client,
		modelName: modelName,
		limiter:   ratelimit.PerMinute(requestsPerMinute),
	}, nil
}

func (e *GeminiEngine) ModelName() string { return e.modelName }

// Recognize uploads the image inline and parses the JSON line list
func (e *GeminiEngine) Recognize(ctx context.Context, imagePath string) ([]Detection, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	blob, width, height, err := geminiBlob(data, imagePath)
	if err != nil {
		return nil, err
	}

	model := e.client.GenerativeModel(e.modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = createLineSchema()

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gemini: waiting for rate limit: %w", err)
	}
	resp, err := model.GenerateContent(ctx, genai.Text(geminiLinePrompt), blob)
	if err != nil {
		return nil, describeGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}

	var jsonResponse string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			jsonResponse += string(text)
		}
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return nil, fmt.Errorf("gemini: response truncated at max tokens")
	}
	return parseGeminiLines(jsonResponse, width, height)
}

// geminiBlob returns the image as a blob Gemini accepts plus its pixel size.
// TIFF and BMP are not accepted by the API and are re-encoded as PNG.
func geminiBlob(data []byte, imagePath string) (genai.Blob, int, int, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return genai.Blob{}, 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}

	switch format {
	case "png":
		return genai.Blob{MIMEType: "image/png", Data: data}, cfg.Width, cfg.Height, nil
	case "jpeg":
		return genai.Blob{MIMEType: "image/jpeg", Data: data}, cfg.Width, cfg.Height, nil
	case "webp":
		return genai.Blob{MIMEType: "image/webp", Data: data}, cfg.Width, cfg.Height, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return genai.Blob{}, 0, 0, fmt.Errorf("failed to decode %s image %s: %w", format, filepath.Base(imagePath), err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return genai.Blob{}, 0, 0, fmt.Errorf("failed to re-encode image as PNG: %w", err)
	}
	return genai.Blob{MIMEType: "image/png", Data: buf.Bytes()}, cfg.Width, cfg.Height, nil
}

func createLineSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"lines": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text": {
							Type:        genai.TypeString,
							Description: "Exact text of one line",
						},
						"confidence": {
							Type:        genai.TypeNumber,
							Description: "Recognition confidence between 0 and 1",
						},
						"box_2d": {
							Type:        genai.TypeArray,
							Description: "[ymin, xmin, ymax, xmax] normalized to 0-1000",
							Items:       &genai.Schema{Type: genai.TypeNumber},
						},
					},
					Required: []string{"text", "confidence", "box_2d"},
				},
			},
		},
		Required: []string{"lines"},
	}
}

type geminiLine struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Box2D      []float64 `json:"box_2d"`
}

type geminiLineResponse struct {
	Lines []geminiLine `json:"lines"`
}

// parseGeminiLines converts the model's JSON into pixel-space detections
func parseGeminiLines(raw string, width, height int) ([]Detection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("gemini: empty response")
	}
	var parsed geminiLineResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("gemini: failed to parse response: %w", err)
	}

	detections := make([]Detection, 0, len(parsed.Lines))
	for i, line := range parsed.Lines {
		if len(line.Box2D) != 4 {
			return nil, fmt.Errorf("gemini: line %d has %d box values, want 4", i, len(line.Box2D))
		}
		ymin, xmin, ymax, xmax := line.Box2D[0], line.Box2D[1], line.Box2D[2], line.Box2D[3]
		detections = append(detections, Detection{
			Text:  line.Text,
			Score: line.Confidence,
			Box: FlatBox{
				xmin * float64(width) / geminiBoxScale,
				ymin * float64(height) / geminiBoxScale,
				xmax * float64(width) / geminiBoxScale,
				ymax * float64(height) / geminiBoxScale,
			},
		})
	}
	return detections, nil
}

// describeGeminiError prefixes API failures with a category derived from the HTTP status
func describeGeminiError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gemini: %w", err)
	}

	category := "api_error"
	switch {
	case apiErr.Code == 400:
		category = "bad_request"
	case apiErr.Code == 401 || apiErr.Code == 403:
		category = "unauthorized"
	case apiErr.Code == 404:
		category = "model_not_found"
	case apiErr.Code == 429:
		category = "quota_exceeded"
	case apiErr.Code >= 500:
		category = "unavailable"
	}
	return fmt.Errorf("gemini %s (status %d): %w", category, apiErr.Code, err)
}

// Close releases the Gemini client
func (e *GeminiEngine) Close() error {
	return e.client.Close()
}
