// handlers.go - HTTP handlers for image upload, base64 OCR and health

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/bosocmputer/thai_ocr_api/internal/common"
	"github.com/bosocmputer/thai_ocr_api/internal/ocr"
	"github.com/gin-gonic/gin"
)

// Recognizer is the part of ocr.Service the handlers depend on
type Recognizer interface {
	RecognizeBytes(ctx context.Context, data []byte, suffix string, reqCtx *common.RequestContext) (*ocr.Result, error)
	ModelName() string
}

// Base64Request is the JSON body of POST /ocr/base64.
// Filename stays raw so an omitted field can default to image.png while null,
// non-strings and "" are rejected.
type Base64Request struct {
	ImageBase64 string          `json:"image_base64"`
	Filename    json.RawMessage `json:"filename"`
}

// filename resolves the requested filename, defaulting when omitted
func (r *Base64Request) filename() (string, error) {
	if len(r.Filename) == 0 {
		return ocr.DefaultBase64Filename, nil
	}
	var name string
	if bytes.Equal(bytes.TrimSpace(r.Filename), []byte("null")) || json.Unmarshal(r.Filename, &name) != nil {
		return "", ocr.InvalidInput("filename must be a string")
	}
	return name, nil
}

// Handler serves the OCR routes
type Handler struct {
	ocr Recognizer
}

// NewHandler creates handlers backed by svc
func NewHandler(svc Recognizer) *Handler {
	return &Handler{ocr: svc}
}

// UploadHandler handles POST /ocr/upload (multipart field "file")
func (h *Handler) UploadHandler(c *gin.Context) {
	reqCtx := requestContext(c)

	reqCtx.StartStep("validate_input")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		verr := formFileError(c, err)
		reqCtx.EndStep("failed", verr)
		respondError(c, reqCtx, verr)
		return
	}
	if fileHeader.Filename == "" {
		verr := ocr.InvalidInput("Filename is required")
		reqCtx.EndStep("failed", verr)
		respondError(c, reqCtx, verr)
		return
	}

	suffix, err := ocr.ValidateExtension(fileHeader.Filename)
	if err != nil {
		reqCtx.EndStep("failed", err)
		respondError(c, reqCtx, err)
		return
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		reqCtx.EndStep("failed", err)
		respondError(c, reqCtx, err)
		return
	}
	if err := ocr.ValidateSize(int64(len(data))); err != nil {
		reqCtx.EndStep("failed", err)
		respondError(c, reqCtx, err)
		return
	}
	reqCtx.EndStep("success", nil)
	reqCtx.LogInfo("upload %s accepted (%d bytes)", fileHeader.Filename, len(data))

	h.recognize(c, reqCtx, data, suffix)
}

// Base64Handler handles POST /ocr/base64
func (h *Handler) Base64Handler(c *gin.Context) {
	reqCtx := requestContext(c)

	reqCtx.StartStep("validate_input")
	var req Base64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		verr := bodyError(err, "Invalid request body: ")
		reqCtx.EndStep("failed", verr)
		respondError(c, reqCtx, verr)
		return
	}

	if req.ImageBase64 == "" {
		verr := ocr.InvalidInput("image_base64 is required")
		reqCtx.EndStep("failed", verr)
		respondError(c, reqCtx, verr)
		return
	}
	filename, err := req.filename()
	if err != nil {
		reqCtx.EndStep("failed", err)
		respondError(c, reqCtx, err)
		return
	}

	suffix, err := ocr.ValidateExtension(filename)
	if err == nil {
		err = ocr.ValidateEncodedSize(len(req.ImageBase64))
	}
	var data []byte
	if err == nil {
		data, err = ocr.DecodeBase64(req.ImageBase64)
	}
	if err == nil {
		err = ocr.ValidateSize(int64(len(data)))
	}
	if err != nil {
		reqCtx.EndStep("failed", err)
		respondError(c, reqCtx, err)
		return
	}
	reqCtx.EndStep("success", nil)
	reqCtx.LogInfo("base64 image %s accepted (%d bytes)", filename, len(data))

	h.recognize(c, reqCtx, data, suffix)
}

// HealthHandler handles GET /health. It never waits on inference.
func (h *Handler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"model":  h.ocr.ModelName(),
	})
}

func (h *Handler) recognize(c *gin.Context, reqCtx *common.RequestContext, data []byte, suffix string) {
	result, err := h.ocr.RecognizeBytes(c.Request.Context(), data, suffix, reqCtx)
	if err != nil {
		respondError(c, reqCtx, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// formFileError distinguishes a missing part from a part sent without a filename.
// Multipart parsing files a part with an empty filename under the form values.
func formFileError(c *gin.Context, err error) error {
	if errors.Is(err, http.ErrMissingFile) {
		if _, ok := c.GetPostForm("file"); ok {
			return ocr.InvalidInput("Filename is required")
		}
		return ocr.InvalidInput("File is required")
	}
	return bodyError(err, "Invalid multipart form: ")
}

// bodyError maps a body read failure, reporting a hit body cap as too large
func bodyError(err error, prefix string) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		oerr := ocr.PayloadTooLarge("Request body too large. Max %d MB", ocr.MaxImageBytes/(1024*1024))
		oerr.Err = err
		return oerr
	}
	return &ocr.Error{Kind: ocr.KindInvalidInput, Message: prefix + err.Error(), Err: err}
}

// readUpload reads at most MaxImageBytes+1 bytes, enough for the size check to fail
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, &ocr.Error{Kind: ocr.KindInvalidInput, Message: "Failed to read upload: " + err.Error(), Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, ocr.MaxImageBytes+1))
	if err != nil {
		return nil, &ocr.Error{Kind: ocr.KindInvalidInput, Message: "Failed to read upload: " + err.Error(), Err: err}
	}
	return data, nil
}

func respondError(c *gin.Context, reqCtx *common.RequestContext, err error) {
	oerr := ocr.AsError(err)
	c.JSON(oerr.StatusCode(), gin.H{
		"error":      oerr.Kind,
		"detail":     oerr.Message,
		"request_id": reqCtx.RequestID,
	})
}
