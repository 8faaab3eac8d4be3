package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bosocmputer/thai_ocr_api/internal/ocr"
	"github.com/bosocmputer/thai_ocr_api/internal/ocr/engine"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEngine struct {
	detections []engine.Detection
	err        error
	calls      int32
}

func (s *stubEngine) Recognize(ctx context.Context, imagePath string) ([]engine.Detection, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.detections, s.err
}

func (s *stubEngine) ModelName() string { return "PP-OCRv5 Thai" }
func (s *stubEngine) Close() error      { return nil }

type testServer struct {
	router  *gin.Engine
	engine  *stubEngine
	scratch string
}

func newTestServer(t *testing.T, eng *stubEngine) *testServer {
	t.Helper()
	dir := t.TempDir()
	svc := ocr.NewService(eng, ocr.Options{Stager: ocr.NewStager(dir)})
	return &testServer{
		router:  NewRouter(NewHandler(svc), "*"),
		engine:  eng,
		scratch: dir,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) assertNoScratchFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir to be empty, found %d file(s)", len(entries))
	}
}

func (s *testServer) assertEngineCalls(t *testing.T, want int32) {
	t.Helper()
	if got := atomic.LoadInt32(&s.engine.calls); got != want {
		t.Fatalf("engine calls = %d, want %d", got, want)
	}
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", "application/octet-stream")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ocr/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func base64Request(t *testing.T, payload map[string]interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ocr/base64", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body
}

func threeLines() []engine.Detection {
	return []engine.Detection{
		{Text: "ยอดรวม 120 บาท", Score: 0.93, Box: engine.PointBox{{10, 40}, {200, 40}, {200, 60}, {10, 60}}},
		{Text: "ร้านกาแฟ", Score: 0.99, Box: engine.PointBox{{10, 0}, {150, 0}, {150, 20}, {10, 20}}},
		{Text: "ใบเสร็จรับเงิน", Score: 0.88, Box: engine.PointBox{{10, 20}, {180, 20}, {180, 40}, {10, 40}}},
	}
}

func TestUploadReturnsSortedRegions(t *testing.T) {
	srv := newTestServer(t, &stubEngine{detections: threeLines()})

	w := srv.do(uploadRequest(t, "receipt.JPG", []byte("fake-jpeg")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}

	var res ocr.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.RawText != "ร้านกาแฟ\nใบเสร็จรับเงิน\nยอดรวม 120 บาท" {
		t.Fatalf("raw_text = %q", res.RawText)
	}
	if len(res.Regions) != 3 || res.Regions[0].Y != 10 || res.Regions[2].Y != 50 {
		t.Fatalf("unexpected regions: %+v", res.Regions)
	}
	if res.Regions[0].Box != [4]float64{10, 0, 150, 20} {
		t.Fatalf("box = %v", res.Regions[0].Box)
	}
	srv.assertNoScratchFiles(t)
}

func TestUploadRejectsBadExtension(t *testing.T) {
	srv := newTestServer(t, &stubEngine{})

	w := srv.do(uploadRequest(t, "animation.gif", []byte("GIF89a")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decodeError(t, w)
	if body.Error != string(ocr.KindInvalidInput) || !strings.Contains(body.Detail, "'.gif'") {
		t.Fatalf("unexpected error body: %+v", body)
	}
	if body.RequestID == "" {
		t.Fatalf("error body should carry request_id")
	}
	srv.assertEngineCalls(t, 0)
	srv.assertNoScratchFiles(t)
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	srv := newTestServer(t, &stubEngine{})

	w := srv.do(uploadRequest(t, "huge.png", make([]byte, ocr.MaxImageBytes+1)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeError(t, w); body.Error != string(ocr.KindPayloadTooLarge) {
		t.Fatalf("unexpected error body: %+v", body)
	}
	srv.assertEngineCalls(t, 0)
	srv.assertNoScratchFiles(t)
}

func TestUploadMissingFile(t *testing.T) {
	srv := newTestServer(t, &stubEngine{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/ocr/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := srv.do(req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decodeError(t, w).Detail; got != "File is required" {
		t.Fatalf("detail = %q", got)
	}
}

func TestUploadEmptyFilename(t *testing.T) {
	srv := newTestServer(t, &stubEngine{})

	w := srv.do(uploadRequest(t, "", []byte("bytes")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decodeError(t, w).Detail; got != "Filename is required" {
		t.Fatalf("detail = %q", got)
	}
	srv.assertEngineCalls(t, 0)
	srv.assertNoScratchFiles(t)
}

func TestUploadInferenceFailure(t *testing.T) {
	srv := newTestServer(t, &stubEngine{err: errors.New("predictor crashed")})

	w := srv.do(uploadRequest(t, "scan.png", []byte("png")))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	body := decodeError(t, w)
	if body.Error != string(ocr.KindInference) || body.Detail != "OCR inference failed: predictor crashed" {
		t.Fatalf("unexpected error body: %+v", body)
	}
	srv.assertNoScratchFiles(t)
}

func TestBase64DefaultsFilename(t *testing.T) {
	srv := newTestServer(t, &stubEngine{detections: threeLines()})

	w := srv.do(base64Request(t, map[string]interface{}{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("raw image")),
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	srv.assertEngineCalls(t, 1)
	srv.assertNoScratchFiles(t)
}

func TestBase64EmptyResult(t *testing.T) {
	srv := newTestServer(t, &stubEngine{})

	w := srv.do(base64Request(t, map[string]interface{}{
		"image_base64": base64.StdEncoding.EncodeToString([]byte("blank page")),
		"filename":     "blank.webp",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["raw_text"]) != `""` || string(raw["regions"]) != "[]" {
		t.Fatalf("unexpected empty result: %s", w.Body.String())
	}
	if _, ok := raw["elapsed_ms"]; !ok {
		t.Fatalf("elapsed_ms missing: %s", w.Body.String())
	}
}

func TestBase64Rejections(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString([]byte("img"))
	cases := []struct {
		name     string
		payload  map[string]interface{}
		wantKind ocr.ErrorKind
	}{
		{"bad extension", map[string]interface{}{"image_base64": valid, "filename": "doc.pdf"}, ocr.KindInvalidInput},
		{"explicit empty filename", map[string]interface{}{"image_base64": valid, "filename": ""}, ocr.KindInvalidInput},
		{"malformed base64", map[string]interface{}{"image_base64": "@@not-base64@@", "filename": "a.png"}, ocr.KindInvalidInput},
		{"missing image", map[string]interface{}{"filename": "a.png"}, ocr.KindInvalidInput},
		{"empty image", map[string]interface{}{"image_base64": "", "filename": "a.png"}, ocr.KindInvalidInput},
		{"null filename", map[string]interface{}{"image_base64": valid, "filename": nil}, ocr.KindInvalidInput},
		{"numeric filename", map[string]interface{}{"image_base64": valid, "filename": 7}, ocr.KindInvalidInput},
		{"dotfile filename", map[string]interface{}{"image_base64": valid, "filename": ".png"}, ocr.KindInvalidInput},
		{"oversize payload", map[string]interface{}{"image_base64": strings.Repeat("A", ocr.MaxBase64Chars+4)}, ocr.KindPayloadTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &stubEngine{})
			w := srv.do(base64Request(t, tc.payload))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
			if body := decodeError(t, w); body.Error != string(tc.wantKind) {
				t.Fatalf("error = %q, want %q", body.Error, tc.wantKind)
			}
			srv.assertEngineCalls(t, 0)
			srv.assertNoScratchFiles(t)
		})
	}
}

func TestBase64FieldMessages(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString([]byte("img"))
	cases := []struct {
		payload map[string]interface{}
		want    string
	}{
		{map[string]interface{}{"image_base64": ""}, "image_base64 is required"},
		{map[string]interface{}{"image_base64": valid, "filename": nil}, "filename must be a string"},
	}
	for _, tc := range cases {
		srv := newTestServer(t, &stubEngine{})
		w := srv.do(base64Request(t, tc.payload))
		if got := decodeError(t, w).Detail; got != tc.want {
			t.Fatalf("detail = %q, want %q", got, tc.want)
		}
	}
}

func TestBodyCapRejectsOversizeRequests(t *testing.T) {
	t.Run("upload", func(t *testing.T) {
		srv := newTestServer(t, &stubEngine{})
		w := srv.do(uploadRequest(t, "huge.png", make([]byte, MaxUploadBodyBytes+1)))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if body := decodeError(t, w); body.Error != string(ocr.KindPayloadTooLarge) {
			t.Fatalf("unexpected error body: %+v", body)
		}
		srv.assertEngineCalls(t, 0)
		srv.assertNoScratchFiles(t)
	})

	t.Run("base64", func(t *testing.T) {
		srv := newTestServer(t, &stubEngine{})
		body := `{"image_base64":"` + strings.Repeat("A", MaxBase64BodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/ocr/base64", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		w := srv.do(req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if got := decodeError(t, w); got.Error != string(ocr.KindPayloadTooLarge) {
			t.Fatalf("unexpected error body: %+v", got)
		}
		srv.assertEngineCalls(t, 0)
	})
}

func TestBase64MalformedMessage(t *testing.T) {
	srv := newTestServer(t, &stubEngine{})
	w := srv.do(base64Request(t, map[string]interface{}{"image_base64": "abc"}))
	if got := decodeError(t, w).Detail; !strings.HasPrefix(got, "Invalid base64: ") {
		t.Fatalf("detail = %q", got)
	}
}

func TestHealthIsStable(t *testing.T) {
	srv := newTestServer(t, &stubEngine{})

	var first string
	for i := 0; i < 3; i++ {
		w := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if i == 0 {
			first = w.Body.String()
			continue
		}
		if w.Body.String() != first {
			t.Fatalf("health payload changed: %s vs %s", w.Body.String(), first)
		}
	}
	if first != `{"model":"PP-OCRv5 Thai","status":"ok"}` {
		t.Fatalf("health = %s", first)
	}
	srv.assertEngineCalls(t, 0)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &stubEngine{})
	w := srv.do(httptest.NewRequest(http.MethodOptions, "/ocr/upload", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
}
