package processor

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func writeTestImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := uint8(40)
			if (x/4+y/4)%2 == 0 {
				c = 220
			}
			img.Set(x, y, color.NRGBA{R: c, G: c, B: c, A: 255})
		}
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save test image: %v", err)
	}
}

func TestPreprocessFileResizesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	writeTestImage(t, path, 400, 100)

	scale, err := PreprocessFile(path, 200)
	if err != nil {
		t.Fatalf("PreprocessFile() error = %v", err)
	}
	if scale != (Scale{X: 2, Y: 2}) {
		t.Fatalf("scale = %+v, want 2x2", scale)
	}
	if got := scale.Apply([4]float64{0, 0, 200, 50}); got != [4]float64{0, 0, 400, 100} {
		t.Fatalf("Apply() = %v", got)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 50 {
		t.Fatalf("unexpected size %dx%d", b.Dx(), b.Dy())
	}
}

func TestPreprocessFileSkipsWebP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.webp")
	if err := os.WriteFile(path, []byte("RIFF....WEBP"), 0o600); err != nil {
		t.Fatal(err)
	}
	scale, err := PreprocessFile(path, 200)
	if err != nil || scale != Identity {
		t.Fatalf("PreprocessFile() = %+v, %v; want identity, nil", scale, err)
	}
}

func TestPreprocessFileRejectsCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.jpg")
	if err := os.WriteFile(path, []byte("not a jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := PreprocessFile(path, 200); err == nil {
		t.Fatalf("expected error for corrupt image")
	}
}

func TestAnalyzeImageQualityEmptyImage(t *testing.T) {
	if got := analyzeImageQuality(image.NewNRGBA(image.Rect(0, 0, 0, 0))); got != 0 {
		t.Fatalf("analyzeImageQuality() = %v, want 0", got)
	}
}

func TestPreprocessFileSmallImageKeepsScale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.png")
	writeTestImage(t, path, 120, 80)

	scale, err := PreprocessFile(path, 200)
	if err != nil {
		t.Fatalf("PreprocessFile() error = %v", err)
	}
	if scale != Identity {
		t.Fatalf("scale = %+v, want identity", scale)
	}
}
