// imageprocessor.go - Image preprocessing for better OCR accuracy

package processor

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Scale maps processed-image coordinates back onto the image as uploaded
type Scale struct {
	X, Y float64
}

// Identity leaves coordinates unchanged
var Identity = Scale{X: 1, Y: 1}

// PreprocessFile enhances the image at path in place and returns the factor
// that maps coordinates on the processed image back to the original.
// EXIF orientation is not applied so the pixel grid only changes by scaling.
// Formats imaging cannot write back (WebP) are left untouched.
func PreprocessFile(path string, maxDimension int) (Scale, error) {
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return Identity, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return Identity, fmt.Errorf("failed to open image: %w", err)
	}
	origW, origH := img.Bounds().Dx(), img.Bounds().Dy()

	img = resizeToFit(img, maxDimension)

	// Pick enhancement strength from a quick brightness/contrast estimate
	qualityScore := analyzeImageQuality(img)
	if qualityScore < 50 {
		img = applyStandardEnhancement(img)
	} else {
		img = applyLightEnhancement(img)
	}

	// Write beside the original and swap so a failed save leaves it intact
	ext := filepath.Ext(path)
	tmp := strings.TrimSuffix(path, ext) + ".pre" + ext
	if err := imaging.Save(img, tmp); err != nil {
		os.Remove(tmp)
		return Identity, fmt.Errorf("failed to save processed image: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Identity, fmt.Errorf("failed to replace image: %w", err)
	}

	newW, newH := img.Bounds().Dx(), img.Bounds().Dy()
	if newW == 0 || newH == 0 {
		return Identity, nil
	}
	return Scale{
		X: float64(origW) / float64(newW),
		Y: float64(origH) / float64(newH),
	}, nil
}

// Apply maps an x1, y1, x2, y2 box back to original coordinates
func (s Scale) Apply(box [4]float64) [4]float64 {
	return [4]float64{box[0] * s.X, box[1] * s.Y, box[2] * s.X, box[3] * s.Y}
}

func resizeToFit(img image.Image, maxDimension int) image.Image {
	if maxDimension <= 0 {
		return img
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return img
	}
	if width > height {
		return imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
}

// analyzeImageQuality analyzes image and returns quality score (0-100)
func analyzeImageQuality(img image.Image) float64 {
	bounds := img.Bounds()

	var totalBrightness float64
	minBrightness := 255.0
	maxBrightness := 0.0
	pixelCount := 0

	// Sample pixels (every 10th pixel for performance)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 10 {
			r, g, b, _ := img.At(x, y).RGBA()
			brightness := (float64(r>>8) + float64(g>>8) + float64(b>>8)) / 3.0

			totalBrightness += brightness
			minBrightness = math.Min(minBrightness, brightness)
			maxBrightness = math.Max(maxBrightness, brightness)
			pixelCount++
		}
	}
	if pixelCount == 0 {
		return 0
	}

	avgBrightness := totalBrightness / float64(pixelCount)
	contrast := maxBrightness - minBrightness

	// Ideal: avgBrightness = 128, contrast = 200+
	brightnessScore := 100.0 - math.Abs(avgBrightness-128.0)/1.28
	contrastScore := math.Min(contrast/2.0, 100.0)

	// Weight: 40% brightness, 60% contrast
	return (brightnessScore * 0.4) + (contrastScore * 0.6)
}

// applyLightEnhancement for good quality images.
// Thai tone marks and vowels sit above and below the baseline and are thin,
// so sharpening stays mild.
func applyLightEnhancement(img image.Image) image.Image {
	result := imaging.Sharpen(img, 1.0)
	result = imaging.AdjustContrast(result, 20)
	return result
}

// applyStandardEnhancement for dark or washed-out images
func applyStandardEnhancement(img image.Image) image.Image {
	result := imaging.Sharpen(img, 2.0)
	result = imaging.AdjustContrast(result, 40)
	result = imaging.AdjustBrightness(result, 10)
	result = imaging.Grayscale(result)
	result = imaging.AdjustGamma(result, 1.1)
	return result
}
