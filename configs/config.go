// config.go - Configuration loaded from environment variables

package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	// Server Configuration
	PORT            string
	GIN_MODE        string
	UPLOAD_DIR      string
	ALLOWED_ORIGINS string

	// OCR engine selection: "paddle", "tesseract" or "gemini"
	OCR_ENGINE string

	// PaddleOCR-json configuration
	PADDLE_OCR_BIN     string
	PADDLE_OCR_MODELS  string
	PADDLE_OCR_CONFIG  string
	PADDLE_MODEL_LABEL string

	// Tesseract configuration ("tha+eng" style, same as the tesseract CLI)
	TESSERACT_LANGS string

	// Gemini configuration
	GEMINI_API_KEY    string
	GEMINI_MODEL_NAME string
	GEMINI_RPM        int

	// Image preprocessing settings
	ENABLE_IMAGE_PREPROCESSING bool
	MAX_IMAGE_DIMENSION        int

	// Logging
	LOG_LEVEL  string
	LOG_FORMAT string

	// DotenvLoaded reports whether a .env file was found by LoadConfig
	DotenvLoaded bool
)

// LoadConfig loads configuration from environment variables.
// All variables are populated before validation, so callers can still
// initialize logging when an error is returned.
func LoadConfig() error {
	// Load .env file if exists (for local development)
	DotenvLoaded = godotenv.Load() == nil

	PORT = getEnv("PORT", "8001")
	GIN_MODE = getEnv("GIN_MODE", "")
	UPLOAD_DIR = getEnv("UPLOAD_DIR", os.TempDir())
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")

	OCR_ENGINE = strings.ToLower(getEnv("OCR_ENGINE", "paddle"))

	PADDLE_OCR_BIN = getEnv("PADDLE_OCR_BIN", "/opt/paddleocr/bin/PaddleOCR-json")
	PADDLE_OCR_MODELS = getEnv("PADDLE_OCR_MODELS", "/opt/paddleocr/models")
	PADDLE_OCR_CONFIG = getEnv("PADDLE_OCR_CONFIG", "")
	PADDLE_MODEL_LABEL = getEnv("PADDLE_MODEL_LABEL", "PP-OCRv5 Thai")

	TESSERACT_LANGS = getEnv("TESSERACT_LANGS", "tha+eng")

	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", "")
	GEMINI_MODEL_NAME = getEnv("GEMINI_MODEL_NAME", "gemini-2.5-flash")
	GEMINI_RPM = getEnvInt("GEMINI_RPM", 12)

	// Image Processing (off by default: the engine gets the bytes the client sent)
	ENABLE_IMAGE_PREPROCESSING = getEnvBool("ENABLE_IMAGE_PREPROCESSING", false)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 2500)

	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	LOG_FORMAT = getEnv("LOG_FORMAT", "json")

	return validate()
}

func validate() error {
	switch OCR_ENGINE {
	case "paddle":
		if PADDLE_OCR_BIN == "" {
			return fmt.Errorf("PADDLE_OCR_BIN is required when OCR_ENGINE=paddle")
		}
	case "tesseract":
		if TESSERACT_LANGS == "" {
			return fmt.Errorf("TESSERACT_LANGS is required when OCR_ENGINE=tesseract")
		}
	case "gemini":
		if GEMINI_API_KEY == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when OCR_ENGINE=gemini")
		}
	default:
		return fmt.Errorf("unsupported OCR_ENGINE: %s (supported: paddle, tesseract, gemini)", OCR_ENGINE)
	}
	if MAX_IMAGE_DIMENSION <= 0 {
		return fmt.Errorf("MAX_IMAGE_DIMENSION must be positive, got %d", MAX_IMAGE_DIMENSION)
	}
	return nil
}

// TesseractLanguages splits TESSERACT_LANGS into individual language codes
func TesseractLanguages() []string {
	var langs []string
	for _, l := range strings.Split(TESSERACT_LANGS, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
