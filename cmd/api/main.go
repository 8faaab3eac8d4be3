// main.go - The entry point: config, engine startup and HTTP server lifecycle.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosocmputer/thai_ocr_api/configs"
	"github.com/bosocmputer/thai_ocr_api/internal/api"
	"github.com/bosocmputer/thai_ocr_api/internal/common"
	"github.com/bosocmputer/thai_ocr_api/internal/ocr"
	"github.com/bosocmputer/thai_ocr_api/internal/ocr/engine"
	"github.com/gin-gonic/gin"
)

func main() {
	// Step 0: Load configuration from environment variables
	cfgErr := configs.LoadConfig()

	if err := common.InitLogger(configs.LOG_LEVEL, configs.LOG_FORMAT); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer common.SyncLogger()
	log := common.Logger()

	if cfgErr != nil {
		log.Fatalw("Invalid configuration", "error", cfgErr)
	}
	if !configs.DotenvLoaded {
		log.Infow("No .env file found, using process environment")
	}

	// Step 0.5: Set production mode
	if configs.GIN_MODE == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Step 1: Create the UPLOAD_DIR folder if it doesn't exist
	if err := os.MkdirAll(configs.UPLOAD_DIR, 0755); err != nil {
		log.Fatalw("Failed to create upload directory", "dir", configs.UPLOAD_DIR, "error", err)
	}

	// Step 2: Load the OCR engine once; requests never wait on model loading
	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	eng, err := engine.New(startCtx, engine.Options{
		Name: configs.OCR_ENGINE,
		Paddle: engine.PaddleOptions{
			ExePath:    configs.PADDLE_OCR_BIN,
			ModelsPath: configs.PADDLE_OCR_MODELS,
			ConfigPath: configs.PADDLE_OCR_CONFIG,
			Label:      configs.PADDLE_MODEL_LABEL,
		},
		TesseractLanguages: configs.TesseractLanguages(),
		GeminiAPIKey:       configs.GEMINI_API_KEY,
		GeminiModel:        configs.GEMINI_MODEL_NAME,

		GeminiRequestsPerMinute: configs.GEMINI_RPM,
	})
	cancelStart()
	if err != nil {
		log.Fatalw("Failed to load OCR engine", "engine", configs.OCR_ENGINE, "error", err)
	}

	svc := ocr.NewService(eng, ocr.Options{
		Stager:            ocr.NewStager(configs.UPLOAD_DIR),
		Preprocess:        configs.ENABLE_IMAGE_PREPROCESSING,
		MaxImageDimension: configs.MAX_IMAGE_DIMENSION,
	})
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warnw("Failed to close OCR engine", "error", err)
		}
	}()
	log.Infow("OCR engine ready", "engine", configs.OCR_ENGINE, "model", svc.ModelName())

	// Step 3: Define the API routes
	router := api.NewRouter(api.NewHandler(svc), configs.ALLOWED_ORIGINS)

	// Step 4: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    60 * time.Second, // 20 MB uploads over slow links
		WriteTimeout:   3 * time.Minute,  // Requests may queue behind the inference lock
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		log.Infow("Starting server", "port", configs.PORT)
		log.Info("API Endpoints:")
		log.Info("  POST /ocr/upload")
		log.Info("  POST /ocr/base64")
		log.Info("  GET  /health")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("Failed to start server", "error", err)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
		return
	}

	log.Info("Server exited")
}
