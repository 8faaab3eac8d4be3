// router.go - Gin router setup and middleware

package api

import (
	"net/http"

	"github.com/bosocmputer/thai_ocr_api/internal/common"
	"github.com/bosocmputer/thai_ocr_api/internal/ocr"
	"github.com/gin-gonic/gin"
)

const requestContextKey = "reqCtx"

// Request body caps leave room for multipart and JSON framing, so the
// validator still reports exact sizes just over the image limits.
const (
	bodyHeadroom       = 1 << 20
	MaxUploadBodyBytes = ocr.MaxImageBytes + bodyHeadroom
	MaxBase64BodyBytes = ocr.MaxBase64Chars + bodyHeadroom
)

// NewRouter wires the OCR routes, request tracking and CORS
func NewRouter(h *Handler, allowedOrigins string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestTracking())
	router.Use(CORS(allowedOrigins))

	// Bodies are capped by LimitBody, so uploads never spill to disk
	router.MaxMultipartMemory = MaxUploadBodyBytes

	// Root endpoint for SSL verification
	router.GET("/", func(c *gin.Context) {
		c.String(200, "ok")
	})

	router.GET("/health", h.HealthHandler)
	router.POST("/ocr/upload", LimitBody(MaxUploadBodyBytes), h.UploadHandler)
	router.POST("/ocr/base64", LimitBody(MaxBase64BodyBytes), h.Base64Handler)

	return router
}

// RequestTracking attaches a RequestContext to every OCR request and logs its outcome
func RequestTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		reqCtx := common.NewRequestContext(c.Request.Method + " " + path)
		c.Set(requestContextKey, reqCtx)
		c.Header("X-Request-ID", reqCtx.RequestID)

		c.Next()

		if path == "/health" || path == "/" {
			return
		}
		reqCtx.Finish(c.Writer.Status())
	}
}

// LimitBody stops reading the request body after n bytes
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// CORS configures allowed origins for browser clients
func CORS(allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func requestContext(c *gin.Context) *common.RequestContext {
	if v, ok := c.Get(requestContextKey); ok {
		if reqCtx, ok := v.(*common.RequestContext); ok {
			return reqCtx
		}
	}
	reqCtx := common.NewRequestContext(c.Request.Method + " " + c.Request.URL.Path)
	c.Set(requestContextKey, reqCtx)
	return reqCtx
}
