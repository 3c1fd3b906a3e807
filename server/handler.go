// Package server - HTTP surface for the detector.
package server

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
)

// DefaultMaxUploadBytes caps the size of an uploaded image.
const DefaultMaxUploadBytes int64 = 10 << 20

// multipartOverhead is the allowance for multipart headers and boundaries on
// top of the image itself when bounding the request body.
const multipartOverhead int64 = 64 << 10

// Detector is what the handler needs from the detection pipeline.
type Detector interface {
	DetectLabeled(ctx context.Context, img image.Image) ([]detector.Detection, error)
	Stats() inference.Stats
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DetectResponse is the body of a successful detection.
type DetectResponse struct {
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Detections []detector.Detection `json:"detections"`
	ElapsedMS  float64              `json:"elapsed_ms"`
}

// Handler serves detection requests.
type Handler struct {
	detector       Detector
	maxUploadBytes int64
	maxImageEdge   int
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxUploadBytes caps the accepted upload size.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) { h.maxUploadBytes = n }
}

// WithMaxImageEdge shrinks uploads whose longest edge exceeds n pixels before
// detection. Boxes are then reported in the shrunk coordinates given by the
// response width and height. Zero disables shrinking.
func WithMaxImageEdge(n int) Option {
	return func(h *Handler) { h.maxImageEdge = n }
}

// NewHandler creates a handler backed by d.
func NewHandler(d Detector, opts ...Option) *Handler {
	h := &Handler{detector: d, maxUploadBytes: DefaultMaxUploadBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Detect runs the detector on an uploaded image.
//
// Endpoint: POST /v1/detect
// Content-Type: multipart/form-data
// Field: image (JPEG, PNG, GIF, BMP or TIFF, at most 10MB)
func (h *Handler) Detect(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	file, err := c.FormFile("image")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		slog.Warn("request body too large", "limit", tooLarge.Limit, "remote_addr", c.ClientIP())
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "image file is too large"})
		return
	}
	if err != nil {
		slog.Warn("image field missing", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image file is required"})
		return
	}
	if file.Size > h.maxUploadBytes {
		slog.Warn("image too large", "size", file.Size, "remote_addr", c.ClientIP())
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "image file is too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("failed to open uploaded image", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read image"})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close uploaded image", "error", err)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("failed to read uploaded image", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read image"})
		return
	}

	img, err := images.Shrink(data, h.maxImageEdge)
	if err != nil {
		slog.Warn("image decoding failed", "error", err, "filename", file.Filename, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image could not be decoded"})
		return
	}

	start := time.Now()
	detections, err := h.detector.DetectLabeled(c.Request.Context(), img)
	if err != nil {
		slog.Error("detection failed", "error", err, "filename", file.Filename)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "detection failed"})
		return
	}
	elapsed := time.Since(start)
	if detections == nil {
		detections = []detector.Detection{}
	}

	bounds := img.Bounds()
	slog.Info("detection complete",
		"filename", file.Filename,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"detections", len(detections),
		"elapsed", elapsed,
	)

	c.JSON(http.StatusOK, DetectResponse{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Detections: detections,
		ElapsedMS:  float64(elapsed.Microseconds()) / 1000,
	})
}

// Stats reports engine timing.
//
// Endpoint: GET /v1/stats
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.detector.Stats())
}

// Health handles the /healthz endpoint and prevents caching.
func Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
