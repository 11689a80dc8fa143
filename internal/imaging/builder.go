// Package imaging downloads images, normalizes them for upload and attaches
// them to replies.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"sidehug/internal/metrics"
	"sidehug/internal/model"
)

var (
	// ErrImageTooLarge is returned when the encoded image exceeds the upload
	// limit.
	ErrImageTooLarge = errors.New("image too large")
	// ErrImageProcessing covers fetch, decode and encode failures.
	ErrImageProcessing = errors.New("image processing failed")
)

// Uploader stores encoded image bytes and returns a blob reference.
type Uploader interface {
	UploadBlob(ctx context.Context, data []byte, mimeType string) (model.BlobRef, error)
}

// Config holds image processing settings.
type Config struct {
	Timeout      time.Duration
	MaxDimension int // longest side after resize
	Quality      int // WebP quality 1..100
	MaxBytes     int // encoded size limit
	MaxFetch     int64
}

// Dimensions is the size of a prepared image.
type Dimensions struct {
	Width  int
	Height int
}

// Builder turns image URLs into uploaded attachments.
type Builder struct {
	uploader   Uploader
	maxDim     int
	quality    int
	maxBytes   int
	maxFetch   int64
	httpClient *http.Client
}

// NewBuilder creates a Builder with defaults filled in.
func NewBuilder(up Uploader, cfg Config) *Builder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxDim := cfg.MaxDimension
	if maxDim <= 0 {
		maxDim = 1000
	}
	quality := cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10_000_000
	}
	maxFetch := cfg.MaxFetch
	if maxFetch <= 0 {
		maxFetch = 50 << 20
	}
	return &Builder{
		uploader:   up,
		maxDim:     maxDim,
		quality:    quality,
		maxBytes:   maxBytes,
		maxFetch:   maxFetch,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the raw bytes at url.
func (b *Builder) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("empty image url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxFetch+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > b.maxFetch {
		return nil, fmt.Errorf("image larger than %d bytes", b.maxFetch)
	}
	return data, nil
}

// Prepare downloads url and returns it re-encoded as WebP.
func (b *Builder) Prepare(ctx context.Context, url string) ([]byte, Dimensions, error) {
	raw, err := b.Fetch(ctx, url)
	if err != nil {
		return nil, Dimensions{}, fmt.Errorf("%w: %v", ErrImageProcessing, err)
	}
	return b.Encode(raw)
}

// Encode corrects orientation, scales the image so its longest side is at
// most the configured dimension and encodes it as WebP. Images are never
// upscaled.
func (b *Builder) Encode(raw []byte) ([]byte, Dimensions, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, Dimensions{}, fmt.Errorf("%w: decode: %v", ErrImageProcessing, err)
	}
	if o := Orientation(raw); o != 1 {
		img = Orient(img, o)
	}
	img = fit(img, b.maxDim)
	bounds := img.Bounds()

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(b.quality)}); err != nil {
		return nil, Dimensions{}, fmt.Errorf("%w: encode webp: %v", ErrImageProcessing, err)
	}
	if buf.Len() > b.maxBytes {
		return nil, Dimensions{}, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, buf.Len())
	}
	dim := Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}
	slog.Debug("imaging: encoded",
		"format", format,
		"in_bytes", len(raw),
		"out_bytes", buf.Len(),
		"width", dim.Width,
		"height", dim.Height,
	)
	return buf.Bytes(), dim, nil
}

func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = h * maxDim / w
	} else {
		nh = maxDim
		nw = w * maxDim / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Build prepares and uploads the image at url. Any failure is logged and
// yields nil; callers skip the reply in that case.
func (b *Builder) Build(ctx context.Context, url, alt string) *model.Attachment {
	data, dim, err := b.Prepare(ctx, url)
	if err != nil {
		reason := "processing"
		if errors.Is(err, ErrImageTooLarge) {
			reason = "too_large"
		}
		metrics.ImageFailures.WithLabelValues(reason).Inc()
		slog.Warn("imaging: prepare failed", "url", url, "err", err)
		return nil
	}
	blob, err := b.uploader.UploadBlob(ctx, data, "image/webp")
	if err != nil {
		metrics.ImageFailures.WithLabelValues("upload").Inc()
		slog.Warn("imaging: upload failed", "url", url, "bytes", len(data), "err", err)
		return nil
	}
	return &model.Attachment{Blob: blob, Alt: alt, Width: dim.Width, Height: dim.Height}
}
