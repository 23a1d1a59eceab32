package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"log/slog"
	"time"

	"github.com/gen2brain/heic"
	"golang.org/x/image/draw"

	"github.com/ktanaka/receipt-ledger/internal/common"
)

// NormalizationError reports a failure while decoding, rescaling, or
// re-encoding a still image.
type NormalizationError struct {
	Stage string // "decode" | "scale" | "encode"
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("image normalization failed at %s: %v", e.Stage, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// Normalizer rescales and re-encodes a still image to a bounded resolution
// before it is sent to the analysis service.
type Normalizer struct {
	maxDim  int
	quality int
	logger  *slog.Logger
}

func NewNormalizer(cfg common.MediaConfig, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	maxDim := cfg.MaxDimension
	if maxDim <= 0 {
		maxDim = 1024
	}
	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Normalizer{maxDim: maxDim, quality: quality, logger: logger}
}

// Normalize decodes one image payload, scales it down so the longer side is at
// most the configured bound (aspect ratio preserved), and re-encodes it as
// JPEG at the configured quality. The input is returned re-encoded even when
// no rescale was needed, so callers always hold a JPEG.
func (n *Normalizer) Normalize(ctx context.Context, data []byte) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := decodeImage(data)
	if err != nil {
		return nil, &NormalizationError{Stage: "decode", Err: err}
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, &NormalizationError{Stage: "decode", Err: fmt.Errorf("empty image %dx%d", width, height)}
	}

	targetW, targetH := FitWithin(width, height, n.maxDim)
	out := src
	if targetW != width || targetH != height {
		dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: n.quality}); err != nil {
		return nil, &NormalizationError{Stage: "encode", Err: err}
	}
	if buf.Len() == 0 {
		return nil, &NormalizationError{Stage: "encode", Err: fmt.Errorf("encoder produced no output")}
	}

	n.logger.Debug("media.normalize.ok",
		"in_bytes", len(data),
		"out_bytes", buf.Len(),
		"width", targetW,
		"height", targetH,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// decodeImage decodes JPEG/PNG/GIF via the stdlib and HEIC/HEIF via the pure
// Go decoder (the stdlib cannot handle iPhone captures).
func decodeImage(data []byte) (image.Image, error) {
	if isHEIC(data) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode heic: %w", err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// isHEIC sniffs the ftyp box for HEIC/HEIF brands.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// FitWithin scales (width, height) down so the longer side equals maxDim,
// preserving aspect ratio. Images already within the bound are unchanged.
func FitWithin(width, height, maxDim int) (int, int) {
	if width <= maxDim && height <= maxDim {
		return width, height
	}
	if width >= height {
		scaled := int(float64(height) * float64(maxDim) / float64(width))
		if scaled < 1 {
			scaled = 1
		}
		return maxDim, scaled
	}
	scaled := int(float64(width) * float64(maxDim) / float64(height))
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxDim
}
