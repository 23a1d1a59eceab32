package video

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// probeDuration returns the container duration in seconds via ffprobe.
func probeDuration(ctx context.Context, r Runner, ffprobe, path string) (float64, error) {
	out, _, err := r.Run(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(out))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", durationStr, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("non-positive duration %f", duration)
	}
	return duration, nil
}

// scaleFilter bounds the longer side at maxDim without upscaling smaller
// sources. -2 rounding keeps even dimensions for the JPEG encoder.
func scaleFilter(maxDim int) string {
	return fmt.Sprintf("scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease:force_divisible_by=2", maxDim, maxDim)
}

// jpegQScale maps a 0..100 quality to ffmpeg's qscale range (2 best, 31 worst).
func jpegQScale(quality int) int {
	if quality <= 0 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	q := 2 + (100-quality)*29/100
	if q > 31 {
		q = 31
	}
	return q
}
