package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ktanaka/receipt-ledger/internal/common"
)

// Extractor re-seeks a video for one higher-quality still frame, used for
// archival and export rather than bulk analysis. It differs from the Sampler
// in fidelity (accurate seek, higher quality) and budget (single frame under
// one hard deadline).
type Extractor struct {
	runner  Runner
	ffmpeg  string
	ffprobe string
	maxDim  int
	quality int
	timeout time.Duration
	logger  *slog.Logger
}

func NewExtractor(cfg common.VideoConfig, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	e := &Extractor{
		runner:  runner,
		ffmpeg:  cfg.FFmpegPath,
		ffprobe: cfg.FFprobePath,
		maxDim:  cfg.ExtractDimension,
		quality: cfg.ExtractQuality,
		timeout: cfg.ExtractTimeout,
		logger:  logger,
	}
	if e.ffmpeg == "" {
		e.ffmpeg = "ffmpeg"
	}
	if e.ffprobe == "" {
		e.ffprobe = "ffprobe"
	}
	if e.maxDim <= 0 {
		e.maxDim = 600
	}
	if e.quality <= 0 {
		e.quality = 80
	}
	if e.timeout <= 0 {
		e.timeout = 20 * time.Second
	}
	return e
}

// ExtractFrame captures one frame at offset (seconds), clamped to the video
// duration. The accurate output-side seek trades speed for the exact frame.
func (e *Extractor) ExtractFrame(ctx context.Context, path string, offset float64) ([]byte, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	duration, err := probeDuration(ctx, e.runner, e.ffprobe, path)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Path: path, Offset: offset}
		}
		return nil, &ExtractionError{Path: path, Offset: offset, Err: err}
	}

	if offset < 0 {
		offset = 0
	}
	if offset > duration {
		offset = duration
	}

	// -ss after -i: decode up to the target so the exact frame is captured.
	out, errb, err := e.runner.Run(ctx, e.ffmpeg,
		"-i", path,
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-frames:v", "1",
		"-vf", scaleFilter(e.maxDim),
		"-q:v", strconv.Itoa(jpegQScale(e.quality)),
		"-f", "image2",
		"-",
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Path: path, Offset: offset}
		}
		return nil, &ExtractionError{Path: path, Offset: offset, Err: fmt.Errorf("ffmpeg: %w (%s)", err, truncate(string(errb), 256))}
	}
	if len(out) == 0 {
		return nil, &ExtractionError{Path: path, Offset: offset, Err: fmt.Errorf("ffmpeg produced no frame")}
	}

	e.logger.Debug("video.extract.ok",
		"path", path,
		"offset_s", offset,
		"bytes", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
