package video

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ktanaka/receipt-ledger/internal/common"
)

// SampledFrame is one lightweight frame from the sampling pass. Offset is the
// position within the source the frame was taken from; it survives skipped
// seeks, so downstream timestamp correlation stays accurate.
type SampledFrame struct {
	Offset float64 // seconds
	JPEG   []byte
}

// Sampler walks a video at a fixed interval and collects low-fidelity frames
// for bulk analysis. Frame count and resolution are hard-capped so a long
// recording cannot exhaust memory.
type Sampler struct {
	runner    Runner
	ffmpeg    string
	ffprobe   string
	interval  time.Duration
	maxFrames int
	maxDim    int
	quality   int
	seekGrace time.Duration
	logger    *slog.Logger
}

func NewSampler(cfg common.VideoConfig, runner Runner, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	s := &Sampler{
		runner:    runner,
		ffmpeg:    cfg.FFmpegPath,
		ffprobe:   cfg.FFprobePath,
		interval:  cfg.SampleInterval,
		maxFrames: cfg.SampleMaxFrames,
		maxDim:    cfg.SampleDimension,
		quality:   cfg.SampleQuality,
		seekGrace: cfg.SeekGrace,
		logger:    logger,
	}
	if s.ffmpeg == "" {
		s.ffmpeg = "ffmpeg"
	}
	if s.ffprobe == "" {
		s.ffprobe = "ffprobe"
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	if s.maxFrames <= 0 {
		s.maxFrames = 45
	}
	if s.maxDim <= 0 {
		s.maxDim = 800
	}
	if s.quality <= 0 {
		s.quality = 60
	}
	if s.seekGrace <= 0 {
		s.seekGrace = 500 * time.Millisecond
	}
	return s
}

// Sample iterates offsets 0, i, 2i, ... while the offset is inside the video
// and fewer than the frame cap have been collected. A single failed seek is
// skipped (best effort per frame); the pass fails only when the source cannot
// be decoded at all or yields no frames. Frames are returned only after the
// whole pass completes.
func (s *Sampler) Sample(ctx context.Context, path string) ([]SampledFrame, error) {
	start := time.Now()

	duration, err := probeDuration(ctx, s.runner, s.ffprobe, path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	interval := s.interval.Seconds()
	var frames []SampledFrame
	skipped := 0

	for offset := 0.0; offset < duration && len(frames) < s.maxFrames; offset += interval {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		jpeg, err := s.seekFrame(ctx, path, offset)
		if err != nil {
			skipped++
			s.logger.Warn("video.sample.seek_skipped", "path", path, "offset", offset, "error", err)
			continue
		}
		frames = append(frames, SampledFrame{Offset: offset, JPEG: jpeg})
	}

	if len(frames) == 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("no frames decodable (skipped %d seeks)", skipped)}
	}

	s.logger.Info("video.sample.ok",
		"path", path,
		"duration_s", duration,
		"frames", len(frames),
		"skipped", skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return frames, nil
}

// seekFrame decodes a single frame at offset. Each seek gets one interval of
// budget plus the configured grace, so one stalled decode cannot hang the pass.
func (s *Sampler) seekFrame(ctx context.Context, path string, offset float64) ([]byte, error) {
	budget := s.interval + s.seekGrace
	if budget < time.Second {
		budget = time.Second
	}
	seekCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	out, errb, err := s.runner.Run(seekCtx, s.ffmpeg,
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-vf", scaleFilter(s.maxDim),
		"-q:v", strconv.Itoa(jpegQScale(s.quality)),
		"-f", "image2",
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg seek: %w (%s)", err, truncate(string(errb), 256))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame")
	}
	return out, nil
}
