package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ktanaka/receipt-ledger/internal/common"
)

// Gemini implements Analyzer using the Google Gemini vision API.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	logger  *slog.Logger
}

func NewGemini(ctx context.Context, cfg common.AnalysisConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(cfg.Temperature)

	return &Gemini{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// AnalyzeImage sends one normalized receipt image with the account
// determination instruction and returns the structured fields.
func (g *Gemini) AnalyzeImage(ctx context.Context, jpeg []byte) (ReceiptFields, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	parts := []genai.Part{
		genai.Text(buildImagePrompt()),
		genai.ImageData("jpeg", jpeg),
	}

	text, err := g.generate(ctx, parts)
	if err != nil {
		return ReceiptFields{}, &ServiceError{Mode: "image", Err: err}
	}

	fields, err := decodeImageResponse(text)
	if err != nil {
		g.logger.Error("analysis.image.bad_response", "error", err, "response_bytes", len(text))
		return ReceiptFields{}, &ServiceError{Mode: "image", Err: err}
	}

	g.logger.Info("analysis.image.ok",
		"shop", fields.ShopName,
		"date", fields.TransactionDate,
		"amount", fields.Amount,
		"account", fields.AccountTitle,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, nil
}

// AnalyzeVideo sends the sampled frames, each preceded by its timestamp
// marker, and returns the detected receipt candidates.
func (g *Gemini) AnalyzeVideo(ctx context.Context, frames []Frame) ([]VideoCandidate, error) {
	if len(frames) == 0 {
		return nil, &ServiceError{Mode: "video", Err: fmt.Errorf("no frames to analyze")}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	interval := 1.0
	if len(frames) > 1 {
		interval = frames[1].Offset - frames[0].Offset
	}

	parts := make([]genai.Part, 0, 1+2*len(frames))
	parts = append(parts, genai.Text(buildVideoPrompt(interval)))
	for _, f := range frames {
		parts = append(parts, genai.Text(fmt.Sprintf("[Time: %.1fs]", f.Offset)))
		parts = append(parts, genai.ImageData("jpeg", f.JPEG))
	}

	text, err := g.generate(ctx, parts)
	if err != nil {
		return nil, &ServiceError{Mode: "video", Err: err}
	}

	candidates, err := decodeVideoResponse(text)
	if err != nil {
		g.logger.Error("analysis.video.bad_response", "error", err, "response_bytes", len(text))
		return nil, &ServiceError{Mode: "video", Err: err}
	}

	g.logger.Info("analysis.video.ok",
		"frames", len(frames),
		"candidates", len(candidates),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return candidates, nil
}

// generate runs one content generation call and concatenates the text parts.
func (g *Gemini) generate(ctx context.Context, parts []genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("response contained no text")
	}
	return b.String(), nil
}

// Close closes the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
