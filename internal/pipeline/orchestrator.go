package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ktanaka/receipt-ledger/constants"
	"github.com/ktanaka/receipt-ledger/internal/analysis"
	"github.com/ktanaka/receipt-ledger/internal/ingest"
	"github.com/ktanaka/receipt-ledger/internal/record"
	"github.com/ktanaka/receipt-ledger/internal/video"
)

// Normalizer bounds and re-encodes a still image.
type Normalizer interface {
	Normalize(ctx context.Context, data []byte) ([]byte, error)
}

// FrameSampler produces the lightweight sampling pass over a video.
type FrameSampler interface {
	Sample(ctx context.Context, path string) ([]video.SampledFrame, error)
}

// FrameExtractor captures one archival-quality frame at an offset.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, path string, offset float64) ([]byte, error)
}

// Notifier receives the one-per-failure global notices surfaced to the user.
type Notifier interface {
	Notify(message string)
}

// ParticipantSink accumulates participant names seen on analyzed receipts.
type ParticipantSink interface {
	AddNames(names []string) error
}

// CandidatePolicy controls what happens when archival frame extraction fails
// for one receipt candidate inside a video batch.
type CandidatePolicy int

const (
	// DropSilently removes the candidate without user-visible feedback.
	DropSilently CandidatePolicy = iota
	// SurfaceDrops emits a notice per dropped candidate.
	SurfaceDrops
)

// Orchestrator drives the per-file pipeline: intake, dispatch to the
// analysis service, state transitions on the record collection, and
// correlation of video candidates with extracted frames.
//
// Files are processed strictly sequentially to bound peak memory; within a
// video, candidate extraction is sequential too.
type Orchestrator struct {
	records      *record.Collection
	normalizer   Normalizer
	sampler      FrameSampler
	extractor    FrameExtractor
	analyzer     analysis.Analyzer
	notifier     Notifier
	participants ParticipantSink
	policy       CandidatePolicy
	logger       *slog.Logger

	cancelled atomic.Bool
}

type Option func(*Orchestrator)

// WithCandidatePolicy overrides the default silent-drop behavior for failed
// candidate extractions.
func WithCandidatePolicy(p CandidatePolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithParticipantSink wires a destination for participant names harvested
// from successful analyses.
func WithParticipantSink(s ParticipantSink) Option {
	return func(o *Orchestrator) { o.participants = s }
}

func NewOrchestrator(
	records *record.Collection,
	normalizer Normalizer,
	sampler FrameSampler,
	extractor FrameExtractor,
	analyzer analysis.Analyzer,
	notifier Notifier,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		records:    records,
		normalizer: normalizer,
		sampler:    sampler,
		extractor:  extractor,
		analyzer:   analyzer,
		notifier:   notifier,
		policy:     DropSilently,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Cancel requests cooperative cancellation of the running batch. No further
// files or candidates start; work already in flight runs to completion.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
}

// ProcessBatch screens the submitted paths and processes the accepted files
// one at a time. A file's failure never aborts its siblings.
func (o *Orchestrator) ProcessBatch(ctx context.Context, paths []string) {
	o.cancelled.Store(false)

	accepted, rejected := ingest.Screen(paths)
	for _, rej := range rejected {
		o.logger.Warn("pipeline.intake.rejected", "path", rej.Path, "ext", rej.Ext)
		o.notifier.Notify(rej.Error())
	}

	for _, sub := range accepted {
		if o.cancelled.Load() || ctx.Err() != nil {
			o.logger.Info("pipeline.batch.cancelled", "remaining", sub.Path)
			return
		}
		o.processFile(ctx, sub)
	}
}

// processFile registers the placeholder record and runs one file to a
// terminal state. All failures are caught here, recorded on the file's
// record, and surfaced once as a global notice.
func (o *Orchestrator) processFile(ctx context.Context, sub ingest.Submission) {
	name := filepath.Base(sub.Path)
	rec := record.NewProcessing(name)
	o.records.Add(rec)

	start := time.Now()
	var err error
	switch sub.Kind {
	case ingest.KindVideo:
		err = o.processVideo(ctx, sub.Path, rec)
	default:
		err = o.processImage(ctx, sub.Path, rec)
	}

	if err != nil {
		o.logger.Error("pipeline.file.failed", "file", name, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		o.records.Update(rec.ID, func(r *record.Record) {
			r.MarkError(err.Error())
		})
		o.notifier.Notify(fmt.Sprintf("%s: %v", name, err))
		return
	}
	o.logger.Info("pipeline.file.ok", "file", name, "kind", string(sub.Kind), "elapsed_ms", time.Since(start).Milliseconds())
}

func (o *Orchestrator) processImage(ctx context.Context, path string, rec *record.Record) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	normalized, err := o.normalizer.Normalize(ctx, data)
	if err != nil {
		return err
	}

	fields, err := o.analyzer.AnalyzeImage(ctx, normalized)
	if err != nil {
		return err
	}

	f := o.imageFields(fields)
	o.harvestParticipants(f.Participants)
	o.records.Update(rec.ID, func(r *record.Record) {
		r.MarkSuccess(f, normalized)
	})
	return nil
}

func (o *Orchestrator) processVideo(ctx context.Context, path string, rec *record.Record) error {
	sampled, err := o.sampler.Sample(ctx, path)
	if err != nil {
		return err
	}

	frames := make([]analysis.Frame, len(sampled))
	for i, s := range sampled {
		frames[i] = analysis.Frame{Offset: s.Offset, JPEG: s.JPEG}
	}

	candidates, err := o.analyzer.AnalyzeVideo(ctx, frames)
	if err != nil {
		return err
	}

	var produced []*record.Record
	for i, c := range candidates {
		if o.cancelled.Load() || ctx.Err() != nil {
			break
		}
		o.logger.Debug("pipeline.video.candidate", "index", i+1, "total", len(candidates), "offset_s", c.TimestampSeconds)

		frame, err := o.extractor.ExtractFrame(ctx, path, c.TimestampSeconds)
		if err != nil {
			// Extraction failure is not fatal to the batch; the candidate is
			// dropped per the configured policy.
			o.logger.Warn("pipeline.video.candidate_dropped", "offset_s", c.TimestampSeconds, "error", err)
			if o.policy == SurfaceDrops {
				o.notifier.Notify(fmt.Sprintf("%s: receipt at %.1fs dropped: %v", rec.SourceName, c.TimestampSeconds, err))
			}
			continue
		}

		f := o.candidateFields(c)
		o.harvestParticipants(f.Participants)
		sourceName := fmt.Sprintf("%s (%.1fs)", rec.SourceName, c.TimestampSeconds)
		produced = append(produced, record.NewVideoSuccess(sourceName, c.TimestampSeconds, f, frame))
	}

	o.records.Replace(rec.ID, produced)
	return nil
}

// imageFields applies the image-mode defaults on top of the service response.
func (o *Orchestrator) imageFields(in analysis.ReceiptFields) *record.Fields {
	account, known := constants.CanonicalAccountTitle(in.AccountTitle)
	if !known {
		o.logger.Warn("pipeline.account.unknown", "label", in.AccountTitle)
	}
	payment := constants.PaymentMethod(strings.ToLower(in.PaymentMethod))
	if payment != constants.PaymentCard {
		payment = constants.PaymentCash
	}
	return &record.Fields{
		ShopName:        in.ShopName,
		TransactionDate: in.TransactionDate,
		Amount:          int64(math.Round(in.Amount)),
		TaxAmount:       int64(math.Round(in.TaxAmount)),
		TaxRateType:     constants.TaxRateStandard,
		Currency:        in.Currency,
		Items:           []record.LineItem{},
		AccountTitle:    account,
		PaymentMethod:   payment,
		InvoiceID:       in.InvoiceID,
		PeopleCount:     in.PeopleCount,
		Participants:    in.Participants,
		Memo:            in.Memo,
	}
}

// candidateFields applies the video-mode defaults on top of one candidate.
func (o *Orchestrator) candidateFields(c analysis.VideoCandidate) *record.Fields {
	account, known := constants.CanonicalAccountTitle(c.AccountTitle)
	if !known {
		o.logger.Warn("pipeline.account.unknown", "label", c.AccountTitle)
	}
	payment := constants.PaymentMethod(strings.ToLower(c.PaymentMethod))
	if payment != constants.PaymentCard {
		payment = constants.PaymentCash
	}
	people := c.PeopleCount
	if people <= 0 {
		people = 1
	}
	return &record.Fields{
		ShopName:        c.ShopName,
		TransactionDate: c.TransactionDate,
		Amount:          int64(math.Round(c.Amount)),
		TaxAmount:       0,
		TaxRateType:     constants.TaxRateStandard,
		Currency:        "JPY",
		Items:           []record.LineItem{},
		AccountTitle:    account,
		PaymentMethod:   payment,
		InvoiceID:       c.InvoiceID,
		PeopleCount:     people,
		Participants:    c.Participants,
		Remarks:         c.Remarks,
	}
}

func (o *Orchestrator) harvestParticipants(participants string) {
	if o.participants == nil || strings.TrimSpace(participants) == "" {
		return
	}
	var names []string
	for _, n := range strings.Split(participants, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return
	}
	if err := o.participants.AddNames(names); err != nil {
		o.logger.Warn("pipeline.participants.save_failed", "error", err)
	}
}
