package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktanaka/receipt-ledger/constants"
	"github.com/ktanaka/receipt-ledger/internal/analysis"
	"github.com/ktanaka/receipt-ledger/internal/record"
	"github.com/ktanaka/receipt-ledger/internal/video"
)

type fakeNormalizer struct {
	err   error
	calls int
}

func (f *fakeNormalizer) Normalize(_ context.Context, data []byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("norm:"), data...), nil
}

type fakeSampler struct {
	frames []video.SampledFrame
	err    error
}

func (f *fakeSampler) Sample(context.Context, string) ([]video.SampledFrame, error) {
	return f.frames, f.err
}

type fakeExtractor struct {
	failAt map[float64]error
	calls  []float64
	onCall func()
}

func (f *fakeExtractor) ExtractFrame(_ context.Context, _ string, offset float64) ([]byte, error) {
	f.calls = append(f.calls, offset)
	if f.onCall != nil {
		f.onCall()
	}
	if err, ok := f.failAt[offset]; ok {
		return nil, err
	}
	return []byte(fmt.Sprintf("frame@%.1f", offset)), nil
}

type fakeAnalyzer struct {
	fields     analysis.ReceiptFields
	imageErr   error
	candidates []analysis.VideoCandidate
	videoErr   error
	imageCalls int
}

func (f *fakeAnalyzer) AnalyzeImage(context.Context, []byte) (analysis.ReceiptFields, error) {
	f.imageCalls++
	return f.fields, f.imageErr
}

func (f *fakeAnalyzer) AnalyzeVideo(context.Context, []analysis.Frame) ([]analysis.VideoCandidate, error) {
	return f.candidates, f.videoErr
}

type memoryNotifier struct {
	messages []string
}

func (m *memoryNotifier) Notify(msg string) { m.messages = append(m.messages, msg) }

type memorySink struct {
	names []string
}

func (m *memorySink) AddNames(names []string) error {
	m.names = append(m.names, names...)
	return nil
}

func goodImageFields() analysis.ReceiptFields {
	return analysis.ReceiptFields{
		ShopName:        "Cafe X",
		TransactionDate: "2024-03-01",
		Amount:          3300,
		TaxAmount:       300,
		Currency:        "JPY",
		AccountTitle:    "Meeting Expense",
		PeopleCount:     3,
		Participants:    "Ann, Bob",
	}
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("raw"), 0o644))
	return path
}

type fixture struct {
	records    *record.Collection
	normalizer *fakeNormalizer
	sampler    *fakeSampler
	extractor  *fakeExtractor
	analyzer   *fakeAnalyzer
	notifier   *memoryNotifier
}

func newFixture() *fixture {
	return &fixture{
		records:    record.NewCollection(),
		normalizer: &fakeNormalizer{},
		sampler:    &fakeSampler{},
		extractor:  &fakeExtractor{},
		analyzer:   &fakeAnalyzer{fields: goodImageFields()},
		notifier:   &memoryNotifier{},
	}
}

func (f *fixture) orchestrator(opts ...Option) *Orchestrator {
	return NewOrchestrator(f.records, f.normalizer, f.sampler, f.extractor, f.analyzer, f.notifier, nil, opts...)
}

func TestProcessBatchImageSuccess(t *testing.T) {
	fx := newFixture()
	path := writeFile(t, t.TempDir(), "lunch.jpg")

	fx.orchestrator().ProcessBatch(context.Background(), []string{path})

	recs := fx.records.List()
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, constants.StatusSuccess, r.Status)
	assert.Equal(t, "lunch.jpg", r.SourceName)
	require.NotNil(t, r.Fields)
	assert.Equal(t, "Cafe X", r.Fields.ShopName)
	assert.Equal(t, int64(3300), r.Fields.Amount)
	assert.Equal(t, constants.MeetingExpense, r.Fields.AccountTitle)
	assert.Equal(t, constants.PaymentCash, r.Fields.PaymentMethod)
	assert.Equal(t, constants.TaxRateStandard, r.Fields.TaxRateType)
	assert.Equal(t, []byte("norm:raw"), r.ArchivalFrame)
	assert.Empty(t, fx.notifier.messages)
}

func TestProcessBatchFileFailureIsolated(t *testing.T) {
	fx := newFixture()
	dir := t.TempDir()
	good1 := writeFile(t, dir, "a.jpg")
	missing := filepath.Join(dir, "gone.jpg") // never written
	good2 := writeFile(t, dir, "c.jpg")

	fx.orchestrator().ProcessBatch(context.Background(), []string{good1, missing, good2})

	recs := fx.records.List()
	require.Len(t, recs, 3)
	// newest first: c.jpg, gone.jpg, a.jpg
	assert.Equal(t, constants.StatusSuccess, recs[0].Status)
	assert.Equal(t, constants.StatusError, recs[1].Status)
	assert.NotEmpty(t, recs[1].ErrorMessage)
	assert.Nil(t, recs[1].Fields)
	assert.Equal(t, constants.StatusSuccess, recs[2].Status)

	require.Len(t, fx.notifier.messages, 1)
	assert.Contains(t, fx.notifier.messages[0], "gone.jpg")
}

func TestProcessBatchAnalysisFailure(t *testing.T) {
	fx := newFixture()
	fx.analyzer.imageErr = fmt.Errorf("service unavailable")
	path := writeFile(t, t.TempDir(), "lunch.jpg")

	fx.orchestrator().ProcessBatch(context.Background(), []string{path})

	recs := fx.records.List()
	require.Len(t, recs, 1)
	assert.Equal(t, constants.StatusError, recs[0].Status)
	assert.Contains(t, recs[0].ErrorMessage, "service unavailable")
	require.Len(t, fx.notifier.messages, 1)
}

func TestProcessBatchRejectsUnsupportedTypes(t *testing.T) {
	fx := newFixture()
	path := writeFile(t, t.TempDir(), "lunch.jpg")

	fx.orchestrator().ProcessBatch(context.Background(), []string{path, "notes.pdf"})

	// the rejected file gets a notice but no record
	assert.Equal(t, 1, fx.records.Len())
	require.Len(t, fx.notifier.messages, 1)
	assert.Contains(t, fx.notifier.messages[0], "notes.pdf")
}

func TestProcessBatchCancelBetweenFiles(t *testing.T) {
	fx := newFixture()
	dir := t.TempDir()
	first := writeFile(t, dir, "a.jpg")
	second := writeFile(t, dir, "b.jpg")

	// cancel fires during the first image's analysis
	wrapped := &cancelOnAnalyze{inner: fx.analyzer}
	orch := NewOrchestrator(fx.records, fx.normalizer, fx.sampler, fx.extractor, wrapped, fx.notifier, nil)
	wrapped.orch = orch

	orch.ProcessBatch(context.Background(), []string{first, second})

	// the second file never started: no record for b.jpg
	recs := fx.records.List()
	require.Len(t, recs, 1)
	assert.Equal(t, "a.jpg", recs[0].SourceName)
	assert.Equal(t, constants.StatusSuccess, recs[0].Status)
}

// cancelOnAnalyze requests cancellation as each image analysis completes.
type cancelOnAnalyze struct {
	inner analysis.Analyzer
	orch  *Orchestrator
}

func (c *cancelOnAnalyze) AnalyzeImage(ctx context.Context, jpeg []byte) (analysis.ReceiptFields, error) {
	out, err := c.inner.AnalyzeImage(ctx, jpeg)
	c.orch.Cancel()
	return out, err
}

func (c *cancelOnAnalyze) AnalyzeVideo(ctx context.Context, frames []analysis.Frame) ([]analysis.VideoCandidate, error) {
	return c.inner.AnalyzeVideo(ctx, frames)
}

func TestProcessBatchVideoFanOut(t *testing.T) {
	fx := newFixture()
	fx.sampler.frames = []video.SampledFrame{
		{Offset: 0, JPEG: []byte("s0")},
		{Offset: 1, JPEG: []byte("s1")},
	}
	fx.analyzer.candidates = []analysis.VideoCandidate{
		{ShopName: "Shop A", Amount: 500, TimestampSeconds: 1.0, AccountTitle: "Supplies Expense"},
		{ShopName: "Shop B", Amount: 1200, TimestampSeconds: 4.0, AccountTitle: "Travel Expense", PaymentMethod: "card"},
	}
	path := writeFile(t, t.TempDir(), "walk.mp4")

	fx.orchestrator().ProcessBatch(context.Background(), []string{path})

	recs := fx.records.List()
	require.Len(t, recs, 2)
	// placeholder replaced by per-candidate records, candidate order kept
	assert.Equal(t, "walk.mp4 (1.0s)", recs[0].SourceName)
	assert.Equal(t, "walk.mp4 (4.0s)", recs[1].SourceName)

	a := recs[0]
	require.NotNil(t, a.SourceTimestampSeconds)
	assert.InDelta(t, 1.0, *a.SourceTimestampSeconds, 1e-9)
	assert.Equal(t, []byte("frame@1.0"), a.ArchivalFrame)
	// video-mode defaults
	assert.Equal(t, "JPY", a.Fields.Currency)
	assert.Equal(t, 1, a.Fields.PeopleCount)
	assert.Equal(t, constants.PaymentCash, a.Fields.PaymentMethod)
	assert.Equal(t, constants.TaxRateStandard, a.Fields.TaxRateType)

	b := recs[1]
	assert.Equal(t, constants.PaymentCard, b.Fields.PaymentMethod)
	assert.Equal(t, constants.TravelExpense, b.Fields.AccountTitle)
}

func TestProcessBatchVideoNoCandidates(t *testing.T) {
	fx := newFixture()
	fx.sampler.frames = []video.SampledFrame{{Offset: 0, JPEG: []byte("s0")}}
	fx.analyzer.candidates = nil
	path := writeFile(t, t.TempDir(), "walk.mp4")

	fx.orchestrator().ProcessBatch(context.Background(), []string{path})

	// placeholder removed, nothing added
	assert.Equal(t, 0, fx.records.Len())
}

func TestProcessBatchVideoSampleFailure(t *testing.T) {
	fx := newFixture()
	fx.sampler.err = &video.DecodeError{Path: "walk.mp4", Err: fmt.Errorf("moov atom not found")}
	path := writeFile(t, t.TempDir(), "walk.mp4")

	fx.orchestrator().ProcessBatch(context.Background(), []string{path})

	recs := fx.records.List()
	require.Len(t, recs, 1)
	assert.Equal(t, constants.StatusError, recs[0].Status)
	require.Len(t, fx.notifier.messages, 1)
}

func TestProcessBatchCandidateDropSilent(t *testing.T) {
	fx := newFixture()
	fx.sampler.frames = []video.SampledFrame{{Offset: 0, JPEG: []byte("s0")}}
	fx.analyzer.candidates = []analysis.VideoCandidate{
		{ShopName: "Shop A", Amount: 500, TimestampSeconds: 1.0, AccountTitle: "Miscellaneous"},
		{ShopName: "Shop B", Amount: 900, TimestampSeconds: 3.0, AccountTitle: "Miscellaneous"},
	}
	fx.extractor.failAt = map[float64]error{1.0: fmt.Errorf("corrupt gop")}
	path := writeFile(t, t.TempDir(), "walk.mp4")

	fx.orchestrator().ProcessBatch(context.Background(), []string{path})

	recs := fx.records.List()
	require.Len(t, recs, 1)
	assert.Equal(t, "walk.mp4 (3.0s)", recs[0].SourceName)
	assert.Empty(t, fx.notifier.messages)
}

func TestProcessBatchCandidateDropSurfaced(t *testing.T) {
	fx := newFixture()
	fx.sampler.frames = []video.SampledFrame{{Offset: 0, JPEG: []byte("s0")}}
	fx.analyzer.candidates = []analysis.VideoCandidate{
		{ShopName: "Shop A", Amount: 500, TimestampSeconds: 1.0, AccountTitle: "Miscellaneous"},
	}
	fx.extractor.failAt = map[float64]error{1.0: fmt.Errorf("corrupt gop")}
	path := writeFile(t, t.TempDir(), "walk.mp4")

	fx.orchestrator(WithCandidatePolicy(SurfaceDrops)).ProcessBatch(context.Background(), []string{path})

	assert.Equal(t, 0, fx.records.Len())
	require.Len(t, fx.notifier.messages, 1)
	assert.Contains(t, fx.notifier.messages[0], "walk.mp4")
	assert.Contains(t, fx.notifier.messages[0], "1.0s")
}

func TestProcessBatchCancelBetweenCandidates(t *testing.T) {
	fx := newFixture()
	fx.sampler.frames = []video.SampledFrame{{Offset: 0, JPEG: []byte("s0")}}
	fx.analyzer.candidates = []analysis.VideoCandidate{
		{ShopName: "Shop A", Amount: 500, TimestampSeconds: 1.0, AccountTitle: "Miscellaneous"},
		{ShopName: "Shop B", Amount: 900, TimestampSeconds: 3.0, AccountTitle: "Miscellaneous"},
	}
	path := writeFile(t, t.TempDir(), "walk.mp4")

	orch := fx.orchestrator()
	fx.extractor.onCall = orch.Cancel

	orch.ProcessBatch(context.Background(), []string{path})

	// first candidate completed, second never started
	require.Len(t, fx.extractor.calls, 1)
	recs := fx.records.List()
	require.Len(t, recs, 1)
	assert.Equal(t, "walk.mp4 (1.0s)", recs[0].SourceName)
}

func TestParticipantsHarvested(t *testing.T) {
	fx := newFixture()
	sink := &memorySink{}
	path := writeFile(t, t.TempDir(), "lunch.jpg")

	fx.orchestrator(WithParticipantSink(sink)).ProcessBatch(context.Background(), []string{path})

	assert.Equal(t, []string{"Ann", "Bob"}, sink.names)
}

func TestUnknownAccountTitleFallsBack(t *testing.T) {
	fx := newFixture()
	fx.analyzer.fields.AccountTitle = "Entertainment??"
	path := writeFile(t, t.TempDir(), "lunch.jpg")

	fx.orchestrator().ProcessBatch(context.Background(), []string{path})

	recs := fx.records.List()
	require.Len(t, recs, 1)
	assert.Equal(t, constants.Miscellaneous, recs[0].Fields.AccountTitle)
}
