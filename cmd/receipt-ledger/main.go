package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/ktanaka/receipt-ledger/internal/analysis"
	"github.com/ktanaka/receipt-ledger/internal/common"
	"github.com/ktanaka/receipt-ledger/internal/export"
	"github.com/ktanaka/receipt-ledger/internal/ingest"
	"github.com/ktanaka/receipt-ledger/internal/media"
	"github.com/ktanaka/receipt-ledger/internal/pipeline"
	"github.com/ktanaka/receipt-ledger/internal/record"
	"github.com/ktanaka/receipt-ledger/internal/store"
	"github.com/ktanaka/receipt-ledger/internal/video"
)

// consoleNotifier prints the dismissible global notices to stderr.
type consoleNotifier struct{}

func (consoleNotifier) Notify(message string) {
	fmt.Fprintf(os.Stderr, "notice: %s\n", message)
}

func main() {
	fs := ff.NewFlagSet("receipt-ledger")
	var (
		dbPath       = fs.StringLong("db", "", "Database file path (default from STORE_PATH)")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY)")
		geminiModel  = fs.StringLong("gemini-model", "", "Google Gemini model name")
		dir          = fs.StringLong("dir", "", "Directory to scan for media files in addition to arguments")
		out          = fs.StringLong("out", "export.zip", "Export bundle output path")
		surfaceDrops = fs.BoolLong("surface-drops", "Surface a notice for each video candidate dropped on frame extraction failure")
		verbose      = fs.BoolLong("verbose", "Enable debug logging")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("RECEIPT_LEDGER")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *geminiKey != "" {
		cfg.Analysis.APIKey = *geminiKey
	}
	if *geminiModel != "" {
		cfg.Analysis.Model = *geminiModel
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	paths := fs.GetArgs()
	if *dir != "" {
		collected, err := ingest.CollectDir(*dir, true)
		if err != nil {
			logger.Error("failed to scan directory", "dir", *dir, "error", err)
			os.Exit(1)
		}
		paths = append(paths, collected...)
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: no input files")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewBolt(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	records := record.NewCollection()
	if archived, err := db.LoadRecords(); err != nil {
		logger.Warn("failed to load archived records", "error", err)
	} else {
		for i := len(archived) - 1; i >= 0; i-- {
			records.Add(archived[i])
		}
	}

	analyzer, err := analysis.NewGemini(ctx, cfg.Analysis, logger)
	if err != nil {
		logger.Error("failed to initialize analyzer", "error", err)
		os.Exit(1)
	}
	defer analyzer.Close()

	runner := video.NewExecRunner()
	opts := []pipeline.Option{pipeline.WithParticipantSink(db)}
	if *surfaceDrops {
		opts = append(opts, pipeline.WithCandidatePolicy(pipeline.SurfaceDrops))
	}
	orch := pipeline.NewOrchestrator(
		records,
		media.NewNormalizer(cfg.Media, logger),
		video.NewSampler(cfg.Video, runner, logger),
		video.NewExtractor(cfg.Video, runner, logger),
		analyzer,
		consoleNotifier{},
		logger,
		opts...,
	)

	// A second signal cancels cooperatively: the in-flight file finishes,
	// later files never start.
	go func() {
		<-ctx.Done()
		orch.Cancel()
	}()

	orch.ProcessBatch(ctx, paths)

	if err := db.SaveRecords(records.List()); err != nil {
		logger.Warn("failed to archive records", "error", err)
	}

	successes := records.Successes()
	if len(successes) == 0 {
		logger.Info("no exportable records")
		return
	}

	f, err := os.Create(*out)
	if err != nil {
		logger.Error("failed to create bundle", "path", *out, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	svc := export.NewService(cfg.Export, logger)
	if err := svc.WriteBundle(f, successes, time.Now()); err != nil {
		logger.Error("failed to write bundle", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("bundle written", "path", *out, "records", len(successes))
}
