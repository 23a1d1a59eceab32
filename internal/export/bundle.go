package export

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ktanaka/receipt-ledger/internal/common"
	"github.com/ktanaka/receipt-ledger/internal/record"
)

// illegalNameChars are stripped from shop names used in archive entry names.
const illegalNameChars = `\/:*?"<>|`

const shopNameMaxLen = 20

// Service produces the downloadable export artifact: the ledger document
// plus one archival image per exported record.
type Service struct {
	actor  string
	logger *slog.Logger
}

func NewService(cfg common.ExportConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	actor := cfg.Actor
	if actor == "" {
		actor = "System"
	}
	return &Service{actor: actor, logger: logger}
}

// WriteBundle writes a zip archive to w containing the CSV journal, the XLSX
// rendering of the same rows, and the archival images named by sequence
// number, date digits, and sanitized shop name. Image sequence numbers match
// the journal's row numbers.
func (s *Service) WriteBundle(w io.Writer, recs []*record.Record, generatedAt time.Time) error {
	start := time.Now()

	items := make([]*record.Fields, 0, len(recs))
	for _, r := range recs {
		if r.Fields == nil {
			return fmt.Errorf("record %s has no fields", r.ID)
		}
		items = append(items, r.Fields)
	}

	meta := Meta{GeneratedAt: generatedAt, Actor: s.actor}
	rows := BuildRows(items, meta)

	zw := zip.NewWriter(w)

	csvEntry, err := zw.Create("journal.csv")
	if err != nil {
		return fmt.Errorf("create csv entry: %w", err)
	}
	if _, err := io.WriteString(csvEntry, RenderCSV(rows)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	xlsxData, err := RenderXLSX(rows)
	if err != nil {
		return err
	}
	xlsxEntry, err := zw.Create("journal.xlsx")
	if err != nil {
		return fmt.Errorf("create xlsx entry: %w", err)
	}
	if _, err := xlsxEntry.Write(xlsxData); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	images := 0
	for i, r := range recs {
		if len(r.ArchivalFrame) == 0 {
			continue
		}
		name := fmt.Sprintf("images/%s.jpg", ImageBaseName(i+1, r.Fields))
		entry, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create image entry %s: %w", name, err)
		}
		if _, err := entry.Write(r.ArchivalFrame); err != nil {
			return fmt.Errorf("write image %s: %w", name, err)
		}
		images++
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	s.logger.Info("export.bundle.ok",
		"rows", len(rows),
		"images", images,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ImageBaseName builds the archival image stem: zero-padded sequence number,
// the transaction date digits, and the sanitized shop name.
func ImageBaseName(seq int, f *record.Fields) string {
	dateDigits := strings.ReplaceAll(f.TransactionDate, "-", "")
	if dateDigits == "" {
		dateDigits = "00000000"
	}
	shop := f.ShopName
	if shop == "" {
		shop = "unknown"
	}
	return fmt.Sprintf("%03d_%s_%s", seq, dateDigits, sanitizeShopName(shop))
}

// sanitizeShopName strips filesystem-illegal characters and truncates to a
// bounded rune length.
func sanitizeShopName(name string) string {
	var b strings.Builder
	count := 0
	for _, r := range name {
		if strings.ContainsRune(illegalNameChars, r) {
			continue
		}
		b.WriteRune(r)
		count++
		if count == shopNameMaxLen {
			break
		}
	}
	return b.String()
}
