package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ktanaka/receipt-ledger/constants"
)

// MediaKind classifies an accepted file.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Submission is one accepted file, ready for the pipeline.
type Submission struct {
	Path string
	Kind MediaKind
}

// ValidationError reports a file rejected at intake for its type.
type ValidationError struct {
	Path string
	Ext  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("unsupported file type %q: %s", e.Ext, e.Path)
}

// Screen splits a submitted batch into accepted submissions and rejections.
// A mixed batch is never rejected wholesale: valid files proceed, invalid
// ones are dropped before the pipeline runs.
func Screen(paths []string) ([]Submission, []*ValidationError) {
	var accepted []Submission
	var rejected []*ValidationError

	for _, p := range paths {
		ext := constants.NormalizeExt(filepath.Ext(p))
		switch {
		case constants.IsImageExt(ext):
			accepted = append(accepted, Submission{Path: p, Kind: KindImage})
		case constants.IsVideoExt(ext):
			accepted = append(accepted, Submission{Path: p, Kind: KindVideo})
		default:
			rejected = append(rejected, &ValidationError{Path: p, Ext: ext})
		}
	}
	return accepted, rejected
}

// CollectDir walks root and returns the paths of all acceptable media files,
// skipping hidden entries when requested. Unreadable entries are skipped.
func CollectDir(root string, skipHidden bool) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path is required")
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if skipHidden && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if constants.IsImageExt(ext) || constants.IsVideoExt(ext) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return paths, nil
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
