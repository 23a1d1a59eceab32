package video

import "fmt"

// DecodeError means the video source could not be decoded at all; nothing in
// it is recoverable.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("video decode failed for %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ExtractionError means one archival frame capture failed (seek or draw).
type ExtractionError struct {
	Path   string
	Offset float64
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("frame extraction failed for %s at %.1fs: %v", e.Path, e.Offset, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TimeoutError means an archival frame capture exceeded its deadline.
type TimeoutError struct {
	Path   string
	Offset float64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("frame extraction timed out for %s at %.1fs", e.Path, e.Offset)
}
