package constants

import "strings"

// ImageExtensions holds the allowed still-image extensions for intake.
var ImageExtensions = map[string]struct{}{
	"jpeg": {},
	"jpg":  {},
	"png":  {},
	"heic": {},
}

// VideoExtensions holds the allowed video extensions for intake.
var VideoExtensions = map[string]struct{}{
	"mp4": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExt reports whether a normalized extension is an accepted image type.
func IsImageExt(ext string) bool {
	_, ok := ImageExtensions[NormalizeExt(ext)]
	return ok
}

// IsVideoExt reports whether a normalized extension is an accepted video type.
func IsVideoExt(ext string) bool {
	_, ok := VideoExtensions[NormalizeExt(ext)]
	return ok
}
