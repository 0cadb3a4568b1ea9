package modfs

import (
	"io"
	"path"
)

// FS is the read-only view of one mod's content.
//
// Paths are slash-separated and relative to the mod root. Implementations
// must be safe for concurrent use.
type FS interface {
	// FindFilesInDirectory returns the paths of regular files directly inside
	// folder whose name ends with ext. Order is stable across calls.
	// A missing folder yields an empty result, not an error.
	FindFilesInDirectory(folder, ext string) []string

	// FileExists reports whether path names a regular file.
	FileExists(path string) bool

	// OpenFile opens a file for reading. The returned stream may be
	// non-seekable (archive-backed mods).
	OpenFile(path string) (io.ReadCloser, error)
}

// Join builds a mod-relative path from segments.
func Join(elem ...string) string {
	return path.Join(elem...)
}
