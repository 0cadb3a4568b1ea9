// Package modfs abstracts where a mod's content lives.
//
// The loader never assumes a real filesystem: a mod may be an unpacked
// directory (DirFS) or a zip archive (ZipFS). Streams returned by OpenFile
// may be non-seekable; callers that need random access must buffer.
package modfs
