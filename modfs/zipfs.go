package modfs

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"sort"
	"strings"
)

// ZipFS serves a mod packaged as a zip archive. Streams it returns are
// deflate readers and therefore not seekable.
type ZipFS struct {
	reader *zip.Reader
	files  map[string]*zip.File
}

// NewZipFS creates a ZipFS over raw archive bytes.
func NewZipFS(data []byte) (*ZipFS, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files[path.Clean(f.Name)] = f
	}

	return &ZipFS{reader: r, files: files}, nil
}

func (z *ZipFS) FindFilesInDirectory(folder, ext string) []string {
	folder = path.Clean(folder)

	var out []string
	for name := range z.files {
		if path.Dir(name) != folder {
			continue
		}
		if !strings.HasSuffix(name, ext) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (z *ZipFS) FileExists(p string) bool {
	_, ok := z.files[path.Clean(p)]
	return ok
}

func (z *ZipFS) OpenFile(p string) (io.ReadCloser, error) {
	f, ok := z.files[path.Clean(p)]
	if !ok {
		return nil, &zipNotFoundError{path: p}
	}
	return f.Open()
}

type zipNotFoundError struct {
	path string
}

func (e *zipNotFoundError) Error() string {
	return "file not in archive: " + e.path
}

var _ FS = (*ZipFS)(nil)
