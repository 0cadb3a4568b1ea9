package modfs

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirFS serves a mod unpacked into a real directory.
type DirFS struct {
	root string
}

// NewDirFS creates a DirFS rooted at dir.
func NewDirFS(dir string) *DirFS {
	return &DirFS{root: dir}
}

func (d *DirFS) FindFilesInDirectory(folder, ext string) []string {
	entries, err := os.ReadDir(filepath.Join(d.root, filepath.FromSlash(folder)))
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		files = append(files, Join(folder, e.Name()))
	}
	sort.Strings(files)
	return files
}

func (d *DirFS) FileExists(p string) bool {
	info, err := os.Stat(filepath.Join(d.root, filepath.FromSlash(p)))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (d *DirFS) OpenFile(p string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.root, filepath.FromSlash(p)))
}

var _ FS = (*DirFS)(nil)
