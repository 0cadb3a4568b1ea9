package native

import (
	"io"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/mod-host/errors"
	"github.com/wippyai/mod-host/modfs"
)

// Loader extracts and loads native libraries for one mod. The dl functions
// default to the platform implementation and are swappable for tests.
type Loader struct {
	open  func(path string) (uintptr, error)
	close func(handle uintptr) error
	sym   func(handle uintptr, name string) (uintptr, error)

	goos        string
	platformDir func() (string, error)
}

// NewLoader creates a loader bound to the host platform.
func NewLoader() *Loader {
	return &Loader{
		open:        dlOpen,
		close:       dlClose,
		sym:         dlSym,
		goos:        runtime.GOOS,
		platformDir: PlatformDir,
	}
}

// DL is a dynamic-linker implementation. Hosts may substitute one for the
// platform default, for instrumentation or sandboxed loading.
type DL struct {
	Open  func(path string) (uintptr, error)
	Close func(handle uintptr) error
	Sym   func(handle uintptr, name string) (uintptr, error)
}

// NewLoaderWithDL creates a loader that resolves files for the host
// platform but opens them through the given linker.
func NewLoaderWithDL(dl DL) *Loader {
	return &Loader{
		open:        dl.Open,
		close:       dl.Close,
		sym:         dl.Sym,
		goos:        runtime.GOOS,
		platformDir: PlatformDir,
	}
}

// Load resolves a logical library name inside one mod's library folder.
//
// Candidates are tried in order (bare name, then OS-decorated name); each
// existing candidate is extracted to a fresh temporary file and loaded from
// there. The first successful load wins. A platform-unsupported host is a
// hard failure; everything else is reported as not-found for this mod so
// the caller can try dependency mods.
func (l *Loader) Load(fsys modfs.FS, libDir, name string) (*Handle, error) {
	platform, err := l.platformDir()
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidateNames(l.goos, name) {
		path := modfs.Join(libDir, platform, candidate)
		if !fsys.FileExists(path) {
			continue
		}

		tmp, err := l.extract(fsys, path)
		if err != nil {
			Logger().Warn("native library extraction failed",
				zap.String("library", name),
				zap.String("path", path),
				zap.Error(err))
			continue
		}

		ptr, err := l.open(tmp)
		if err != nil {
			os.Remove(tmp)
			Logger().Warn("native library load failed",
				zap.String("library", name),
				zap.String("path", tmp),
				zap.Error(err))
			continue
		}

		return &Handle{name: name, path: tmp, ptr: ptr, loader: l}, nil
	}

	return nil, errors.NotFound(errors.PhaseNative, "", name)
}

// extract copies the mod's file bytes to a fresh temporary file on the real
// filesystem. Every load re-extracts; a stale copy is never trusted.
func (l *Loader) extract(fsys modfs.FS, path string) (string, error) {
	src, err := fsys.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "modhost-native-*")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}

	return dst.Name(), nil
}

// Handle is one loaded native library. The owning load context frees it
// exactly once on disposal.
type Handle struct {
	name   string
	path   string
	ptr    uintptr
	loader *Loader

	closeOnce sync.Once
	closeErr  error
}

// Name returns the logical library name the handle was resolved for.
func (h *Handle) Name() string {
	return h.name
}

// Symbol resolves an exported symbol address.
func (h *Handle) Symbol(name string) (uintptr, error) {
	return h.loader.sym(h.ptr, name)
}

// Close frees the library and removes its extraction file. Safe to call
// more than once; only the first call does work.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.loader.close(h.ptr)
		if h.path != "" {
			os.Remove(h.path)
		}
	})
	return h.closeErr
}
