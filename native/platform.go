package native

import (
	"runtime"
	"sync"

	"github.com/wippyai/mod-host/errors"
)

var (
	platformOnce sync.Once
	platformDir  string
	platformErr  error
)

// PlatformDir returns the native-library subfolder for the host OS and CPU
// architecture. Computed once per process; an unrecognized combination is a
// hard failure with no fallback.
func PlatformDir() (string, error) {
	platformOnce.Do(func() {
		platformDir, platformErr = resolvePlatformDir(runtime.GOOS, runtime.GOARCH)
	})
	return platformDir, platformErr
}

func resolvePlatformDir(goos, goarch string) (string, error) {
	switch goos {
	case "windows":
		if goarch == "amd64" {
			return "windows-x64", nil
		}
	case "linux":
		switch goarch {
		case "amd64":
			return "linux-x64", nil
		case "arm":
			return "linux-arm", nil
		case "arm64":
			return "linux-arm64", nil
		}
	case "darwin":
		if goarch == "amd64" {
			return "macos-x64", nil
		}
	}
	return "", errors.Unsupported(goos + "/" + goarch)
}

// decoratedName returns the OS-conventional file name for a logical library
// name: foo.dll on windows, libfoo.so on linux, libfoo.dylib on macOS.
func decoratedName(goos, name string) string {
	switch goos {
	case "windows":
		return name + ".dll"
	case "darwin":
		return "lib" + name + ".dylib"
	default:
		return "lib" + name + ".so"
	}
}

// candidateNames returns the file names tried for a logical library name,
// in order: the bare name first, then the decorated one.
func candidateNames(goos, name string) []string {
	return []string{name, decoratedName(goos, name)}
}
