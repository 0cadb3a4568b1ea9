//go:build !windows

package native

import "github.com/ebitengine/purego"

// RTLD_LOCAL keeps a mod's symbols out of the process-global namespace so
// one mod's library cannot shadow another's.
func dlOpen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func dlClose(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	return purego.Dlclose(handle)
}

func dlSym(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}
