package platform

import (
	"os"
	"runtime"
)

// Chmod marks a path with the given mode, typically to make a fetched
// binary executable. Windows has no Unix permission bits, so there it
// succeeds without doing anything.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}
