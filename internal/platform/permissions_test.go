package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestChmodMakesExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Chmod(path, 0o755); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o755 {
		t.Errorf("mode = %o, want 755", perm)
	}
}

func TestChmodMissingFile(t *testing.T) {
	err := Chmod(filepath.Join(t.TempDir(), "absent"), 0o755)
	if runtime.GOOS != "windows" && err == nil {
		t.Error("expected an error for a missing file")
	}
}
