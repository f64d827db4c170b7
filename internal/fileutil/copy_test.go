package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		bufSize int
		verify  bool
	}{
		{name: "empty", size: 0, bufSize: 0},
		{name: "small buffer", size: 10_000, bufSize: 512},
		{name: "verified", size: 70_000, bufSize: 4096, verify: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "src.m2ts")
			dst := filepath.Join(dir, "dst.m2ts")
			content := bytes.Repeat([]byte{0x47}, tc.size)
			if err := os.WriteFile(src, content, 0o640); err != nil {
				t.Fatal(err)
			}
			if err := copyFile(src, dst, 0o640, tc.bufSize, tc.verify); err != nil {
				t.Fatalf("copyFile: %v", err)
			}
			got, err := os.ReadFile(dst)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, content) {
				t.Fatalf("content mismatch: %d bytes, want %d", len(got), len(content))
			}
			info, err := os.Stat(dst)
			if err != nil {
				t.Fatal(err)
			}
			if info.Mode().Perm() != 0o640 {
				t.Fatalf("mode = %v, want 0640", info.Mode().Perm())
			}
		})
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst")
	if err := copyFile(filepath.Join(dir, "missing"), dst, 0o644, 0, true); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("destination should not be created for a missing source")
	}
}

func TestHashFileMatchesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("disc"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, sum, err := hashFile(path, make([]byte, 2))
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || len(sum) != 32 {
		t.Fatalf("unexpected hash result n=%d len=%d", n, len(sum))
	}
}
