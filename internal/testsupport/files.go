package testsupport

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// WriteFile creates path, and any missing parents, holding size bytes
// (at least one). Byte i is i%251 so truncated or shifted copies never hash
// alike.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	size = max(size, 1)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteDiscTree lays out files (slash-separated relative path to size) below
// root in sorted order and returns the bytes written.
func WriteDiscTree(t testing.TB, root string, files map[string]int64) int64 {
	t.Helper()
	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	slices.Sort(rels)
	var total int64
	for _, rel := range rels {
		size := max(files[rel], 1)
		WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), size)
		total += size
	}
	return total
}
