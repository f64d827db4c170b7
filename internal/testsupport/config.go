package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"discbackup/internal/config"
)

// ConfigOption adjusts the configuration built by NewConfig.
type ConfigOption func(t testing.TB, root string, cfg *config.Config)

// NewConfig returns defaults rooted below a fresh t.TempDir: work areas in
// <root>/discbackup, logs in <root>/logs. Progress polling and the fallback
// grace are shortened so job tests run in milliseconds.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BaseDir = filepath.Join(root, "discbackup")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Progress.PollIntervalMS = 10
	cfg.Progress.FallbackGraceMS = 50
	for _, opt := range opts {
		opt(t, root, &cfg)
	}
	return &cfg
}

// BaseDir returns the temp root NewConfig created for cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.BaseDir)
}

// WithoutFreeSpaceCheck turns off the free space preflight.
func WithoutFreeSpaceCheck() ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Extract.CheckFreeSpace = false
	}
}

// WithStubbedBinaries puts no-op executables with the given names
// (makemkvcon and 7z by default) first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	if len(names) == 0 {
		names = []string{"makemkvcon", "7z"}
	}
	return func(t testing.TB, root string, _ *config.Config) {
		bin := filepath.Join(root, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
