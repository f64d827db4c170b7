package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"discbackup/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, "discbackup"); cfg.Paths.BaseDir != want {
		t.Fatalf("unexpected base dir: got %q want %q", cfg.Paths.BaseDir, want)
	}
	if cfg.TempDir() != filepath.Join(tempHome, "discbackup", "temp") {
		t.Fatalf("unexpected temp dir: %q", cfg.TempDir())
	}
	if cfg.BackupPath("Movie") != filepath.Join(tempHome, "discbackup", "backup", "Movie") {
		t.Fatalf("unexpected backup path: %q", cfg.BackupPath("Movie"))
	}
	if cfg.MakeMKV.ExtractionMode != config.ModeFull {
		t.Fatalf("expected full mode by default, got %q", cfg.MakeMKV.ExtractionMode)
	}
	if cfg.PollInterval().Milliseconds() != 500 {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval())
	}
	if cfg.FallbackGrace().Seconds() != 5 {
		t.Fatalf("unexpected fallback grace: %v", cfg.FallbackGrace())
	}
	if cfg.NoiseFloorBytes() != 10*1024*1024 {
		t.Fatalf("unexpected noise floor: %d", cfg.NoiseFloorBytes())
	}
	if cfg.ProfileTable().Len() != 4 {
		t.Fatalf("expected built-in profiles, got %v", cfg.ProfileTable().Names())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"base_dir": filepath.Join(dir, "base"),
			"log_dir":  filepath.Join(dir, "logs"),
		},
		"makemkv": map[string]any{
			"extraction_mode":   "SMART",
			"min_title_minutes": 20,
			"profile":           "fast",
			"disc_type_profiles": map[string]any{
				"bluray": "high-throughput",
			},
		},
		"profiles": map[string]any{
			"fast": map[string]any{
				"cache_mb":        512,
				"min_buffer_kb":   64,
				"max_buffer_kb":   128,
				"timeout_seconds": 60,
				"retries":         0,
			},
		},
		"logging": map[string]any{"format": "JSON", "level": "DEBUG"},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected to load %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.MakeMKV.ExtractionMode != config.ModeSmart {
		t.Fatalf("expected smart mode, got %q", cfg.MakeMKV.ExtractionMode)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
	fast, ok := cfg.ProfileTable().Get("fast")
	if !ok || fast.CacheMB != 512 || fast.SplitSizeMB != 0 {
		t.Fatalf("expected overridden fast profile, got %+v", fast)
	}
	profile, err := cfg.ProfileFor("", "Blu-Ray")
	if err != nil {
		t.Fatalf("ProfileFor returned error: %v", err)
	}
	if profile.Name != "high-throughput" {
		t.Fatalf("expected disc type mapping, got %q", profile.Name)
	}
	profile, err = cfg.ProfileFor("", "cd")
	if err != nil || profile.Name != "fast" {
		t.Fatalf("expected configured default profile, got %q err=%v", profile.Name, err)
	}
	if _, err := cfg.ProfileFor("missing", ""); err == nil {
		t.Fatal("expected unknown profile error")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"bad mode", "[makemkv]\nextraction_mode = \"partial\"\n", "extraction_mode"},
		{"unknown profile", "[makemkv]\nprofile = \"turbo\"\n", "makemkv.profile"},
		{"bad threshold", "[probe]\ncomplete_percent = 150.0\n", "complete_percent"},
		{"bad profile entry", "[profiles.fast]\ncache_mb = 0\nmin_buffer_kb = 1\nmax_buffer_kb = 1\n", "cache_mb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.toml")
			content := "[paths]\nbase_dir = \"" + filepath.ToSlash(dir) + "\"\n" + tt.payload
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestProfilesFileReplacesTable(t *testing.T) {
	dir := t.TempDir()
	profiles := filepath.Join(dir, "profiles.yaml")
	yamlContent := `profiles:
  archival:
    cache_mb: 64
    min_buffer_kb: 256
    max_buffer_kb: 512
    timeout_seconds: 0
    split_size_mb: 2048
    retries: 9
`
	if err := os.WriteFile(profiles, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.toml")
	content := "profiles_file = \"" + filepath.ToSlash(profiles) + "\"\n" +
		"[paths]\nbase_dir = \"" + filepath.ToSlash(dir) + "\"\n" +
		"[makemkv]\nprofile = \"archival\"\n" +
		"[makemkv.disc_type_profiles]\ndvd = \"archival\"\nbluray = \"archival\"\nuhd = \"archival\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if names := cfg.ProfileTable().Names(); len(names) != 1 || names[0] != "archival" {
		t.Fatalf("expected profiles file to replace presets, got %v", names)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
