package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"discbackup/internal/config"
)

func intPtr(v int) *int { return &v }

func TestDefaultProfilesAreValid(t *testing.T) {
	table := config.DefaultProfiles()
	want := []string{"balanced", "compatibility", "fast", "high-throughput"}
	names := table.Names()
	if len(names) != len(want) {
		t.Fatalf("unexpected names: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	compat, ok := table.Get("Compatibility")
	if !ok {
		t.Fatal("expected case-insensitive lookup")
	}
	if compat.SplitSizeMB == 0 || compat.Retries < 3 {
		t.Fatalf("expected compatibility profile to split and retry, got %+v", compat)
	}
}

func TestProfileTableWithReplacesWholeEntries(t *testing.T) {
	base := config.DefaultProfiles()
	next, err := base.With(map[string]config.PerformanceProfile{
		"Balanced": {CacheMB: 64, MinBufferKB: 4, MaxBufferKB: 8},
		"archival": {CacheMB: 32, MinBufferKB: 4, MaxBufferKB: 4, Retries: 8},
	})
	if err != nil {
		t.Fatalf("With returned error: %v", err)
	}
	if next.Len() != base.Len()+1 {
		t.Fatalf("expected one new entry, got %v", next.Names())
	}
	balanced, _ := next.Get("balanced")
	if balanced.CacheMB != 64 || balanced.TimeoutSeconds != 0 || balanced.Retries != 0 {
		t.Fatalf("expected whole replacement, got %+v", balanced)
	}
	if balanced.Name != "balanced" {
		t.Fatalf("expected normalized name, got %q", balanced.Name)
	}
	original, _ := base.Get("balanced")
	if original.CacheMB == 64 {
		t.Fatal("With must not mutate the receiver")
	}
}

func TestProfileOverrideApply(t *testing.T) {
	profile, _ := config.DefaultProfiles().Get("fast")
	got, err := config.ProfileOverride{CacheMB: intPtr(4096), Retries: intPtr(0)}.Apply(profile)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if got.CacheMB != 4096 || got.Retries != 0 || got.MaxBufferKB != profile.MaxBufferKB {
		t.Fatalf("unexpected override result: %+v", got)
	}
	if _, err := (config.ProfileOverride{MaxBufferKB: intPtr(1)}).Apply(profile); err == nil {
		t.Fatal("expected error when max buffer drops below min buffer")
	}
}

func TestProfileDerivedValues(t *testing.T) {
	p := config.PerformanceProfile{MinBufferKB: 2, MaxBufferKB: 4, TimeoutSeconds: 90}
	if p.MinBufferBytes() != 2048 || p.MaxBufferBytes() != 4096 {
		t.Fatalf("unexpected buffer sizes: %d %d", p.MinBufferBytes(), p.MaxBufferBytes())
	}
	if p.Timeout().Seconds() != 90 {
		t.Fatalf("unexpected timeout: %v", p.Timeout())
	}
}

func TestLoadProfileFileFormats(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "profiles.toml")
	if err := os.WriteFile(tomlPath, []byte("[profiles.quick]\ncache_mb = 16\nmin_buffer_kb = 1\nmax_buffer_kb = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := config.LoadProfileFile(tomlPath)
	if err != nil {
		t.Fatalf("LoadProfileFile toml: %v", err)
	}
	if _, ok := table.Get("quick"); !ok || table.Len() != 1 {
		t.Fatalf("unexpected table: %v", table.Names())
	}

	badPath := filepath.Join(dir, "profiles.json")
	if err := os.WriteFile(badPath, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadProfileFile(badPath); err == nil {
		t.Fatal("expected unsupported extension error")
	}

	emptyPath := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(emptyPath, []byte("profiles: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadProfileFile(emptyPath); err == nil {
		t.Fatal("expected empty table error")
	}
}
