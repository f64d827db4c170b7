package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"discbackup/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDirectoryAccess("test", dir); !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if result := CheckDirectoryAccess("test", filepath.Join(dir, "nope")); result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected failure for missing dir, got %+v", result)
	}
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", file); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpaceSumsSameFilesystem(t *testing.T) {
	base := t.TempDir()
	var asked []string
	usage := func(path string) (uint64, error) {
		asked = append(asked, path)
		return 150, nil
	}
	results := CheckFreeSpace(usage,
		SpaceRequirement{Name: "Scratch", Path: filepath.Join(base, "temp", "MOVIE"), Bytes: 100},
		SpaceRequirement{Name: "Backup", Path: filepath.Join(base, "backup", "MOVIE"), Bytes: 100},
	)
	if len(results) != 1 {
		t.Fatalf("expected one grouped result, got %+v", results)
	}
	if results[0].Passed {
		t.Fatalf("expected failure when 200 bytes are needed and 150 are free: %+v", results[0])
	}
	if len(asked) != 1 || asked[0] != base {
		t.Fatalf("expected usage on nearest existing ancestor, got %v", asked)
	}
	if !strings.Contains(results[0].Name, "shared") {
		t.Fatalf("expected shared marker in name: %q", results[0].Name)
	}
}

func TestCheckFreeSpacePassesAndSkipsUnknownSize(t *testing.T) {
	base := t.TempDir()
	results := CheckFreeSpace(func(string) (uint64, error) { return 1 << 40, nil },
		SpaceRequirement{Name: "Scratch", Path: base, Bytes: 1 << 30},
		SpaceRequirement{Name: "Unknown", Path: base, Bytes: 0},
	)
	if len(results) != 1 || !results[0].Passed {
		t.Fatalf("expected single passing result, got %+v", results)
	}
}

func TestCheckFreeSpaceReportsUsageErrors(t *testing.T) {
	results := CheckFreeSpace(func(string) (uint64, error) { return 0, errors.New("statfs failed") },
		SpaceRequirement{Name: "Scratch", Path: t.TempDir(), Bytes: 1},
	)
	if len(results) != 1 || results[0].Passed || !strings.Contains(results[0].Detail, "statfs failed") {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestDiskFreeOnTempDir(t *testing.T) {
	free, err := DiskFree(t.TempDir())
	if err != nil {
		t.Skipf("disk usage unavailable: %v", err)
	}
	if free == 0 {
		t.Log("temp filesystem reports zero free bytes")
	}
}

func TestRunAllCreatesDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %+v", results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
	if RunAll(nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("makemkvcon"))
	cfg.Extract.SevenZipBinary = "clearly-missing-7z"
	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 2 || !statuses[0].Available || statuses[1].Available || !statuses[1].Optional {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
}
