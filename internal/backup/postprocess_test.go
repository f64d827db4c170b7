package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"discbackup/internal/config"
	"discbackup/internal/logging"
	"discbackup/internal/services"
	"discbackup/internal/testsupport"
)

type fakeExtractor struct {
	calls   int
	archive string
	dest    string
	files   map[string]int64
	err     error
	t       *testing.T
}

func (f *fakeExtractor) Extract(_ context.Context, archive, dest string) error {
	f.calls++
	f.archive = archive
	f.dest = dest
	if f.err != nil {
		testsupport.WriteFile(f.t, filepath.Join(dest, "partial.bin"), 10)
		return f.err
	}
	testsupport.WriteDiscTree(f.t, dest, f.files)
	return nil
}

func testProfile() config.PerformanceProfile {
	profile, _ := config.DefaultProfiles().Get("balanced")
	return profile
}

func TestDetectFormat(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name string
		file string // relative to the output path; empty writes the path itself
		want Format
	}{
		{"bluray", "BDMV/index.bdmv", FormatBluRay},
		{"dvd", "VIDEO_TS/VIDEO_TS.IFO", FormatDVD},
		{"hddvd", "HVDVD_TS/x.evo", FormatHDDVD},
		{"lowercase marker", "bdmv/index.bdmv", FormatBluRay},
		{"image", "", FormatImage},
		{"unknown", "other/x", FormatUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(root, tc.name)
			testsupport.WriteFile(t, filepath.Join(path, filepath.FromSlash(tc.file)), 10)
			got, err := DetectFormat(path)
			if err != nil {
				t.Fatalf("DetectFormat: %v", err)
			}
			if got != tc.want {
				t.Fatalf("DetectFormat = %s, want %s", got, tc.want)
			}
		})
	}
	if _, err := DetectFormat(filepath.Join(root, "missing")); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestFinalizeSingleFileTakesExtractionPath(t *testing.T) {
	base := t.TempDir()
	scratch := filepath.Join(base, "temp", "MOVIE")
	final := filepath.Join(base, "backup", "MOVIE")
	testsupport.WriteFile(t, scratch, 2048)

	extractor := &fakeExtractor{t: t, files: map[string]int64{"BDMV/index.bdmv": 100, "BDMV/STREAM/00000.m2ts": 4000}}
	pp := NewPostProcessor(extractor, testProfile(), false, logging.NewNop())
	relocated := false
	fin, err := pp.Finalize(context.Background(), scratch, final, func() { relocated = true })
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if extractor.calls != 1 || extractor.archive != scratch || extractor.dest != final {
		t.Fatalf("unexpected extractor call %+v", extractor)
	}
	if !relocated {
		t.Fatal("expected relocated callback")
	}
	if fin.Format != FormatImage || !fin.Format.SingleFile() || fin.SizeBytes != 4100 || fin.Files != 2 {
		t.Fatalf("unexpected result %+v", fin)
	}
	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Fatalf("expected scratch file removed, stat err=%v", err)
	}
}

func TestFinalizeDirectoryTakesCopyPath(t *testing.T) {
	base := t.TempDir()
	scratch := filepath.Join(base, "temp", "MOVIE")
	final := filepath.Join(base, "not-yet", "backup", "MOVIE")
	total := testsupport.WriteDiscTree(t, scratch, map[string]int64{
		"BDMV/index.bdmv":        100,
		"BDMV/STREAM/00000.m2ts": 70_000,
		"CERTIFICATE/id.bdmv":    10,
	})

	extractor := &fakeExtractor{t: t}
	pp := NewPostProcessor(extractor, testProfile(), true, logging.NewNop())
	fin, err := pp.Finalize(context.Background(), scratch, final, nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if extractor.calls != 0 {
		t.Fatal("directory output must not be extracted")
	}
	if fin.Format != FormatBluRay || fin.SizeBytes != total || fin.Files != 3 {
		t.Fatalf("unexpected result %+v", fin)
	}
	if _, err := os.Stat(filepath.Join(final, "BDMV", "STREAM", "00000.m2ts")); err != nil {
		t.Fatalf("expected copied stream: %v", err)
	}
	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Fatalf("expected scratch tree removed, stat err=%v", err)
	}
}

func TestFinalizeDirectoryCopyStopsOnCancel(t *testing.T) {
	base := t.TempDir()
	scratch := filepath.Join(base, "temp", "MOVIE")
	final := filepath.Join(base, "backup", "MOVIE")
	testsupport.WriteDiscTree(t, scratch, map[string]int64{
		"BDMV/index.bdmv":        100,
		"BDMV/STREAM/00000.m2ts": 4000,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pp := NewPostProcessor(nil, testProfile(), false, logging.NewNop())
	_, err := pp.Finalize(ctx, scratch, final, func() { t.Fatal("relocated called for a cancelled copy") })
	var procErr *ProcessingError
	if !errors.As(err, &procErr) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled ProcessingError, got %v", err)
	}
	if _, err := os.Stat(final); !os.IsNotExist(err) {
		t.Fatalf("expected partial backup removed, stat err=%v", err)
	}
}

func TestFinalizeExtractionFailureIsProcessingError(t *testing.T) {
	base := t.TempDir()
	scratch := filepath.Join(base, "temp", "MOVIE")
	final := filepath.Join(base, "backup", "MOVIE")
	testsupport.WriteFile(t, scratch, 2048)

	extractor := &fakeExtractor{t: t, err: errors.New("7z exploded")}
	pp := NewPostProcessor(extractor, testProfile(), false, logging.NewNop())
	_, err := pp.Finalize(context.Background(), scratch, final, nil)
	var procErr *ProcessingError
	if !errors.As(err, &procErr) || procErr.Step != "extract" {
		t.Fatalf("expected extract ProcessingError, got %v", err)
	}
	if !errors.Is(err, services.ErrProcessing) || services.Outcome(err) != "processing_failed" {
		t.Fatalf("expected processing marker, got %v", err)
	}
	if _, err := os.Stat(final); !os.IsNotExist(err) {
		t.Fatalf("expected partial final removed, stat err=%v", err)
	}
}

func TestFinalizeWithoutExtractor(t *testing.T) {
	base := t.TempDir()
	scratch := filepath.Join(base, "temp", "MOVIE.iso")
	testsupport.WriteFile(t, scratch, 10)
	pp := NewPostProcessor(nil, testProfile(), false, nil)
	if _, err := pp.Finalize(context.Background(), scratch, filepath.Join(base, "backup", "MOVIE"), nil); !errors.Is(err, services.ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
}
