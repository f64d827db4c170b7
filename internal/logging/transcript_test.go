package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"discbackup/internal/logging"
)

func TestTranscriptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tr, err := logging.OpenTranscript(dir, "job-1")
	if err != nil {
		t.Fatalf("OpenTranscript: %v", err)
	}
	if tr.Path() != filepath.Join(dir, "job-1"+logging.TranscriptExt) {
		t.Fatalf("unexpected path %q", tr.Path())
	}
	lines := []string{`PRGT:5018,0,"Scanning CD-ROM devices"`, `MSG:5003,0,1,"Failed to save file","%1",""` + "\r\n"}
	for _, line := range lines {
		if err := tr.WriteLine("stdout", line); err != nil {
			t.Fatalf("WriteLine: %v", err)
		}
	}
	if err := tr.WriteLine("stderr", "warning"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := tr.WriteLine("stdout", "after close"); err != nil {
		t.Fatalf("write after close should be ignored: %v", err)
	}
	if tr.Lines() != 3 {
		t.Fatalf("expected 3 lines, got %d", tr.Lines())
	}

	got, err := logging.ReadTranscript(tr.Path())
	if err != nil {
		t.Fatalf("ReadTranscript: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(got), got)
	}
	if !strings.HasSuffix(got[0], " stdout "+lines[0]) {
		t.Fatalf("unexpected first line %q", got[0])
	}
	if strings.HasSuffix(got[1], "\r") {
		t.Fatalf("expected trailing newline stripped: %q", got[1])
	}
	if !strings.HasSuffix(got[2], " stderr warning") {
		t.Fatalf("unexpected stderr line %q", got[2])
	}
}

func TestNilTranscriptDiscards(t *testing.T) {
	var tr *logging.Transcript
	if err := tr.WriteLine("stdout", "x"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if tr.Path() != "" || tr.Lines() != 0 {
		t.Fatal("expected zero values from nil transcript")
	}
}

func TestPruneTranscripts(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old"+logging.TranscriptExt)
	fresh := filepath.Join(dir, "fresh"+logging.TranscriptExt)
	other := filepath.Join(dir, "notes.zst")
	for _, path := range []string{old, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Now()
	stale := now.AddDate(0, 0, -40)
	for _, path := range []string{old, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := logging.PruneTranscripts(logging.NewNop(), dir, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("PruneTranscripts: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old transcript removed")
	}
	for _, path := range []string{fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}

	if n, err := logging.PruneTranscripts(nil, filepath.Join(dir, "missing"), now); err != nil || n != 0 {
		t.Fatalf("missing dir: n=%d err=%v", n, err)
	}
}
