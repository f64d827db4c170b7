package backup

import (
	"testing"

	"discbackup/internal/services/makemkv"
)

func TestPhaseTrackerTransitionsOnceOnCopyingTitle(t *testing.T) {
	var tracker PhaseTracker
	if tracker.Phase() != PhaseScanning {
		t.Fatalf("expected initial phase scanning, got %s", tracker.Phase())
	}

	events := []struct {
		ev      makemkv.Event
		entered bool
		copying bool
	}{
		{makemkv.ProgressTitle{Text: "Scanning CD-ROM devices"}, false, false},
		{makemkv.ProgressItem{Text: "Copying cluster map"}, false, false},
		{makemkv.ProgressValue{Total: 65536, Max: 65536}, false, false},
		{makemkv.ProgressTitle{Text: "COPYING all titles"}, true, true},
		{makemkv.ProgressTitle{Text: "Copying again"}, false, true},
		{makemkv.ProgressTitle{Text: "Analyzing seamless segments"}, false, true},
	}
	for i, tc := range events {
		if got := tracker.Observe(tc.ev); got != tc.entered {
			t.Fatalf("event %d: Observe = %v, want %v", i, got, tc.entered)
		}
		if tracker.Copying() != tc.copying {
			t.Fatalf("event %d: Copying = %v, want %v", i, tracker.Copying(), tc.copying)
		}
	}
	if tracker.Phase().String() != "copying" {
		t.Fatalf("unexpected phase string %q", tracker.Phase())
	}
}
