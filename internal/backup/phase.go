package backup

import (
	"strings"

	"discbackup/internal/services/makemkv"
)

// Phase is MakeMKV's own coarse stage, inferred from PRGT announcements.
type Phase int

const (
	PhaseScanning Phase = iota
	PhaseCopying
)

func (p Phase) String() string {
	if p == PhaseCopying {
		return "copying"
	}
	return "scanning"
}

// PhaseTracker moves from scanning to copying the first time a progress title
// mentions copying. It never moves back.
type PhaseTracker struct {
	phase Phase
}

// Observe feeds one event to the tracker and reports whether it caused the
// transition into PhaseCopying.
func (t *PhaseTracker) Observe(ev makemkv.Event) bool {
	if t.phase == PhaseCopying {
		return false
	}
	title, ok := ev.(makemkv.ProgressTitle)
	if !ok {
		return false
	}
	if !strings.Contains(strings.ToLower(title.Text), "copying") {
		return false
	}
	t.phase = PhaseCopying
	return true
}

// Phase returns the current phase.
func (t *PhaseTracker) Phase() Phase {
	return t.phase
}

// Copying reports whether the copy phase has started.
func (t *PhaseTracker) Copying() bool {
	return t.phase == PhaseCopying
}
