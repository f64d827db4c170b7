package backup

import "discbackup/internal/services/makemkv"

const (
	pollScale = 95.0
	// PollCeiling caps the polling estimate; the remaining headroom belongs to
	// the post-processing checkpoints.
	PollCeiling = 94.0

	CheckpointFinalizing = 96.0
	CheckpointRelocated  = 99.0
	CheckpointComplete   = 100.0
)

// ProgressSnapshot is one progress report for a job.
type ProgressSnapshot struct {
	Percent       float64
	BytesObserved int64
	BytesExpected int64
}

// PollCandidate converts a scratch size sample into a percentage.
func PollCandidate(observed, expected int64) float64 {
	if expected <= 0 || observed <= 0 {
		return 0
	}
	return min(float64(observed)/float64(expected)*pollScale, PollCeiling)
}

// Estimator fuses the filesystem polling signal with MakeMKV's native
// progress into one non-decreasing percentage.
//
// The native PRGV ratio is recorded but does not drive the public percent:
// makemkvcon in backup mode stops updating it once copying starts.
// ObserveNative is where a trusted native signal would be reconciled.
type Estimator struct {
	expected int64
	observed int64
	percent  float64

	native     float64
	nativeSeen bool
}

// NewEstimator returns an estimator for a disc of the given size.
func NewEstimator(expected int64) *Estimator {
	return &Estimator{expected: expected}
}

// ObservePoll applies a scratch size sample and reports whether the snapshot
// changed.
func (e *Estimator) ObservePoll(observed int64) bool {
	changed := observed != e.observed
	e.observed = observed
	if candidate := PollCandidate(observed, e.expected); candidate > e.percent {
		e.percent = candidate
		changed = true
	}
	return changed
}

// ObserveNative records a copy-phase PRGV sample.
func (e *Estimator) ObserveNative(v makemkv.ProgressValue) {
	e.native = v.Ratio() * 100
	e.nativeSeen = true
}

// ResetNative discards the native baseline, used when copying starts so the
// scan ramp is never blended in.
func (e *Estimator) ResetNative() {
	e.native = 0
	e.nativeSeen = false
}

// Native returns the last native percentage and whether one was seen since
// the last reset.
func (e *Estimator) Native() (float64, bool) {
	return e.native, e.nativeSeen
}

// Checkpoint raises the percent to a post-processing checkpoint. A positive
// observed size replaces the last sample.
func (e *Estimator) Checkpoint(percent float64, observed int64) ProgressSnapshot {
	if percent > e.percent {
		e.percent = percent
	}
	if observed > 0 {
		e.observed = observed
	}
	return e.Snapshot()
}

// Percent returns the current public percentage.
func (e *Estimator) Percent() float64 {
	return e.percent
}

// Snapshot returns the current progress.
func (e *Estimator) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{Percent: e.percent, BytesObserved: e.observed, BytesExpected: e.expected}
}
