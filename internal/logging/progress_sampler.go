package logging

import "strings"

// checkpointFloor is where estimates stop moving in buckets and jump between
// finalization checkpoints; every change above it is worth reporting.
const checkpointFloor = 95

// ProgressSampler decides which progress updates reach logs and
// non-interactive terminals. Zero value is not usable; see NewProgressSampler.
type ProgressSampler struct {
	step  float64
	phase string
	last  float64
}

// NewProgressSampler reports once per step percent (5 when step <= 0), on
// every phase change and on every value above 95.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step, last: -1}
}

// ShouldLog records the update and reports whether to surface it. A negative
// percent is unknown progress; only a phase change surfaces it. A nil sampler
// surfaces everything.
func (s *ProgressSampler) ShouldLog(percent float64, phase string) bool {
	if s == nil {
		return true
	}
	emit := false
	if phase = strings.TrimSpace(phase); phase != "" && phase != s.phase {
		s.phase = phase
		s.last = -1
		emit = true
	}
	if percent < 0 || percent <= s.last {
		return emit
	}
	if s.last < 0 || percent > checkpointFloor || s.bucket(percent) > s.bucket(s.last) {
		emit = true
	}
	if emit {
		s.last = percent
	}
	return emit
}

func (s *ProgressSampler) bucket(percent float64) int {
	if percent >= 100 {
		percent = 100
	}
	return int(percent / s.step)
}
