package logging

import "testing"

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "copying") {
		t.Error("nil sampler should always log")
	}
}

func TestProgressSamplerDefaultStep(t *testing.T) {
	for _, step := range []float64{0, -3} {
		if s := NewProgressSampler(step); s.step != 5 {
			t.Fatalf("NewProgressSampler(%v).step = %v, want 5", step, s.step)
		}
	}
}

func TestProgressSamplerSequence(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		phase   string
		want    bool
	}{
		{-1, "scanning", true},
		{-1, "scanning", false},
		{0, "copying", true},
		{2.5, "copying", false},
		{4.9, "copying", false},
		{5, "copying", true},
		{7, "copying", false},
		{3, "copying", false},
		{20, "copying", true},
		{94, "copying", true},
		{94, "copying", false},
		{96, "finalizing", true},
		{99, "finalizing", true},
		{99, "finalizing", false},
		{100, "finalizing", true},
		{100, "succeeded", true},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.phase); got != step.want {
			t.Fatalf("step %d ShouldLog(%v, %q) = %v, want %v", i, step.percent, step.phase, got, step.want)
		}
	}
}
