package backup

import (
	"fmt"
	"time"
)

// ErrorRecord is one classified MakeMKV error message.
type ErrorRecord struct {
	Message   string
	File      string
	Kind      ErrorKind
	Offset    int64
	HasOffset bool
	Severity  Severity
	Code      int
	Timestamp time.Time
}

func (r ErrorRecord) String() string {
	s := r.Message
	if r.File != "" {
		s += " [file " + r.File + "]"
	}
	if r.HasOffset {
		s += fmt.Sprintf(" [offset %d]", r.Offset)
	}
	return s
}

// Result is the terminal outcome of a successful or partially successful job.
// It is not modified after Run returns.
type Result struct {
	JobID              string
	Name               string
	FinalPath          string
	FinalSizeBytes     int64
	IsSingleFileFormat bool
	Format             Format
	PartialSuccess     bool
	ErrorRecords       []ErrorRecord
	FilesSucceeded     int
	FilesFailed        int
	AlreadyComplete    bool
	StartedAt          time.Time
	FinishedAt         time.Time
}

// RecoveryRate returns the percentage of files that were saved.
func (r *Result) RecoveryRate() float64 {
	if r == nil {
		return 0
	}
	total := r.FilesSucceeded + r.FilesFailed
	if total == 0 {
		return 100
	}
	return float64(r.FilesSucceeded) / float64(total) * 100
}

// Summary renders a one-line description of the result.
func (r *Result) Summary() string {
	if r == nil {
		return ""
	}
	switch {
	case r.AlreadyComplete:
		return fmt.Sprintf("backup already complete at %s", r.FinalPath)
	case r.PartialSuccess:
		return fmt.Sprintf("partial backup at %s: %d of %d files recovered (%.1f%%), %d recoverable errors",
			r.FinalPath, r.FilesSucceeded, r.FilesSucceeded+r.FilesFailed, r.RecoveryRate(), len(r.ErrorRecords))
	}
	return fmt.Sprintf("backup complete at %s", r.FinalPath)
}

// countFailedFiles counts distinct files named by recoverable records.
// Records without a file name share one bucket.
func countFailedFiles(records []ErrorRecord) int {
	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.Severity != SeverityRecoverable {
			continue
		}
		seen[rec.File] = struct{}{}
	}
	return len(seen)
}
