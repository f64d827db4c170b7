package backup

import (
	"errors"
	"fmt"
	"strings"

	"discbackup/internal/services"
	"discbackup/internal/services/makemkv"
)

var (
	// ErrCancelled marks jobs stopped by Cancel, the caller's context or a
	// signal delivered to makemkvcon.
	ErrCancelled = services.ErrCancelled

	errJobCancelled = errors.New("job cancelled")
	errRipTimeout   = errors.New("rip deadline exceeded")
	errNoOutput     = errors.New("makemkvcon produced no output")
)

// RipError reports a failed disc read: a fatal classified message, a
// non-zero exit, a spawn failure or missing output.
type RipError struct {
	Exit    makemkv.Exit
	Records []ErrorRecord
	Stderr  []string
	Err     error
}

func (e *RipError) Error() string {
	var parts []string
	for _, rec := range e.Records {
		if rec.Severity == SeverityFatal {
			parts = append(parts, rec.String())
		}
	}
	if len(parts) == 0 && e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 && len(e.Stderr) > 0 {
		parts = append(parts, strings.Join(e.Stderr, "; "))
	}
	if len(parts) == 0 {
		parts = append(parts, "makemkvcon "+e.Exit.Kind.String())
	}
	return "rip failed: " + strings.Join(parts, "; ")
}

func (e *RipError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrExternalTool}
	}
	return []error{services.ErrExternalTool, e.Err}
}

// Fatal returns the fatal records.
func (e *RipError) Fatal() []ErrorRecord {
	var fatal []ErrorRecord
	for _, rec := range e.Records {
		if rec.Severity == SeverityFatal {
			fatal = append(fatal, rec)
		}
	}
	return fatal
}

// ProcessingError reports a finalization failure after a successful rip.
type ProcessingError struct {
	Step string
	Path string
	Err  error
}

func (e *ProcessingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("processing failed: %s %s: %v", e.Step, e.Path, e.Err)
	}
	return fmt.Sprintf("processing failed: %s: %v", e.Step, e.Err)
}

func (e *ProcessingError) Unwrap() []error {
	return []error{services.ErrProcessing, e.Err}
}

// fatalCause is the cancel cause used when a fatal message aborts the rip.
type fatalCause struct {
	record ErrorRecord
}

func (c *fatalCause) Error() string {
	return "fatal makemkv error: " + c.record.Message
}
