package services

import (
	"errors"
	"fmt"
	"strings"
)

// Markers classify failures. Wrap attaches exactly one of them; callers test
// with errors.Is.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrProcessing    = errors.New("processing failed")
	ErrCancelled     = errors.New("cancelled")
)

// Wrap tags err with marker and prefixes the non-empty parts of
// component, operation and message. A nil marker means ErrTransient and a
// nil err yields a fresh error.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := joinNonEmpty(": ", component, operation, message)
	if detail == "" {
		detail = "service failure"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// Outcome maps a terminal job error to the label shown to users and stored
// in job history.
func Outcome(err error) string {
	if err == nil {
		return "succeeded"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.marker) {
			return o.label
		}
	}
	return "failed"
}

// outcomes is checked in order; cancellation wins over anything it caused.
var outcomes = []struct {
	marker error
	label  string
}{
	{ErrCancelled, "cancelled"},
	{ErrTimeout, "timed_out"},
	{ErrProcessing, "processing_failed"},
	{ErrValidation, "rejected"},
	{ErrConfiguration, "rejected"},
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
