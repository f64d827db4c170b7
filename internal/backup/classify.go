package backup

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"discbackup/internal/services/makemkv"
)

// Severity tells the job whether an error record stops the rip.
type Severity int

const (
	SeverityRecoverable Severity = iota + 1
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityRecoverable:
		return "recoverable"
	case SeverityFatal:
		return "fatal"
	}
	return "unknown"
}

// ErrorKind is the coarse category extracted from a message.
type ErrorKind string

const (
	KindHashCheck   ErrorKind = "hash_check"
	KindReadError   ErrorKind = "read_error"
	KindSaveFailure ErrorKind = "save_failure"
	KindUnknown     ErrorKind = "unknown"
)

// Fatal patterns are checked before recoverable ones.
var fatalPatterns = []string{
	"out of memory",
	"disk full",
	"no space left",
	"not enough space",
	"cannot create",
	"can't create",
	"permission denied",
	"access denied",
	"destination folder",
	"invalid",
	"fatal",
}

var recoverablePatterns = []string{
	"hash check failed",
	"hash check error",
	"read error",
	"error reading",
	"scsi error",
	"cancelled by user",
	"canceled by user",
	"operation cancelled",
	"operation canceled",
	"bad sector",
}

// errorVocabulary marks messages without a known error code as errors.
var errorVocabulary = []string{
	"error",
	"failed",
	"failure",
	"cannot",
	"can't",
	"denied",
	"fatal",
	"invalid",
	"out of memory",
	"no space left",
	"disk full",
	"bad sector",
}

var (
	filePattern    = regexp.MustCompile(`(?i)\b(?:file|title)\s+['"]?([^\s'",]+)`)
	offsetPattern  = regexp.MustCompile(`(?i)\boffset\s*:?\s*'?(\d+)`)
	atBytesPattern = regexp.MustCompile(`(?i)\bat\s+(\d+)\s+bytes?\b`)
)

// Classify decides whether error text is recoverable or fatal. Unmatched text
// is fatal.
func Classify(text string) Severity {
	lower := strings.ToLower(text)
	if containsAny(lower, fatalPatterns) {
		return SeverityFatal
	}
	if containsAny(lower, recoverablePatterns) {
		return SeverityRecoverable
	}
	return SeverityFatal
}

// Detail is the structured information pulled out of an error message.
type Detail struct {
	File      string
	Kind      ErrorKind
	Offset    int64
	HasOffset bool
}

// ExtractDetail parses the file, kind and byte offset out of a message.
func ExtractDetail(text string) Detail {
	detail := Detail{Kind: errorKind(strings.ToLower(text))}
	if m := filePattern.FindStringSubmatch(text); m != nil {
		detail.File = strings.TrimRight(m[1], ".:;)")
	}
	for _, pattern := range []*regexp.Regexp{offsetPattern, atBytesPattern} {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			detail.Offset = v
			detail.HasOffset = true
			break
		}
	}
	return detail
}

func errorKind(lower string) ErrorKind {
	switch {
	case strings.Contains(lower, "hash check"):
		return KindHashCheck
	case containsAny(lower, []string{"read error", "error reading", "scsi error", "bad sector"}):
		return KindReadError
	case containsAny(lower, []string{"failed to save", "save failed", "saving failed", "write error", "failed to write"}):
		return KindSaveFailure
	}
	return KindUnknown
}

// IsSuccessCode reports whether a MSG code is a known success notice. These
// messages never enter classification.
func IsSuccessCode(code int) bool {
	return makemkv.IsSuccessCode(code)
}

// IsErrorMessage reports whether a MSG line describes an error at all.
func IsErrorMessage(msg makemkv.Message) bool {
	if IsSuccessCode(msg.Code) || msg.Code == makemkv.MsgRipCompleted {
		return false
	}
	if makemkv.IsErrorCode(msg.Code) || makemkv.IsLicenseCode(msg.Code) {
		return true
	}
	return containsAny(strings.ToLower(msg.Text), errorVocabulary)
}

// NewErrorRecord classifies an error message. Expired license codes are
// always fatal.
func NewErrorRecord(msg makemkv.Message, at time.Time) ErrorRecord {
	severity := Classify(msg.Text)
	if makemkv.IsLicenseCode(msg.Code) {
		severity = SeverityFatal
	}
	detail := ExtractDetail(msg.Text)
	return ErrorRecord{
		Message:   msg.Text,
		File:      detail.File,
		Kind:      detail.Kind,
		Offset:    detail.Offset,
		HasOffset: detail.HasOffset,
		Severity:  severity,
		Code:      msg.Code,
		Timestamp: at,
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
