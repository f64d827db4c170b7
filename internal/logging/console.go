package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// consoleHandler writes one line per record for people watching a backup:
//
//	2026-01-02 15:04:05 WARN  [backup] job 1a2b3c4d (copying) - recoverable makemkv error error_code=2003
//
// Below debug level, bookkeeping keys such as paths and run ids are counted
// instead of printed, and sizes, percentages and durations are humanized.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	bound     []field
	group     string
}

type field struct {
	key   string
	value slog.Value
}

// leadingKeys are printed first, in this order, when present.
var leadingKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDisc,
	FieldErrorCode,
	"error",
	FieldProgressPercent,
	"copied_bytes",
	"expected_bytes",
	"files_failed",
	"recovery_rate",
	FieldErrorHint,
	FieldImpact,
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: new(sync.Mutex), w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := slices.Clone(h.bound)
	record.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.group, a)
		return true
	})
	fields = orderFields(lastWins(fields))
	raw := record.Level < slog.LevelInfo

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, " %-5s", levelLabel(record.Level))
	if c := lookup(fields, FieldComponent); c != "" {
		b.WriteString(" [" + c + "]")
	}
	if s := subject(lookup(fields, FieldJobID), lookup(fields, FieldPhase)); s != "" {
		b.WriteString(" " + s)
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(" - " + msg)

	hidden := 0
	for _, f := range fields {
		switch {
		case f.key == FieldComponent || f.key == FieldJobID || f.key == FieldPhase:
			continue
		case !raw && bookkeeping(f.key):
			hidden++
			continue
		}
		b.WriteString(" " + f.key + "=" + quote(renderValue(f.key, f.value, raw)))
	}
	if hidden > 0 {
		fmt.Fprintf(&b, " (+%d hidden)", hidden)
	}
	if src := record.Source(); h.addSource && src != nil {
		b.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.bound = slices.Clone(h.bound)
	for _, a := range attrs {
		next.bound = appendField(next.bound, h.group, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() != slog.KindGroup {
		return append(dst, field{key: prefix + a.Key, value: a.Value})
	}
	if a.Key != "" {
		prefix += a.Key + "."
	}
	for _, inner := range a.Value.Group() {
		dst = appendField(dst, prefix, inner)
	}
	return dst
}

// lastWins keeps the first position of each key with its latest value.
func lastWins(fields []field) []field {
	at := make(map[string]int, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if i, ok := at[f.key]; ok {
			out[i].value = f.value
			continue
		}
		at[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func orderFields(fields []field) []field {
	rank := func(key string) int {
		if i := slices.Index(leadingKeys, key); i >= 0 {
			return i
		}
		return len(leadingKeys)
	}
	slices.SortStableFunc(fields, func(a, b field) int { return rank(a.key) - rank(b.key) })
	return fields
}

func lookup(fields []field, key string) string {
	for _, f := range fields {
		if f.key == key {
			return plain(f.value)
		}
	}
	return ""
}

// subject renders "job 1a2b3c4d (copying)" with the id cut to eight characters.
func subject(jobID, phase string) string {
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}
	switch {
	case jobID != "" && phase != "":
		return "job " + jobID + " (" + phase + ")"
	case jobID != "":
		return "job " + jobID
	case phase != "":
		return "(" + phase + ")"
	}
	return ""
}

func bookkeeping(key string) bool {
	switch key {
	case FieldRunID, "args", "binary", "transcript":
		return true
	}
	return strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir")
}

func renderValue(key string, v slog.Value, raw bool) string {
	if raw {
		return plain(v)
	}
	switch {
	case strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindInt64:
		if v.Int64() < 0 {
			return "unknown"
		}
		return humanize.IBytes(uint64(v.Int64()))
	case (strings.HasSuffix(key, "_percent") || key == "recovery_rate") && v.Kind() == slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 1, 64) + "%"
	case v.Kind() == slog.KindDuration:
		if d := v.Duration(); d >= time.Second {
			return d.Round(time.Second).String()
		}
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	s := plain(v)
	if key == "error" && len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func plain(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Local().Format(time.DateTime)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.String()
}

func quote(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
