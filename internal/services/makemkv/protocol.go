package makemkv

import (
	"strconv"
	"strings"
)

// Event is one parsed robot-mode line: ProgressValue, ProgressTitle,
// ProgressItem, or Message.
type Event interface {
	event()
}

// ProgressValue is a PRGV line. Total/Max is the overall ratio MakeMKV claims.
type ProgressValue struct {
	Current int
	Total   int
	Max     int
}

// ProgressTitle is a PRGT line announcing the current task.
type ProgressTitle struct {
	Code int
	ID   int
	Text string
}

// ProgressItem is a PRGC line announcing the current sub-task.
type ProgressItem struct {
	Code int
	ID   int
	Text string
}

// Message is a MSG line. Params holds the format string followed by the
// sprintf arguments. Code is 0 when the line did not match the expected shape,
// in which case Text is the raw payload.
type Message struct {
	Code   int
	Flags  int
	Count  int
	Text   string
	Params []string
}

func (ProgressValue) event() {}
func (ProgressTitle) event() {}
func (ProgressItem) event()  {}
func (Message) event()       {}

// Ratio returns Total/Max, or 0 when Max is not positive.
func (p ProgressValue) Ratio() float64 {
	if p.Max <= 0 {
		return 0
	}
	return float64(p.Total) / float64(p.Max)
}

// ParseLine converts one stdout line into an event. Lines without a known
// tag yield false.
func ParseLine(line string) (Event, bool) {
	line = strings.TrimRight(line, "\r\n")
	tag, payload, ok := strings.Cut(line, ":")
	if !ok {
		return nil, false
	}
	switch tag {
	case "PRGV":
		return parseProgressValue(payload)
	case "PRGT":
		code, id, text := parseProgressText(payload)
		return ProgressTitle{Code: code, ID: id, Text: text}, true
	case "PRGC":
		code, id, text := parseProgressText(payload)
		return ProgressItem{Code: code, ID: id, Text: text}, true
	case "MSG":
		return parseMessage(payload), true
	}
	return nil, false
}

func parseProgressValue(payload string) (Event, bool) {
	fields := SplitFields(payload)
	if len(fields) < 3 {
		return nil, false
	}
	var values [3]int
	for i := range values {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return ProgressValue{Current: values[0], Total: values[1], Max: values[2]}, true
}

func parseProgressText(payload string) (int, int, string) {
	fields := SplitFields(payload)
	if len(fields) < 3 {
		return 0, 0, strings.Join(fields, ",")
	}
	code, _ := strconv.Atoi(strings.TrimSpace(fields[0]))
	id, _ := strconv.Atoi(strings.TrimSpace(fields[1]))
	return code, id, strings.Join(fields[2:], ",")
}

func parseMessage(payload string) Message {
	raw := splitRaw(payload)
	if len(raw) < 4 || !isQuoted(raw[3]) {
		return Message{Text: payload}
	}
	var head [3]int
	for i := range head {
		v, err := strconv.Atoi(strings.TrimSpace(raw[i]))
		if err != nil {
			return Message{Text: payload}
		}
		head[i] = v
	}
	msg := Message{Code: head[0], Flags: head[1], Count: head[2], Text: unquote(raw[3])}
	if len(raw) > 4 {
		msg.Params = make([]string, 0, len(raw)-4)
		for _, field := range raw[4:] {
			msg.Params = append(msg.Params, unquote(field))
		}
	}
	return msg
}

// SplitFields splits a comma separated payload, treating commas inside double
// quotes as literal, and strips the surrounding quotes from each field.
func SplitFields(payload string) []string {
	raw := splitRaw(payload)
	for i, field := range raw {
		raw[i] = unquote(field)
	}
	return raw
}

func splitRaw(payload string) []string {
	var fields []string
	inQuote := false
	start := 0
	for i := 0; i < len(payload); i++ {
		switch payload[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				fields = append(fields, payload[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, payload[start:])
}

func isQuoted(field string) bool {
	field = strings.TrimSpace(field)
	return len(field) >= 2 && field[0] == '"' && field[len(field)-1] == '"'
}

func unquote(field string) string {
	field = strings.TrimSpace(field)
	if isQuoted(field) {
		return field[1 : len(field)-1]
	}
	return field
}

// MSGSummaryCounts returns the saved and failed counts carried by the MSG
// 5004 summary ("N titles saved, M failed").
func MSGSummaryCounts(msg Message) (saved, failed int, ok bool) {
	if msg.Code != MsgRipCompleted || len(msg.Params) < 2 {
		return 0, 0, false
	}
	saved, err := strconv.Atoi(strings.TrimSpace(msg.Params[1]))
	if err != nil {
		return 0, 0, false
	}
	if len(msg.Params) > 2 {
		failed, _ = strconv.Atoi(strings.TrimSpace(msg.Params[2]))
	}
	return saved, failed, true
}
