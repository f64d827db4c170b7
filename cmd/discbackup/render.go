package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

// statusStyles is indexed by statusKind.
var statusStyles = [...]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const fieldWidth = 20

// renderStatusLine formats "  Label:   [OK] message", colored on terminals.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	line := renderField(label, strings.TrimSpace("["+style.label+"] "+message))
	if !colorize {
		return line
	}
	return style.color + line + "\x1b[0m"
}

func renderField(label, value string) string {
	return fmt.Sprintf("  %-*s %s", fieldWidth, label+":", value)
}

func renderSectionHeader(title string) []string {
	title = strings.TrimSpace(title)
	return []string{title, strings.Repeat("=", len(title))}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
