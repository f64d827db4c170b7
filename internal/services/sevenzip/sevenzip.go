// Package sevenzip unpacks single-file disc backups with the 7z command line tool.
package sevenzip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"discbackup/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the extractor.
type Option func(*Extractor)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(e *Extractor) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// Extractor wraps 7z invocations.
type Extractor struct {
	binary string
	exec   Executor
}

// New constructs an extractor for the given 7z binary.
func New(binary string, opts ...Option) (*Extractor, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("7z binary required")
	}
	e := &Extractor{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ExtractArgs returns the 7z argument list that unpacks archive into dest.
func ExtractArgs(archive, dest string) []string {
	return []string{"x", "-y", "-o" + dest, archive}
}

// Extract unpacks every entry of archive into dest, creating dest first.
func (e *Extractor) Extract(ctx context.Context, archive, dest string) error {
	if strings.TrimSpace(archive) == "" || strings.TrimSpace(dest) == "" {
		return services.Wrap(services.ErrValidation, "extract", "validate", "archive and destination are required", nil)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return services.Wrap(services.ErrProcessing, "extract", "create destination", dest, err)
	}
	output, err := e.exec.Run(ctx, e.binary, ExtractArgs(archive, dest))
	if err != nil {
		detail := lastLine(output)
		if detail == "" {
			detail = "7z failed"
		}
		return services.Wrap(services.ErrExternalTool, "extract", "7z", detail, err)
	}
	return nil
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return buf.Bytes(), fmt.Errorf("run %s: %w", binary, err)
	}
	return buf.Bytes(), nil
}
