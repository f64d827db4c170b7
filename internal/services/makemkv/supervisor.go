package makemkv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultKillDelay is how long a cancelled makemkvcon gets to exit after
// SIGTERM before it is killed.
const DefaultKillDelay = 10 * time.Second

// Executor abstracts command execution for testability. Run blocks until the
// process exits and every output line has been delivered to the callbacks.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithKillDelay overrides the SIGTERM to SIGKILL grace period.
func WithKillDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.killDelay = d
		}
	}
}

// Client runs makemkvcon backups.
type Client struct {
	binary    string
	exec      Executor
	killDelay time.Duration
}

// New constructs a MakeMKV client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("makemkv binary required")
	}
	client := &Client{binary: binary, killDelay: DefaultKillDelay}
	for _, opt := range opts {
		opt(client)
	}
	if client.exec == nil {
		client.exec = commandExecutor{killDelay: client.killDelay}
	}
	return client, nil
}

// Binary returns the configured executable.
func (c *Client) Binary() string {
	return c.binary
}

// Backup runs one backup invocation and streams its output. Cancelling ctx
// terminates the process.
func (c *Client) Backup(ctx context.Context, args BackupArgs, onStdout, onStderr func(string)) error {
	if strings.TrimSpace(args.Destination) == "" {
		return errors.New("backup destination required")
	}
	return c.exec.Run(ctx, c.binary, BuildBackupArgs(args), onStdout, onStderr)
}

// ExitKind classifies how a makemkvcon process ended.
type ExitKind int

const (
	ExitSuccess ExitKind = iota
	ExitCode
	ExitSignaled
	ExitSpawnFailed
)

func (k ExitKind) String() string {
	switch k {
	case ExitSuccess:
		return "success"
	case ExitCode:
		return "exit_code"
	case ExitSignaled:
		return "signaled"
	case ExitSpawnFailed:
		return "spawn_failed"
	}
	return "unknown"
}

// Exit is the classified process outcome.
type Exit struct {
	Kind   ExitKind
	Code   int
	Signal string
}

// ExitError reports a non-successful process outcome.
type ExitError struct {
	Exit
	Err error
}

func (e *ExitError) Error() string {
	switch e.Kind {
	case ExitCode:
		return fmt.Sprintf("makemkvcon exited with code %d", e.Code)
	case ExitSignaled:
		return fmt.Sprintf("makemkvcon terminated by %s", e.Signal)
	case ExitSpawnFailed:
		return fmt.Sprintf("start makemkvcon: %v", e.Err)
	}
	return fmt.Sprintf("makemkvcon: %v", e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitStatus classifies the error returned by Executor.Run. Errors that are
// not *ExitError count as exit code -1.
func ExitStatus(err error) Exit {
	if err == nil {
		return Exit{Kind: ExitSuccess}
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Exit
	}
	return Exit{Kind: ExitCode, Code: -1}
}

type commandExecutor struct {
	killDelay time.Duration
}

func (e commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Cancel = func() error {
		return cmd.Process.Signal(unix.SIGTERM)
	}
	cmd.WaitDelay = e.killDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &ExitError{Exit: Exit{Kind: ExitSpawnFailed}, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &ExitError{Exit: Exit{Kind: ExitSpawnFailed}, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return &ExitError{Exit: Exit{Kind: ExitSpawnFailed}, Err: err}
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if forward != nil {
				forward(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)
	wg.Wait()

	waitErr := cmd.Wait()
	if waitErr == nil && scanErr != nil {
		return &ExitError{Exit: Exit{Kind: ExitCode, Code: -1}, Err: fmt.Errorf("scan output: %w", scanErr)}
	}
	return classifyWait(waitErr)
}

func classifyWait(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return &ExitError{Exit: Exit{Kind: ExitSignaled, Code: -1, Signal: unix.SignalName(status.Signal())}, Err: err}
		}
		return &ExitError{Exit: Exit{Kind: ExitCode, Code: exitErr.ExitCode()}, Err: err}
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ExitError{Exit: Exit{Kind: ExitSignaled, Code: -1, Signal: unix.SignalName(unix.SIGTERM)}, Err: err}
	}
	return &ExitError{Exit: Exit{Kind: ExitCode, Code: -1}, Err: err}
}
