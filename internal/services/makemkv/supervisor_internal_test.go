package makemkv

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

func requireShell(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return path
}

func TestCommandExecutorStreamsLinesAndExitCode(t *testing.T) {
	sh := requireShell(t)
	var mu sync.Mutex
	var stdout, stderr []string
	err := commandExecutor{killDelay: time.Second}.Run(context.Background(), sh,
		[]string{"-c", `echo 'PRGT:5018,0,"Copying"'; echo oops 1>&2; echo 'PRGV:1,2,3'; exit 3`},
		func(line string) { mu.Lock(); stdout = append(stdout, line); mu.Unlock() },
		func(line string) { mu.Lock(); stderr = append(stderr, line); mu.Unlock() },
	)
	status := ExitStatus(err)
	if status.Kind != ExitCode || status.Code != 3 {
		t.Fatalf("expected exit code 3, got %+v (%v)", status, err)
	}
	if len(stdout) != 2 || !strings.HasPrefix(stdout[0], "PRGT:") {
		t.Fatalf("unexpected stdout %q", stdout)
	}
	if len(stderr) != 1 || stderr[0] != "oops" {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestCommandExecutorSuccess(t *testing.T) {
	sh := requireShell(t)
	err := commandExecutor{killDelay: time.Second}.Run(context.Background(), sh, []string{"-c", "exit 0"}, nil, nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCommandExecutorCancelSendsSigterm(t *testing.T) {
	sh := requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once
	done := make(chan error, 1)
	go func() {
		done <- commandExecutor{killDelay: 2 * time.Second}.Run(ctx, sh, []string{"-c", "echo ready; exec sleep 30"},
			func(string) { once.Do(func() { close(started) }) }, nil)
	}()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not start")
	}
	cancel()
	select {
	case err := <-done:
		status := ExitStatus(err)
		if status.Kind != ExitSignaled {
			t.Fatalf("expected signaled exit, got %+v (%v)", status, err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("cancel did not stop the process")
	}
}

func TestCommandExecutorSpawnFailure(t *testing.T) {
	err := commandExecutor{}.Run(context.Background(), "/nonexistent/makemkvcon", nil, nil, nil)
	if status := ExitStatus(err); status.Kind != ExitSpawnFailed {
		t.Fatalf("expected spawn failure, got %+v", status)
	}
}
