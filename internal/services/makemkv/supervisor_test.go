package makemkv_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"discbackup/internal/services/makemkv"
)

type recordingExecutor struct {
	binary string
	args   []string
	stdout []string
	stderr []string
	err    error
}

func (r *recordingExecutor) Run(_ context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	r.binary = binary
	r.args = append([]string(nil), args...)
	for _, line := range r.stdout {
		onStdout(line)
	}
	for _, line := range r.stderr {
		onStderr(line)
	}
	return r.err
}

func TestClientBackupUsesExecutor(t *testing.T) {
	exec := &recordingExecutor{stdout: []string{"PRGV:0,0,1"}, stderr: []string{"warning"}}
	client, err := makemkv.New(" makemkvcon ", makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var out, errs []string
	err = client.Backup(context.Background(), makemkv.BackupArgs{Destination: "/tmp/x", CacheMB: 64},
		func(line string) { out = append(out, line) },
		func(line string) { errs = append(errs, line) })
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if exec.binary != "makemkvcon" || client.Binary() != "makemkvcon" {
		t.Fatalf("unexpected binary %q", exec.binary)
	}
	if !reflect.DeepEqual(exec.args, makemkv.BuildBackupArgs(makemkv.BackupArgs{Destination: "/tmp/x", CacheMB: 64})) {
		t.Fatalf("unexpected args %q", exec.args)
	}
	if len(out) != 1 || len(errs) != 1 {
		t.Fatalf("expected forwarded lines, got %v %v", out, errs)
	}
}

func TestClientValidation(t *testing.T) {
	if _, err := makemkv.New("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
	client, _ := makemkv.New("makemkvcon", makemkv.WithExecutor(&recordingExecutor{}))
	if err := client.Backup(context.Background(), makemkv.BackupArgs{}, nil, nil); err == nil {
		t.Fatal("expected error for missing destination")
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want makemkv.Exit
	}{
		{"nil", nil, makemkv.Exit{Kind: makemkv.ExitSuccess}},
		{"exit error", &makemkv.ExitError{Exit: makemkv.Exit{Kind: makemkv.ExitCode, Code: 3}}, makemkv.Exit{Kind: makemkv.ExitCode, Code: 3}},
		{"wrapped signal", errors.Join(errors.New("ctx"), &makemkv.ExitError{Exit: makemkv.Exit{Kind: makemkv.ExitSignaled, Code: -1, Signal: "SIGTERM"}}), makemkv.Exit{Kind: makemkv.ExitSignaled, Code: -1, Signal: "SIGTERM"}},
		{"foreign error", errors.New("boom"), makemkv.Exit{Kind: makemkv.ExitCode, Code: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := makemkv.ExitStatus(tt.err); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
