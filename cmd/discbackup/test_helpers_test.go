package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"discbackup/internal/config"
	"discbackup/internal/testsupport"
)

// stubMakeMKV replays a short robot-mode session and writes a small Blu-ray
// tree into the destination, which makemkvcon receives as its last argument.
const stubMakeMKV = `#!/bin/sh
for last; do :; done
mkdir -p "$last/BDMV/STREAM"
echo 'MSG:1005,0,1,"MakeMKV v1.17.7 started","%1 started","MakeMKV v1.17.7"'
echo 'PRGT:5038,0,"Copying disc data"'
head -c 4096 /dev/zero > "$last/BDMV/STREAM/00000.m2ts"
head -c 1024 /dev/zero > "$last/BDMV/index.bdmv"
echo 'MSG:5070,0,0,"Backup done"'
exit 0
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	makemkv := filepath.Join(binDir, "makemkvcon")
	if err := os.WriteFile(makemkv, []byte(stubMakeMKV), 0o755); err != nil {
		t.Fatalf("write makemkvcon stub: %v", err)
	}
	cfg.MakeMKV.Binary = makemkv
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
