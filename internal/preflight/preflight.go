package preflight

import (
	"discbackup/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory checks for the given config. The directories
// are created first so a fresh install passes.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return []Result{{Name: "Directories", Detail: err.Error()}}
	}
	return []Result{
		CheckDirectoryAccess("Scratch directory", cfg.TempDir()),
		CheckDirectoryAccess("Backup directory", cfg.BackupDir()),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
