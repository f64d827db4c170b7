// Package makemkv mediates access to makemkvcon in backup mode.
//
// It builds the backup command line, runs the tool through an Executor that
// streams stdout and stderr line by line, and parses robot-mode output
// (PRGV/PRGT/PRGC/MSG) into typed events. Interpretation of those events
// (phases, progress, error severity) belongs to the backup package.
//
// Prefer this package over ad-hoc exec.Command usage so cancellation and exit
// classification stay consistent.
package makemkv
