// Package main hosts the discbackup CLI.
//
// The Cobra command tree wraps the backup engine: `backup` runs one job in the
// foreground and renders its progress, `status` probes an existing backup,
// `history` reads the job history database, and `profiles`, `config` and
// `doctor` help with setup. Configuration, logging and the history store are
// resolved once per invocation by commandContext.
package main
