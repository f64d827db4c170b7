// Package logging assembles the slog loggers used by discbackup.
//
// It owns the console and JSON handlers, tees records into the per-user log
// file, and exposes context helpers that tag lines with job ids, disc names,
// and correlation ids. Raw makemkvcon output is not logged line by line;
// it goes to a zstd-compressed transcript next to the logs instead.
package logging
