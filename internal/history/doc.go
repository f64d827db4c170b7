// Package history keeps a SQLite record of finished backup jobs.
//
// Store implements backup.Recorder: every terminal outcome becomes one row in
// jobs plus one row per MakeMKV error record in job_errors. The CLI reads it
// back for the history command. The schema is versioned in schema.go and is
// not migrated in place.
package history
