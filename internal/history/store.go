package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"discbackup/internal/backup"
	"discbackup/internal/services"
)

// dsn applies the pragmas on every pooled connection.
func dsn(path string) string {
	q := url.Values{}
	for _, p := range []string{"foreign_keys(1)", "busy_timeout(5000)", "journal_mode(WAL)"} {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Store persists job outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ backup.Recorder = (*Store)(nil)

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a terminal job outcome. Recording the same job id twice
// replaces the earlier row.
func (s *Store) Record(ctx context.Context, outcome backup.Outcome) error {
	if strings.TrimSpace(outcome.JobID) == "" {
		return errors.New("record outcome: job id required")
	}
	entry := entryFromOutcome(outcome)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, entry.ID); err != nil {
		return fmt.Errorf("replace job: %w", err)
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, name, state, outcome, mode, profile, expected_bytes, final_path,
            final_bytes, format, already_complete, files_succeeded, files_failed,
            error_message, transcript_path, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Name,
		entry.State,
		entry.Outcome,
		nullableString(entry.Mode),
		nullableString(entry.Profile),
		entry.ExpectedBytes,
		nullableString(entry.FinalPath),
		entry.FinalBytes,
		nullableString(entry.Format),
		boolToInt(entry.AlreadyComplete),
		entry.FilesSucceeded,
		entry.FilesFailed,
		nullableString(entry.ErrorMessage),
		nullableString(entry.TranscriptPath),
		formatTime(entry.StartedAt),
		formatTime(entry.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	for i, rec := range entry.Errors {
		var offset any
		if rec.HasOffset {
			offset = rec.Offset
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO job_errors (
                job_id, seq, code, severity, kind, file, offset_bytes, message, occurred_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			i,
			rec.Code,
			rec.Severity,
			rec.Kind,
			nullableString(rec.File),
			offset,
			rec.Message,
			formatTime(rec.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("insert job error %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// List returns the most recent jobs first. A limit <= 0 returns everything.
// Error records are not loaded; use Get for those.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY finished_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return entries, nil
}

// Get returns one job with its error records, or nil when id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+errorColumns+` FROM job_errors WHERE job_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load job errors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanError(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job error: %w", err)
		}
		entry.Errors = append(entry.Errors, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job errors: %w", err)
	}
	return entry, nil
}

// Prune deletes jobs that finished before cutoff and reports how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE finished_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}

func entryFromOutcome(outcome backup.Outcome) Entry {
	entry := Entry{
		ID:             outcome.JobID,
		Name:           outcome.Name,
		State:          outcome.State.String(),
		Outcome:        services.Outcome(outcome.Err),
		Mode:           outcome.Mode,
		Profile:        outcome.Profile,
		ExpectedBytes:  outcome.ExpectedBytes,
		TranscriptPath: outcome.TranscriptPath,
		StartedAt:      outcome.StartedAt.UTC(),
		FinishedAt:     outcome.FinishedAt.UTC(),
	}
	if outcome.Err != nil {
		entry.ErrorMessage = outcome.Err.Error()
	}
	if outcome.State == backup.StatePartialSuccess {
		entry.Outcome = "partial_success"
	}
	if res := outcome.Result; res != nil {
		entry.FinalPath = res.FinalPath
		entry.FinalBytes = res.FinalSizeBytes
		entry.Format = string(res.Format)
		entry.AlreadyComplete = res.AlreadyComplete
		entry.FilesSucceeded = res.FilesSucceeded
		entry.FilesFailed = res.FilesFailed
		entry.Errors = errorsFromRecords(res.ErrorRecords)
	}
	var ripErr *backup.RipError
	if errors.As(outcome.Err, &ripErr) {
		entry.Errors = errorsFromRecords(ripErr.Records)
	}
	return entry
}

func errorsFromRecords(records []backup.ErrorRecord) []ErrorEntry {
	if len(records) == 0 {
		return nil
	}
	out := make([]ErrorEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, ErrorEntry{
			Code:      rec.Code,
			Severity:  rec.Severity.String(),
			Kind:      string(rec.Kind),
			File:      rec.File,
			Offset:    rec.Offset,
			HasOffset: rec.HasOffset,
			Message:   rec.Message,
			Timestamp: rec.Timestamp.UTC(),
		})
	}
	return out
}
