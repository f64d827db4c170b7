package history

import (
	"database/sql"
	"time"
)

// Entry is one finished job.
type Entry struct {
	ID              string
	Name            string
	State           string
	Outcome         string
	Mode            string
	Profile         string
	ExpectedBytes   int64
	FinalPath       string
	FinalBytes      int64
	Format          string
	AlreadyComplete bool
	FilesSucceeded  int
	FilesFailed     int
	ErrorMessage    string
	TranscriptPath  string
	StartedAt       time.Time
	FinishedAt      time.Time
	Errors          []ErrorEntry
}

// Duration returns the wall time the job took.
func (e Entry) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// ErrorEntry is a persisted MakeMKV error record.
type ErrorEntry struct {
	Code      int
	Severity  string
	Kind      string
	File      string
	Offset    int64
	HasOffset bool
	Message   string
	Timestamp time.Time
}

const jobColumns = "id, name, state, outcome, mode, profile, expected_bytes, final_path, final_bytes, format, already_complete, files_succeeded, files_failed, error_message, transcript_path, started_at, finished_at"

const errorColumns = "code, severity, kind, file, offset_bytes, message, occurred_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry           Entry
		mode            sql.NullString
		profile         sql.NullString
		finalPath       sql.NullString
		format          sql.NullString
		alreadyComplete int64
		errorMessage    sql.NullString
		transcriptPath  sql.NullString
		startedRaw      string
		finishedRaw     string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.Name,
		&entry.State,
		&entry.Outcome,
		&mode,
		&profile,
		&entry.ExpectedBytes,
		&finalPath,
		&entry.FinalBytes,
		&format,
		&alreadyComplete,
		&entry.FilesSucceeded,
		&entry.FilesFailed,
		&errorMessage,
		&transcriptPath,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	entry.Mode = mode.String
	entry.Profile = profile.String
	entry.FinalPath = finalPath.String
	entry.Format = format.String
	entry.AlreadyComplete = alreadyComplete != 0
	entry.ErrorMessage = errorMessage.String
	entry.TranscriptPath = transcriptPath.String
	entry.StartedAt = parseTime(startedRaw)
	entry.FinishedAt = parseTime(finishedRaw)
	return &entry, nil
}

func scanError(scanner interface{ Scan(dest ...any) error }) (ErrorEntry, error) {
	var (
		rec      ErrorEntry
		file     sql.NullString
		offset   sql.NullInt64
		occurred string
	)
	if err := scanner.Scan(&rec.Code, &rec.Severity, &rec.Kind, &file, &offset, &rec.Message, &occurred); err != nil {
		return ErrorEntry{}, err
	}
	rec.File = file.String
	rec.Offset = offset.Int64
	rec.HasOffset = offset.Valid
	rec.Timestamp = parseTime(occurred)
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// timeLayout keeps a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
