package logging

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneTranscripts deletes transcripts in dir last written before cutoff and
// returns how many went away. Files that cannot be removed are logged and
// skipped; a missing dir is not an error.
func PruneTranscripts(logger *slog.Logger, dir string, cutoff time.Time) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), TranscriptExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "transcript prune failed", "transcript_prune_failed",
				String("file", path),
				Error(err),
				String(FieldErrorHint, "check ownership of the transcript directory"),
				String(FieldImpact, "old transcript stays on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("transcript pruned", String("file", path), String(FieldEventType, "transcript_pruned"))
		}
	}
	return removed, nil
}
