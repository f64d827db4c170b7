package logging

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// TranscriptExt is appended to transcript file names.
const TranscriptExt = ".log.zst"

// Transcript stores the raw stdout and stderr lines of one makemkvcon run in
// a zstd stream. Each line is prefixed with a UTC timestamp and the stream name.
// A nil *Transcript discards writes.
type Transcript struct {
	path string

	mu     sync.Mutex
	file   *os.File
	enc    *zstd.Encoder
	buf    *bufio.Writer
	lines  int
	closed bool
}

// OpenTranscript creates dir/<name>.log.zst, truncating any previous file.
func OpenTranscript(dir, name string) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure transcript dir: %w", err)
	}
	path := filepath.Join(dir, name+TranscriptExt)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	return &Transcript{path: path, file: file, enc: enc, buf: bufio.NewWriter(enc)}, nil
}

// Path returns the transcript location.
func (t *Transcript) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Lines reports how many lines were written.
func (t *Transcript) Lines() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lines
}

// WriteLine appends one tool output line.
func (t *Transcript) WriteLine(stream, line string) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.buf.WriteString(time.Now().UTC().Format(time.RFC3339Nano))
	t.buf.WriteByte(' ')
	t.buf.WriteString(stream)
	t.buf.WriteByte(' ')
	t.buf.WriteString(strings.TrimRight(line, "\r\n"))
	if err := t.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	t.lines++
	return nil
}

// Close flushes and finalizes the zstd frame. Close is idempotent.
func (t *Transcript) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	flushErr := t.buf.Flush()
	encErr := t.enc.Close()
	fileErr := t.file.Close()
	for _, err := range []error{flushErr, encErr, fileErr} {
		if err != nil {
			return fmt.Errorf("close transcript: %w", err)
		}
	}
	return nil
}

// ReadTranscript decompresses a transcript written by OpenTranscript.
func ReadTranscript(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close()
	return readTranscript(file)
}

func readTranscript(r io.Reader) ([]string, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	defer dec.Close()
	var lines []string
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return lines, nil
}

// Handler returns a slog handler that appends records at or above level to
// the transcript under the "log" stream, so job events sit next to the tool
// output they explain. The record time is omitted since every transcript
// line already carries one.
func (t *Transcript) Handler(level slog.Leveler) slog.Handler {
	if t == nil {
		return nil
	}
	return slog.NewTextHandler(transcriptLogWriter{t}, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 && attr.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return attr
		},
	})
}

type transcriptLogWriter struct{ t *Transcript }

func (w transcriptLogWriter) Write(p []byte) (int, error) {
	if err := w.t.WriteLine("log", string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}
