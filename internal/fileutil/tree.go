package fileutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// TreeCopyOptions tunes CopyTree.
type TreeCopyOptions struct {
	// MinBuffer and MaxBuffer bound the copy buffer; files smaller than
	// MaxBuffer use a buffer sized to the file (never below MinBuffer).
	MinBuffer int
	MaxBuffer int
	// Retries is the number of extra attempts per file after a failed copy.
	Retries int
	// RetryDelay is the first pause between attempts; later pauses grow
	// exponentially. Zero retries immediately.
	RetryDelay time.Duration
	// Verify reads every destination file back and compares its SHA-256
	// with the source.
	Verify bool
	// OnFile is called after each file lands in the destination.
	OnFile func(rel string, size int64)
}

// CopyTree recursively copies the directory src into dst, creating dst and any
// missing parents. Symlinks are not followed. Cancelling ctx stops the copy
// before the next file and interrupts any pending retry.
func CopyTree(ctx context.Context, src, dst string, opts TreeCopyOptions) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("copy tree: %s is not a directory", src)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if err := copyWithRetry(ctx, path, target, fi, opts); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		if opts.OnFile != nil {
			opts.OnFile(rel, fi.Size())
		}
		return nil
	})
}

func copyWithRetry(ctx context.Context, src, dst string, fi fs.FileInfo, opts TreeCopyOptions) error {
	bufSize := bufferFor(fi.Size(), opts.MinBuffer, opts.MaxBuffer)
	mode := fi.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	op := func() error {
		err := copyFile(src, dst, mode, bufSize, opts.Verify)
		if errors.Is(err, fs.ErrNotExist) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, retryPolicy(ctx, opts))
}

func retryPolicy(ctx context.Context, opts TreeCopyOptions) backoff.BackOff {
	var policy backoff.BackOff = &backoff.ZeroBackOff{}
	if opts.RetryDelay > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = opts.RetryDelay
		exp.MaxInterval = 30 * opts.RetryDelay
		exp.MaxElapsedTime = 0
		policy = exp
	}
	return backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(opts.Retries, 0))), ctx)
}

func bufferFor(size int64, minBuf, maxBuf int) int {
	if maxBuf <= 0 {
		maxBuf = defaultBufferSize
	}
	if minBuf <= 0 || minBuf > maxBuf {
		minBuf = min(defaultBufferSize, maxBuf)
	}
	switch {
	case size >= int64(maxBuf):
		return maxBuf
	case size <= int64(minBuf):
		return minBuf
	default:
		return int(size)
	}
}

// TreeSize returns the total size in bytes and the number of regular files
// under path. A regular file reports its own size and a count of one. A
// missing path reports zero without error.
func TreeSize(path string) (int64, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	if !info.IsDir() {
		return info.Size(), 1, nil
	}
	var total int64
	var files int
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Entries can vanish while MakeMKV renames temp files.
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		total += fi.Size()
		files++
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return total, files, nil
}
