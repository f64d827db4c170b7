package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

const defaultBufferSize = 32 * 1024

// errCopyMismatch marks a destination that does not match its source after
// a verified copy.
var errCopyMismatch = errors.New("copy verification failed")

// copyFile streams src into dst through a buffer of bufSize bytes. With
// verify set, dst is read back from disk and its size and SHA-256 are compared
// with what was read from src; a mismatching dst is removed.
func copyFile(src, dst string, mode os.FileMode, bufSize int, verify bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	buf := make([]byte, bufSize)

	var reader io.Reader = in
	var srcHash hash.Hash
	if verify {
		srcHash = sha256.New()
		reader = io.TeeReader(in, srcHash)
	}
	written, err := io.CopyBuffer(out, reader, buf)
	if err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if !verify {
		return nil
	}

	dstSize, dstSum, err := hashFile(dst, buf)
	if err != nil {
		return fmt.Errorf("read back %s: %w", dst, err)
	}
	switch {
	case dstSize != written:
		_ = os.Remove(dst)
		return fmt.Errorf("%w: %s has %d bytes, expected %d", errCopyMismatch, dst, dstSize, written)
	case !bytes.Equal(dstSum, srcHash.Sum(nil)):
		_ = os.Remove(dst)
		return fmt.Errorf("%w: %s checksum differs from source", errCopyMismatch, dst)
	}
	return nil
}

func hashFile(path string, buf []byte) (int64, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.CopyBuffer(h, f, buf)
	if err != nil {
		return 0, nil, err
	}
	return n, h.Sum(nil), nil
}
