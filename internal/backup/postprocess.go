package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"discbackup/internal/config"
	"discbackup/internal/fileutil"
	"discbackup/internal/logging"
)

// Extractor unpacks a single-file disc image into a directory.
type Extractor interface {
	Extract(ctx context.Context, archive, dest string) error
}

// Finalized describes the relocated backup.
type Finalized struct {
	FinalPath string
	SizeBytes int64
	Files     int
	Format    Format
}

// copyRetryDelay is the first pause before retrying a failed file copy.
const copyRetryDelay = 500 * time.Millisecond

// PostProcessor moves a finished rip from scratch into its final location.
type PostProcessor struct {
	extractor Extractor
	copyOpts  fileutil.TreeCopyOptions
	logger    *slog.Logger
}

// NewPostProcessor builds a post-processor whose tree copies use the
// profile's buffer bounds and retry count.
func NewPostProcessor(extractor Extractor, profile config.PerformanceProfile, verify bool, logger *slog.Logger) *PostProcessor {
	return &PostProcessor{
		extractor: extractor,
		copyOpts: fileutil.TreeCopyOptions{
			MinBuffer:  profile.MinBufferBytes(),
			MaxBuffer:  profile.MaxBufferBytes(),
			Retries:    profile.Retries,
			RetryDelay: copyRetryDelay,
			Verify:     verify,
		},
		logger: logging.NewComponentLogger(logger, "postprocess"),
	}
}

// Finalize relocates scratch to final and removes scratch. relocated is
// called once the data is in place, before scratch cleanup. Partial output at
// final is removed when relocation fails.
func (p *PostProcessor) Finalize(ctx context.Context, scratch, final string, relocated func()) (Finalized, error) {
	format, err := DetectFormat(scratch)
	if err != nil {
		return Finalized{}, &ProcessingError{Step: "inspect", Path: scratch, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return Finalized{}, &ProcessingError{Step: "prepare", Path: filepath.Dir(final), Err: err}
	}
	if err := os.RemoveAll(final); err != nil {
		return Finalized{}, &ProcessingError{Step: "prepare", Path: final, Err: err}
	}

	if format.SingleFile() {
		err = p.extract(ctx, scratch, final)
	} else {
		err = p.copyTree(ctx, scratch, final, format)
	}
	if err != nil {
		if rmErr := os.RemoveAll(final); rmErr != nil {
			p.logger.Warn("failed to remove partial backup", logging.String("final_path", final), logging.Error(rmErr))
		}
		return Finalized{}, err
	}
	if relocated != nil {
		relocated()
	}

	if err := os.RemoveAll(scratch); err != nil {
		return Finalized{}, &ProcessingError{Step: "cleanup", Path: scratch, Err: err}
	}
	size, files, err := fileutil.TreeSize(final)
	if err != nil {
		return Finalized{}, &ProcessingError{Step: "measure", Path: final, Err: err}
	}
	return Finalized{FinalPath: final, SizeBytes: size, Files: files, Format: format}, nil
}

func (p *PostProcessor) extract(ctx context.Context, scratch, final string) error {
	if p.extractor == nil {
		return &ProcessingError{Step: "extract", Path: scratch, Err: errors.New("no archive extractor configured")}
	}
	p.logger.Info("extracting disc image",
		logging.String(logging.FieldEventType, "extract_start"),
		logging.String("scratch_path", scratch),
		logging.String("final_path", final),
	)
	if err := p.extractor.Extract(ctx, scratch, final); err != nil {
		return &ProcessingError{Step: "extract", Path: scratch, Err: err}
	}
	return nil
}

func (p *PostProcessor) copyTree(ctx context.Context, scratch, final string, format Format) error {
	p.logger.Info("copying disc tree",
		logging.String(logging.FieldEventType, "copy_start"),
		logging.String("format", string(format)),
		logging.String("scratch_path", scratch),
		logging.String("final_path", final),
	)
	opts := p.copyOpts
	var copied int
	opts.OnFile = func(rel string, size int64) {
		copied++
		p.logger.Debug("copied file", logging.String("file", rel), logging.Int64("size_bytes", size))
	}
	if err := fileutil.CopyTree(ctx, scratch, final, opts); err != nil {
		return &ProcessingError{Step: "copy", Path: scratch, Err: fmt.Errorf("after %d files: %w", copied, err)}
	}
	return nil
}
