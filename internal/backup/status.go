package backup

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"os"
	"path/filepath"

	"discbackup/internal/config"
	"discbackup/internal/fileutil"
)

// Status is the probe verdict for one disc.
type Status string

const (
	StatusNone             Status = "none"
	StatusComplete         Status = "complete"
	StatusIncompleteBackup Status = "incomplete_backup"
	StatusIncompleteTemp   Status = "incomplete_temp"
)

// Thresholds are the knobs the probe judges sizes with.
type Thresholds struct {
	// CompletePercent is the minimum size ratio of a complete backup.
	CompletePercent float64
	// NoiseFloorBytes separates real partial output from stale leftovers.
	NoiseFloorBytes int64
}

// DefaultThresholds returns 95% and 10 MiB.
func DefaultThresholds() Thresholds {
	return Thresholds{CompletePercent: 95, NoiseFloorBytes: 10 * 1024 * 1024}
}

// ThresholdsFromConfig reads the probe section.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{CompletePercent: cfg.Probe.CompletePercent, NoiseFloorBytes: cfg.NoiseFloorBytes()}
}

// percentScale is the 1/1000 percent resolution of IsComplete.
const percentScale = 1000

// IsComplete reports backupSize/discSize*100 >= thresholdPercent. The
// comparison is done in integers so 95.000% passes a 95% threshold and
// 94.999% does not. A non-positive disc size is never complete.
func IsComplete(backupSize, discSize int64, thresholdPercent float64) bool {
	if discSize <= 0 || backupSize < 0 {
		return false
	}
	threshold := int64(math.Round(thresholdPercent * percentScale))
	lhs := new(big.Int).Mul(big.NewInt(backupSize), big.NewInt(100*percentScale))
	rhs := new(big.Int).Mul(big.NewInt(discSize), big.NewInt(threshold))
	return lhs.Cmp(rhs) >= 0
}

// StatusReport is the probe outcome for one disc.
type StatusReport struct {
	Name          string
	Status        Status
	Path          string
	SizeBytes     int64
	Files         int
	ExpectedBytes int64
	Percent       float64
	SingleFile    bool
	// Leftovers are stale or incomplete paths to delete before a new attempt.
	Leftovers []string
}

// Probe inspects the backup and scratch directories.
type Probe struct {
	tempDir    string
	backupDir  string
	thresholds Thresholds
}

// NewProbe builds a probe for the configured layout.
func NewProbe(cfg *config.Config) *Probe {
	return NewProbeWithThresholds(cfg.TempDir(), cfg.BackupDir(), ThresholdsFromConfig(cfg))
}

// NewProbeWithThresholds builds a probe with explicit directories and thresholds.
func NewProbeWithThresholds(tempDir, backupDir string, thresholds Thresholds) *Probe {
	return &Probe{tempDir: tempDir, backupDir: backupDir, thresholds: thresholds}
}

// Thresholds returns the probe thresholds.
func (p *Probe) Thresholds() Thresholds {
	return p.thresholds
}

// Check reports whether a complete, incomplete or no backup exists for name.
// The final backup path is inspected before the scratch path.
func (p *Probe) Check(name string, expected int64) (StatusReport, error) {
	report := StatusReport{Name: name, Status: StatusNone, ExpectedBytes: expected}

	finalPath := filepath.Join(p.backupDir, name)
	exists, isFile, err := statPath(finalPath)
	if err != nil {
		return report, fmt.Errorf("probe backup: %w", err)
	}
	if exists {
		size, files, err := fileutil.TreeSize(finalPath)
		if err != nil {
			return report, fmt.Errorf("probe backup: %w", err)
		}
		if p.complete(size, expected) {
			report.Status = StatusComplete
			report.Path = finalPath
			report.SizeBytes = size
			report.Files = files
			report.SingleFile = isFile
			report.Percent = ratioPercent(size, expected)
			return report, nil
		}
		if size > p.thresholds.NoiseFloorBytes {
			report.Status = StatusIncompleteBackup
			report.Path = finalPath
			report.SizeBytes = size
			report.Files = files
			report.SingleFile = isFile
			report.Percent = ratioPercent(size, expected)
		}
		report.Leftovers = append(report.Leftovers, finalPath)
		if report.Status == StatusIncompleteBackup {
			return p.withScratchLeftover(report, name)
		}
	}

	scratchPath := filepath.Join(p.tempDir, name)
	exists, isFile, err = statPath(scratchPath)
	if err != nil {
		return report, fmt.Errorf("probe scratch: %w", err)
	}
	if !exists {
		return report, nil
	}
	size, files, err := fileutil.TreeSize(scratchPath)
	if err != nil {
		return report, fmt.Errorf("probe scratch: %w", err)
	}
	report.Leftovers = append(report.Leftovers, scratchPath)
	if files == 0 || size < p.thresholds.NoiseFloorBytes {
		return report, nil
	}
	report.Status = StatusIncompleteTemp
	report.Path = scratchPath
	report.SizeBytes = size
	report.Files = files
	report.SingleFile = isFile
	report.Percent = ratioPercent(size, expected)
	return report, nil
}

func (p *Probe) withScratchLeftover(report StatusReport, name string) (StatusReport, error) {
	scratchPath := filepath.Join(p.tempDir, name)
	exists, _, err := statPath(scratchPath)
	if err != nil {
		return report, fmt.Errorf("probe scratch: %w", err)
	}
	if exists {
		report.Leftovers = append(report.Leftovers, scratchPath)
	}
	return report, nil
}

// complete applies the threshold; an unknown expected size accepts anything
// above the noise floor.
func (p *Probe) complete(size, expected int64) bool {
	if expected <= 0 {
		return size > p.thresholds.NoiseFloorBytes
	}
	return IsComplete(size, expected, p.thresholds.CompletePercent)
}

// Clean deletes the report's leftovers.
func (p *Probe) Clean(report StatusReport) error {
	var errs []error
	for _, path := range report.Leftovers {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func statPath(path string) (exists, isFile bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, info.Mode().IsRegular(), nil
}

func ratioPercent(size, expected int64) float64 {
	if expected <= 0 {
		return 0
	}
	return float64(size) / float64(expected) * 100
}
