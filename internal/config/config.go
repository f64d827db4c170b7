package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	BaseDir string `toml:"base_dir"`
	LogDir  string `toml:"log_dir"`
}

// MakeMKV contains configuration for the extraction tool.
type MakeMKV struct {
	Binary          string `toml:"binary"`
	SourceIndex     int    `toml:"source_index"`
	ExtractionMode  string `toml:"extraction_mode"`
	MinTitleMinutes int    `toml:"min_title_minutes"`
	Profile         string `toml:"profile"`
	// DiscTypeProfiles maps a disc type (dvd, bluray, uhd, hddvd) to the
	// profile name used when a job does not pick one explicitly.
	DiscTypeProfiles map[string]string `toml:"disc_type_profiles"`
}

// Extract contains configuration for post-processing.
type Extract struct {
	SevenZipBinary string `toml:"sevenzip_binary"`
	VerifyCopies   bool   `toml:"verify_copies"`
	CheckFreeSpace bool   `toml:"check_free_space"`
}

// Probe contains the thresholds used to judge existing backups.
type Probe struct {
	CompletePercent float64 `toml:"complete_percent"`
	NoiseFloorMB    int     `toml:"noise_floor_mb"`
}

// Progress contains the timing knobs for the filesystem polling estimator.
type Progress struct {
	PollIntervalMS  int `toml:"poll_interval_ms"`
	FallbackGraceMS int `toml:"fallback_grace_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format      string `toml:"format"`
	Level       string `toml:"level"`
	Transcripts bool   `toml:"transcripts"`

	// RetentionDays prunes job logs and transcripts older than this; 0 keeps everything.
	RetentionDays int `toml:"retention_days"`
}

// History contains configuration for the job history database.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for discbackup.
//
// Configuration sections by subsystem:
//   - Paths: base directory (temp/ and backup/ live below it) and logs
//   - MakeMKV: binary, source, extraction mode, profile selection
//   - Extract: archive helper and copy verification
//   - Probe: completeness threshold and noise floor
//   - Progress: polling interval and fallback grace period
//   - Profiles: performance profile overrides keyed by name
//   - Logging: log format and level
//   - History: sqlite job history
type Config struct {
	Paths        Paths                         `toml:"paths"`
	MakeMKV      MakeMKV                       `toml:"makemkv"`
	Extract      Extract                       `toml:"extract"`
	Probe        Probe                         `toml:"probe"`
	Progress     Progress                      `toml:"progress"`
	Profiles     map[string]PerformanceProfile `toml:"profiles"`
	ProfilesFile string                        `toml:"profiles_file"`
	Logging      Logging                       `toml:"logging"`
	History      History                       `toml:"history"`

	profiles ProfileTable
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("discbackup.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the backup engine writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.TempDir(), c.BackupDir(), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TempDir is the parent of every scratch path.
func (c *Config) TempDir() string {
	return filepath.Join(c.Paths.BaseDir, "temp")
}

// BackupDir is the parent of every finished backup.
func (c *Config) BackupDir() string {
	return filepath.Join(c.Paths.BaseDir, "backup")
}

// ScratchPath returns the scratch location for a sanitized disc name.
func (c *Config) ScratchPath(name string) string {
	return filepath.Join(c.TempDir(), name)
}

// BackupPath returns the final backup location for a sanitized disc name.
func (c *Config) BackupPath(name string) string {
	return filepath.Join(c.BackupDir(), name)
}

// HistoryPath returns the sqlite job history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// TranscriptDir returns where compressed MakeMKV transcripts are written.
func (c *Config) TranscriptDir() string {
	return filepath.Join(c.Paths.LogDir, "transcripts")
}

// PollInterval returns the filesystem polling cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Progress.PollIntervalMS) * time.Millisecond
}

// FallbackGrace returns how long to wait for a phase signal before polling anyway.
func (c *Config) FallbackGrace() time.Duration {
	return time.Duration(c.Progress.FallbackGraceMS) * time.Millisecond
}

// NoiseFloorBytes returns the probe noise floor in bytes.
func (c *Config) NoiseFloorBytes() int64 {
	return int64(c.Probe.NoiseFloorMB) * 1024 * 1024
}

// ProfileTable returns the resolved, read-only performance profile table.
func (c *Config) ProfileTable() ProfileTable {
	if c.profiles.Len() == 0 {
		return DefaultProfiles()
	}
	return c.profiles
}

// ProfileFor resolves the profile for a job. An explicit name wins, then the
// per-disc-type mapping, then the configured default profile.
func (c *Config) ProfileFor(explicit, discType string) (PerformanceProfile, error) {
	name := strings.TrimSpace(explicit)
	if name == "" {
		if mapped, ok := c.MakeMKV.DiscTypeProfiles[normalizeDiscType(discType)]; ok {
			name = mapped
		}
	}
	if name == "" {
		name = c.MakeMKV.Profile
	}
	profile, ok := c.ProfileTable().Get(name)
	if !ok {
		return PerformanceProfile{}, fmt.Errorf("unknown performance profile %q", name)
	}
	return profile, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
