package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMakeMKV()
	c.normalizeExtract()
	c.normalizeProbe()
	c.normalizeProgress()
	if err := c.normalizeProfiles(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		if value, ok := os.LookupEnv("DISCBACKUP_BASE_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.BaseDir = value
		} else {
			c.Paths.BaseDir = defaultBaseDir
		}
	}
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMakeMKV() {
	c.MakeMKV.Binary = strings.TrimSpace(c.MakeMKV.Binary)
	if c.MakeMKV.Binary == "" {
		c.MakeMKV.Binary = defaultMakeMKVBinary
	}
	c.MakeMKV.ExtractionMode = strings.ToLower(strings.TrimSpace(c.MakeMKV.ExtractionMode))
	if c.MakeMKV.ExtractionMode == "" {
		c.MakeMKV.ExtractionMode = defaultExtractionMode
	}
	c.MakeMKV.Profile = strings.TrimSpace(c.MakeMKV.Profile)
	if c.MakeMKV.Profile == "" {
		c.MakeMKV.Profile = defaultProfile
	}
	if len(c.MakeMKV.DiscTypeProfiles) > 0 {
		mapped := make(map[string]string, len(c.MakeMKV.DiscTypeProfiles))
		for discType, profile := range c.MakeMKV.DiscTypeProfiles {
			key := normalizeDiscType(discType)
			value := strings.TrimSpace(profile)
			if key == "" || value == "" {
				continue
			}
			mapped[key] = value
		}
		c.MakeMKV.DiscTypeProfiles = mapped
	}
}

func (c *Config) normalizeExtract() {
	c.Extract.SevenZipBinary = strings.TrimSpace(c.Extract.SevenZipBinary)
	if c.Extract.SevenZipBinary == "" {
		c.Extract.SevenZipBinary = defaultSevenZipBinary
	}
}

func (c *Config) normalizeProbe() {
	if c.Probe.CompletePercent <= 0 {
		c.Probe.CompletePercent = defaultCompletePercent
	}
	if c.Probe.NoiseFloorMB < 0 {
		c.Probe.NoiseFloorMB = 0
	}
}

func (c *Config) normalizeProgress() {
	if c.Progress.PollIntervalMS <= 0 {
		c.Progress.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Progress.FallbackGraceMS <= 0 {
		c.Progress.FallbackGraceMS = defaultFallbackGraceMS
	}
}

func (c *Config) normalizeProfiles() error {
	c.ProfilesFile = strings.TrimSpace(c.ProfilesFile)
	if c.ProfilesFile != "" {
		path, err := expandPath(c.ProfilesFile)
		if err != nil {
			return fmt.Errorf("profiles_file: %w", err)
		}
		c.ProfilesFile = path
		table, err := LoadProfileFile(path)
		if err != nil {
			return fmt.Errorf("profiles_file: %w", err)
		}
		c.profiles = table
		return nil
	}
	table, err := DefaultProfiles().With(c.Profiles)
	if err != nil {
		return fmt.Errorf("profiles: %w", err)
	}
	c.profiles = table
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func normalizeDiscType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.NewReplacer("-", "", "_", "", " ", "").Replace(v)
	switch v {
	case "bd", "bluray", "bdrom":
		return "bluray"
	case "uhd", "4k", "uhdbluray", "4kbluray":
		return "uhd"
	case "hddvd":
		return "hddvd"
	default:
		return v
	}
}
