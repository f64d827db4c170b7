package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMakeMKV(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateProgress(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		return errors.New("paths.base_dir must be set")
	}
	return nil
}

func (c *Config) validateMakeMKV() error {
	switch c.MakeMKV.ExtractionMode {
	case ModeFull, ModeSmart:
	default:
		return fmt.Errorf("makemkv.extraction_mode must be %q or %q, got %q", ModeFull, ModeSmart, c.MakeMKV.ExtractionMode)
	}
	if c.MakeMKV.SourceIndex < 0 {
		return errors.New("makemkv.source_index must be >= 0")
	}
	if c.MakeMKV.ExtractionMode == ModeSmart && c.MakeMKV.MinTitleMinutes <= 0 {
		return errors.New("makemkv.min_title_minutes must be positive when extraction_mode is smart")
	}
	table := c.ProfileTable()
	if _, ok := table.Get(c.MakeMKV.Profile); !ok {
		return fmt.Errorf("makemkv.profile %q is not a known profile (have %s)", c.MakeMKV.Profile, strings.Join(table.Names(), ", "))
	}
	for discType, name := range c.MakeMKV.DiscTypeProfiles {
		if _, ok := table.Get(name); !ok {
			return fmt.Errorf("makemkv.disc_type_profiles.%s references unknown profile %q", discType, name)
		}
	}
	return nil
}

func (c *Config) validateProbe() error {
	if c.Probe.CompletePercent <= 0 || c.Probe.CompletePercent > 100 {
		return errors.New("probe.complete_percent must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateProgress() error {
	return ensurePositiveMap(map[string]int{
		"progress.poll_interval_ms":  c.Progress.PollIntervalMS,
		"progress.fallback_grace_ms": c.Progress.FallbackGraceMS,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
