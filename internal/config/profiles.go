package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// PerformanceProfile is a named bundle of MakeMKV and copy tuning parameters.
type PerformanceProfile struct {
	Name           string `toml:"-" yaml:"-"`
	CacheMB        int    `toml:"cache_mb" yaml:"cache_mb"`
	MinBufferKB    int    `toml:"min_buffer_kb" yaml:"min_buffer_kb"`
	MaxBufferKB    int    `toml:"max_buffer_kb" yaml:"max_buffer_kb"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	SplitSizeMB    int    `toml:"split_size_mb" yaml:"split_size_mb"`
	Retries        int    `toml:"retries" yaml:"retries"`
}

// Timeout returns the rip deadline; zero means no deadline.
func (p PerformanceProfile) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// MinBufferBytes returns the minimum copy buffer in bytes.
func (p PerformanceProfile) MinBufferBytes() int { return p.MinBufferKB * 1024 }

// MaxBufferBytes returns the maximum copy buffer in bytes.
func (p PerformanceProfile) MaxBufferBytes() int { return p.MaxBufferKB * 1024 }

func (p PerformanceProfile) validate() error {
	switch {
	case p.CacheMB <= 0:
		return errors.New("cache_mb must be positive")
	case p.MinBufferKB <= 0:
		return errors.New("min_buffer_kb must be positive")
	case p.MaxBufferKB < p.MinBufferKB:
		return errors.New("max_buffer_kb must be >= min_buffer_kb")
	case p.TimeoutSeconds < 0:
		return errors.New("timeout_seconds must be >= 0")
	case p.SplitSizeMB < 0:
		return errors.New("split_size_mb must be >= 0")
	case p.Retries < 0:
		return errors.New("retries must be >= 0")
	}
	return nil
}

// ProfileOverride adjusts individual profile fields for a single job. Nil
// fields keep the profile value.
type ProfileOverride struct {
	CacheMB        *int
	MinBufferKB    *int
	MaxBufferKB    *int
	TimeoutSeconds *int
	SplitSizeMB    *int
	Retries        *int
}

// Apply returns a copy of p with the override applied.
func (o ProfileOverride) Apply(p PerformanceProfile) (PerformanceProfile, error) {
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.CacheMB, o.CacheMB)
	set(&p.MinBufferKB, o.MinBufferKB)
	set(&p.MaxBufferKB, o.MaxBufferKB)
	set(&p.TimeoutSeconds, o.TimeoutSeconds)
	set(&p.SplitSizeMB, o.SplitSizeMB)
	set(&p.Retries, o.Retries)
	if err := p.validate(); err != nil {
		return PerformanceProfile{}, fmt.Errorf("profile %s override: %w", p.Name, err)
	}
	return p, nil
}

// ProfileTable is an immutable set of named profiles. Methods never mutate
// the receiver; With returns a new table.
type ProfileTable struct {
	profiles map[string]PerformanceProfile
}

// DefaultProfiles returns the built-in presets.
func DefaultProfiles() ProfileTable {
	return ProfileTable{profiles: map[string]PerformanceProfile{
		"fast": {
			Name: "fast", CacheMB: 256, MinBufferKB: 1024, MaxBufferKB: 16384,
			TimeoutSeconds: 7200, Retries: 1,
		},
		"balanced": {
			Name: "balanced", CacheMB: 1024, MinBufferKB: 2048, MaxBufferKB: 32768,
			TimeoutSeconds: 10800, Retries: 2,
		},
		"compatibility": {
			Name: "compatibility", CacheMB: 128, MinBufferKB: 512, MaxBufferKB: 4096,
			TimeoutSeconds: 21600, SplitSizeMB: 4000, Retries: 5,
		},
		"high-throughput": {
			Name: "high-throughput", CacheMB: 2048, MinBufferKB: 8192, MaxBufferKB: 65536,
			TimeoutSeconds: 10800, Retries: 2,
		},
	}}
}

// NewProfileTable validates and wraps the provided profiles.
func NewProfileTable(profiles map[string]PerformanceProfile) (ProfileTable, error) {
	table := ProfileTable{profiles: make(map[string]PerformanceProfile, len(profiles))}
	for name, profile := range profiles {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return ProfileTable{}, errors.New("profile name must not be empty")
		}
		profile.Name = key
		if err := profile.validate(); err != nil {
			return ProfileTable{}, fmt.Errorf("profile %s: %w", key, err)
		}
		table.profiles[key] = profile
	}
	if len(table.profiles) == 0 {
		return ProfileTable{}, errors.New("profile table is empty")
	}
	return table, nil
}

// With returns a new table where the provided entries replace or extend the
// receiver's entries. Entries are replaced whole, never merged field by field.
func (t ProfileTable) With(entries map[string]PerformanceProfile) (ProfileTable, error) {
	merged := make(map[string]PerformanceProfile, len(t.profiles)+len(entries))
	for name, profile := range t.profiles {
		merged[name] = profile
	}
	for name, profile := range entries {
		merged[strings.ToLower(strings.TrimSpace(name))] = profile
	}
	return NewProfileTable(merged)
}

// Get returns the named profile.
func (t ProfileTable) Get(name string) (PerformanceProfile, bool) {
	profile, ok := t.profiles[strings.ToLower(strings.TrimSpace(name))]
	return profile, ok
}

// Names returns the profile names in sorted order.
func (t ProfileTable) Names() []string {
	names := make([]string, 0, len(t.profiles))
	for name := range t.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of profiles.
func (t ProfileTable) Len() int {
	return len(t.profiles)
}

type profileFile struct {
	Profiles map[string]PerformanceProfile `toml:"profiles" yaml:"profiles"`
}

// LoadProfileFile reads a complete profile table from a YAML (.yaml, .yml) or
// TOML file. The result replaces the built-in presets entirely.
func LoadProfileFile(path string) (ProfileTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ProfileTable{}, fmt.Errorf("read profiles: %w", err)
	}
	var file profileFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return ProfileTable{}, fmt.Errorf("parse yaml profiles: %w", err)
		}
	case ".toml", "":
		if err := toml.Unmarshal(data, &file); err != nil {
			return ProfileTable{}, fmt.Errorf("parse toml profiles: %w", err)
		}
	default:
		return ProfileTable{}, fmt.Errorf("unsupported profiles file extension %q", filepath.Ext(path))
	}
	return NewProfileTable(file.Profiles)
}
