package config

const (
	defaultConfigPath      = "~/.config/discbackup/config.toml"
	defaultBaseDir         = "~/discbackup"
	defaultLogDir          = "~/.local/share/discbackup/logs"
	defaultMakeMKVBinary   = "makemkvcon"
	defaultSevenZipBinary  = "7z"
	defaultExtractionMode  = ModeFull
	defaultMinTitleMinutes = 10
	defaultProfile         = "balanced"
	defaultCompletePercent = 95.0
	defaultNoiseFloorMB    = 10
	defaultPollIntervalMS  = 500
	defaultFallbackGraceMS = 5000
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultRetentionDays   = 30
)

// Extraction modes understood by the backup engine.
const (
	ModeFull  = "full"
	ModeSmart = "smart"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir: defaultBaseDir,
			LogDir:  defaultLogDir,
		},
		MakeMKV: MakeMKV{
			Binary:          defaultMakeMKVBinary,
			ExtractionMode:  defaultExtractionMode,
			MinTitleMinutes: defaultMinTitleMinutes,
			Profile:         defaultProfile,
			DiscTypeProfiles: map[string]string{
				"dvd":    "compatibility",
				"bluray": "balanced",
				"uhd":    "high-throughput",
			},
		},
		Extract: Extract{
			SevenZipBinary: defaultSevenZipBinary,
			VerifyCopies:   true,
			CheckFreeSpace: true,
		},
		Probe: Probe{
			CompletePercent: defaultCompletePercent,
			NoiseFloorMB:    defaultNoiseFloorMB,
		},
		Progress: Progress{
			PollIntervalMS:  defaultPollIntervalMS,
			FallbackGraceMS: defaultFallbackGraceMS,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			Transcripts:   true,
			RetentionDays: defaultRetentionDays,
		},
		History: History{
			Enabled: true,
		},
	}
}
