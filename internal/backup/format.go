package backup

import (
	"fmt"
	"os"
	"strings"
)

// Format is the disc layout MakeMKV produced in the scratch path.
type Format string

const (
	FormatBluRay  Format = "bluray"
	FormatDVD     Format = "dvd"
	FormatHDDVD   Format = "hddvd"
	FormatImage   Format = "image"
	FormatUnknown Format = "unknown"
)

// Top-level marker directories per multi-file format family.
var formatMarkers = map[string]Format{
	"BDMV":     FormatBluRay,
	"VIDEO_TS": FormatDVD,
	"HVDVD_TS": FormatHDDVD,
}

// SingleFile reports whether the format is one archive-like file.
func (f Format) SingleFile() bool {
	return f == FormatImage
}

// DetectFormat inspects a scratch or backup path. A regular file is an image;
// a directory is identified by its top-level marker directory.
func DetectFormat(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("detect format: %w", err)
	}
	if info.Mode().IsRegular() {
		return FormatImage, nil
	}
	if !info.IsDir() {
		return FormatUnknown, fmt.Errorf("detect format: %s is neither file nor directory", path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("detect format: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if format, ok := formatMarkers[strings.ToUpper(entry.Name())]; ok {
			return format, nil
		}
	}
	return FormatUnknown, nil
}
