package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"

	"discbackup/internal/config"
	"discbackup/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// SpaceRequirement asks for Bytes of free space on the filesystem holding Path.
type SpaceRequirement struct {
	Name  string
	Path  string
	Bytes int64
}

// UsageFunc reports free bytes for an existing path.
type UsageFunc func(path string) (uint64, error)

// DiskFree reports free bytes using gopsutil.
func DiskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// CheckFreeSpace verifies each requirement. Requirements whose paths live on
// the same filesystem are summed, since the scratch copy and the final copy
// coexist until cleanup. Paths that do not exist yet are resolved to their
// nearest existing ancestor.
func CheckFreeSpace(usage UsageFunc, reqs ...SpaceRequirement) []Result {
	if usage == nil {
		usage = DiskFree
	}
	type group struct {
		names []string
		path  string
		bytes int64
	}
	var order []uint64
	groups := make(map[uint64]*group)
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		if req.Bytes <= 0 {
			continue
		}
		existing, err := nearestExisting(req.Path)
		if err != nil {
			results = append(results, Result{Name: req.Name, Detail: fmt.Sprintf("%s (error: %v)", req.Path, err)})
			continue
		}
		dev, err := deviceOf(existing)
		if err != nil {
			results = append(results, Result{Name: req.Name, Detail: fmt.Sprintf("%s (error: stat: %v)", existing, err)})
			continue
		}
		g, ok := groups[dev]
		if !ok {
			g = &group{path: existing}
			groups[dev] = g
			order = append(order, dev)
		}
		g.names = append(g.names, req.Name)
		g.bytes += req.Bytes
	}
	for _, dev := range order {
		g := groups[dev]
		name := g.names[0]
		if len(g.names) > 1 {
			name = fmt.Sprintf("%s (+%d shared)", name, len(g.names)-1)
		}
		free, err := usage(g.path)
		if err != nil {
			results = append(results, Result{Name: name, Detail: fmt.Sprintf("%s (error: usage: %v)", g.path, err)})
			continue
		}
		detail := fmt.Sprintf("%s free on %s, need %s", humanize.IBytes(free), g.path, humanize.IBytes(uint64(g.bytes)))
		results = append(results, Result{Name: name, Passed: free >= uint64(g.bytes), Detail: detail})
	}
	return results
}

func nearestExisting(path string) (string, error) {
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			return current, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		current = parent
	}
}

func deviceOf(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Dev), nil //nolint:unconvert
}

// CheckSystemDeps evaluates the external binaries for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "MakeMKV",
			Command:     cfg.MakeMKV.Binary,
			Description: "Required for disc backups",
		},
		{
			Name:        "7-Zip",
			Command:     cfg.Extract.SevenZipBinary,
			Description: "Required to unpack single-file disc formats",
			Optional:    true,
		},
	})
}
