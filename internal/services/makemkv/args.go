package makemkv

import (
	"fmt"
	"strconv"
)

// BackupArgs describes one makemkvcon backup invocation.
type BackupArgs struct {
	SourceIndex      int
	Destination      string
	CacheMB          int
	SplitSizeMB      int
	MinLengthSeconds int
}

// Source returns the disc:<index> handle.
func (a BackupArgs) Source() string {
	return "disc:" + strconv.Itoa(a.SourceIndex)
}

// BuildBackupArgs returns the argument list in a fixed order:
//
//	backup --decrypt --cache=N --noscan -r --progress=-same
//	[--split-size=N] [--minlength=S] disc:<index> <destination>
func BuildBackupArgs(a BackupArgs) []string {
	args := []string{
		"backup",
		"--decrypt",
		fmt.Sprintf("--cache=%d", a.CacheMB),
		"--noscan",
		"-r",
		"--progress=-same",
	}
	if a.SplitSizeMB > 0 {
		args = append(args, fmt.Sprintf("--split-size=%d", a.SplitSizeMB))
	}
	if a.MinLengthSeconds > 0 {
		args = append(args, fmt.Sprintf("--minlength=%d", a.MinLengthSeconds))
	}
	return append(args, a.Source(), a.Destination)
}
