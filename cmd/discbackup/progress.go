package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"discbackup/internal/backup"
	"discbackup/internal/logging"
)

// progressRenderer prints job events. On a terminal the progress line is
// redrawn in place; otherwise one line per 5% bucket is written.
type progressRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	tty      bool
	verbose  bool
	sampler  *logging.ProgressSampler
	state    backup.State
	lineOpen bool
}

func newProgressRenderer(out io.Writer, tty, verbose bool) *progressRenderer {
	return &progressRenderer{
		out:     out,
		tty:     tty,
		verbose: verbose,
		sampler: logging.NewProgressSampler(5),
	}
}

func (p *progressRenderer) OnProgress(snap backup.ProgressSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := formatProgress(p.state, snap)
	if p.tty {
		fmt.Fprintf(p.out, "\r\x1b[2K%s", line)
		p.lineOpen = true
		return
	}
	if p.sampler.ShouldLog(snap.Percent, p.state.String()) {
		fmt.Fprintln(p.out, line)
	}
}

func (p *progressRenderer) OnLog(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.verbose && !strings.HasPrefix(line, "ERROR: ") {
		return
	}
	p.closeLine()
	fmt.Fprintf(p.out, "  %s\n", line)
}

func (p *progressRenderer) OnState(state backup.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
	p.closeLine()
	fmt.Fprintf(p.out, "%s\n", stateHeadline(state))
}

// Finish terminates an open progress line.
func (p *progressRenderer) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLine()
}

func (p *progressRenderer) closeLine() {
	if p.lineOpen {
		fmt.Fprintln(p.out)
		p.lineOpen = false
	}
}

func formatProgress(state backup.State, snap backup.ProgressSnapshot) string {
	line := fmt.Sprintf("%-10s %5.1f%%", state.String(), snap.Percent)
	if snap.BytesExpected > 0 {
		line += fmt.Sprintf("  %s / %s", humanize.IBytes(uint64(max(snap.BytesObserved, 0))), humanize.IBytes(uint64(snap.BytesExpected)))
	} else if snap.BytesObserved > 0 {
		line += "  " + humanize.IBytes(uint64(snap.BytesObserved))
	}
	return line
}

func stateHeadline(state backup.State) string {
	switch state {
	case backup.StateSpawning:
		return "Starting makemkvcon"
	case backup.StateScanning:
		return "Scanning disc"
	case backup.StateCopying:
		return "Copying disc data"
	case backup.StateFinalizing:
		return "Finalizing backup"
	case backup.StateSucceeded:
		return "Backup complete"
	case backup.StatePartialSuccess:
		return "Backup complete with read errors"
	case backup.StateFailed:
		return "Backup failed"
	case backup.StateCancelled:
		return "Backup cancelled"
	}
	return state.String()
}
