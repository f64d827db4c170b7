package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"discbackup/internal/backup"
	"discbackup/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var name string
	var size string
	var clean bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether a backup already exists and is complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			discName := textutil.SanitizeFileName(name)
			if discName == "" {
				return errors.New("--name is required")
			}
			expected, err := parseSize(size)
			if err != nil {
				return err
			}

			probe := backup.NewProbe(cfg)
			report, err := probe.Check(discName, expected)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			for _, line := range renderSectionHeader("Backup " + discName) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Status", probeStatusKind(report.Status), string(report.Status), colorize))
			if report.Path != "" {
				fmt.Fprintln(out, renderField("Path", report.Path))
				fmt.Fprintln(out, renderField("Size", humanize.IBytes(uint64(report.SizeBytes))))
				fmt.Fprintln(out, renderField("Files", strconv.Itoa(report.Files)))
				fmt.Fprintln(out, renderField("Single file", yesNo(report.SingleFile)))
			}
			if expected > 0 {
				fmt.Fprintln(out, renderField("Expected", humanize.IBytes(uint64(expected))))
				fmt.Fprintln(out, renderField("Complete", fmt.Sprintf("%.1f%%", report.Percent)))
			}
			if len(report.Leftovers) > 0 {
				fmt.Fprintln(out, renderField("Leftovers", strings.Join(report.Leftovers, ", ")))
			}

			if clean && report.Status != backup.StatusComplete && len(report.Leftovers) > 0 {
				if err := probe.Clean(report); err != nil {
					return fmt.Errorf("remove leftovers: %w", err)
				}
				fmt.Fprintf(out, "Removed %d leftover path(s)\n", len(report.Leftovers))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Backup directory name")
	cmd.Flags().StringVarP(&size, "size", "s", "", "Expected disc size (bytes or e.g. 46GB)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Delete incomplete or stale leftovers")
	return cmd
}

func probeStatusKind(status backup.Status) statusKind {
	switch status {
	case backup.StatusComplete:
		return statusOK
	case backup.StatusIncompleteBackup, backup.StatusIncompleteTemp:
		return statusWarn
	default:
		return statusInfo
	}
}
