package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"discbackup/internal/deps"
	"discbackup/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			for _, line := range renderSectionHeader("Directories") {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Tools") {
				fmt.Fprintln(out, line)
			}
			statuses := preflight.CheckSystemDeps(cfg)
			for _, s := range statuses {
				kind := statusOK
				message := s.Path
				switch {
				case !s.Available && s.Optional:
					kind = statusWarn
					message = s.Detail
				case !s.Available:
					kind = statusError
					message = s.Detail
				}
				fmt.Fprintln(out, renderStatusLine(s.Name, kind, message, colorize))
			}

			failed := len(preflight.Failed(results))
			missing := len(deps.MissingRequired(statuses))
			if failed > 0 || missing > 0 {
				return fmt.Errorf("doctor found %d directory problem(s) and %d missing tool(s)", failed, missing)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Ready to back up")
			return nil
		},
	}
}
