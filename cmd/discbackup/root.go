package main

import (
	"errors"

	"github.com/spf13/cobra"

	"discbackup/internal/backup"
	"discbackup/internal/services"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verboseFlag bool

	ctx := newCommandContext(&configFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:           "discbackup",
		Short:         "Back up optical discs with MakeMKV",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show MakeMKV messages while a job runs")

	rootCmd.AddCommand(newBackupCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newProfilesCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))

	return rootCmd
}

// exitCode maps job errors to process exit codes: 2 for rejected input, 3 for
// a failed rip, 4 for post-processing, 130 for cancellation.
func exitCode(err error) int {
	var ripErr *backup.RipError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, services.ErrCancelled):
		return 130
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return 2
	case errors.As(err, &ripErr):
		return 3
	case errors.Is(err, services.ErrProcessing):
		return 4
	default:
		return 1
	}
}
