package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"discbackup/internal/backup"
	"discbackup/internal/config"
	"discbackup/internal/logging"
	"discbackup/internal/textutil"
)

type backupFlags struct {
	drive       int
	name        string
	label       string
	size        string
	mode        string
	discType    string
	profile     string
	minMinutes  int
	cacheMB     int
	splitSizeMB int
	timeout     time.Duration
}

func newBackupCommand(ctx *commandContext) *cobra.Command {
	var flags backupFlags

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up a disc to the backup directory",
		Long: "Run a MakeMKV backup of one disc into <base_dir>/temp, then extract or relocate it\n" +
			"into <base_dir>/backup/<name>. Ctrl-C cancels the job and removes partial output.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			spec, err := flags.jobSpec(cmd, cfg)
			if err != nil {
				return err
			}

			pruneOldLogs(cmd.Context(), ctx, cfg)

			out := cmd.OutOrStdout()
			renderer := newProgressRenderer(out, isTerminal(out), ctx.verbose())
			opts := []backup.Option{
				backup.WithLogger(logger),
				backup.WithObserver(renderer),
			}
			store, err := ctx.openHistory()
			if err != nil {
				logging.WarnWithContext(logger, "job history unavailable", "history_open",
					logging.Error(err),
					logging.String(logging.FieldImpact, "this job will not appear in discbackup history"),
				)
			} else if store != nil {
				defer store.Close()
				opts = append(opts, backup.WithRecorder(store))
			}

			job, err := backup.NewJob(cfg, spec, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Backing up %s from disc:%d (%s, profile %s)\n",
				job.Name(), spec.SourceIndex, job.Mode(), job.Profile().Name)

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
			defer stop()
			finished := make(chan struct{})
			defer close(finished)
			go func() {
				select {
				case <-sigCtx.Done():
					job.Cancel()
				case <-finished:
				}
			}()

			result, err := job.Run(cmd.Context())
			renderer.Finish()
			if err != nil {
				return err
			}
			printResult(out, result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&flags.drive, "drive", "d", 0, "MakeMKV drive index (disc:N); defaults to makemkv.source_index")
	cmd.Flags().StringVarP(&flags.name, "name", "n", "", "Backup directory name")
	cmd.Flags().StringVar(&flags.label, "label", "", "Disc volume label used to derive the name when --name is empty")
	cmd.Flags().StringVarP(&flags.size, "size", "s", "", "Expected disc size (bytes or e.g. 46GB); enables progress and completeness checks")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Extraction mode: full or smart")
	cmd.Flags().StringVar(&flags.discType, "disc-type", "", "Disc type used to pick a profile (dvd, bluray, uhd, hddvd)")
	cmd.Flags().StringVarP(&flags.profile, "profile", "p", "", "Performance profile name")
	cmd.Flags().IntVar(&flags.minMinutes, "min-minutes", 0, "Minimum title length in smart mode")
	cmd.Flags().IntVar(&flags.cacheMB, "cache", 0, "Override the profile cache size in MB")
	cmd.Flags().IntVar(&flags.splitSizeMB, "split-size", 0, "Override the profile split size in MB")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Override the profile rip deadline (e.g. 4h)")
	return cmd
}

func (f backupFlags) jobSpec(cmd *cobra.Command, cfg *config.Config) (backup.JobSpec, error) {
	fallback := "disc-" + time.Now().Format("20060102-150405")
	name := strings.TrimSpace(f.name)
	if name == "" {
		name = textutil.DiscName(f.label, fallback)
	}
	size, err := parseSize(f.size)
	if err != nil {
		return backup.JobSpec{}, err
	}
	drive := cfg.MakeMKV.SourceIndex
	if cmd.Flags().Changed("drive") {
		drive = f.drive
	}

	var overrides config.ProfileOverride
	if cmd.Flags().Changed("cache") {
		overrides.CacheMB = &f.cacheMB
	}
	if cmd.Flags().Changed("split-size") {
		overrides.SplitSizeMB = &f.splitSizeMB
	}
	if cmd.Flags().Changed("timeout") {
		seconds := int(f.timeout / time.Second)
		overrides.TimeoutSeconds = &seconds
	}

	return backup.JobSpec{
		Name:          name,
		SourceIndex:   drive,
		ExpectedBytes: size,
		Options: backup.JobOptions{
			Mode:            f.mode,
			DiscType:        f.discType,
			Profile:         f.profile,
			MinTitleMinutes: f.minMinutes,
			Overrides:       overrides,
		},
	}, nil
}

// parseSize accepts plain byte counts and humanized sizes such as "46GB" or
// "4.7 GiB". Empty means unknown.
func parseSize(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("size must not be negative: %s", value)
		}
		return n, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", value, err)
	}
	return int64(n), nil
}

func printResult(out io.Writer, result *backup.Result) {
	fmt.Fprintln(out, result.Summary())
	fmt.Fprintln(out, renderField("Format", string(result.Format)))
	fmt.Fprintln(out, renderField("Size", humanize.IBytes(uint64(result.FinalSizeBytes))))
	if !result.AlreadyComplete {
		fmt.Fprintln(out, renderField("Duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Second).String()))
	}
	if len(result.ErrorRecords) == 0 {
		return
	}
	rows := make([][]string, 0, len(result.ErrorRecords))
	for _, rec := range result.ErrorRecords {
		offset := ""
		if rec.HasOffset {
			offset = humanize.IBytes(uint64(rec.Offset))
		}
		rows = append(rows, []string{
			strconv.Itoa(rec.Code),
			string(rec.Kind),
			rec.File,
			offset,
			rec.Message,
		})
	}
	fmt.Fprintln(out, renderTable([]tableColumn{
		{header: "Code", align: alignRight},
		{header: "Kind"},
		{header: "File"},
		{header: "Offset", align: alignRight},
		{header: "Message"},
	}, rows, isTerminal(out)))
}

// pruneOldLogs applies logging.retention_days to transcripts and history rows
// before a new job starts.
func pruneOldLogs(ctx context.Context, cc *commandContext, cfg *config.Config) {
	days := cfg.Logging.RetentionDays
	if days <= 0 {
		return
	}
	logger, err := cc.ensureLogger()
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	if _, err := logging.PruneTranscripts(logger, cfg.TranscriptDir(), cutoff); err != nil {
		logger.Warn("transcript prune failed", logging.Error(err))
	}
	store, err := cc.openHistory()
	if err != nil || store == nil {
		return
	}
	defer store.Close()
	if removed, err := store.Prune(ctx, cutoff); err != nil {
		logger.Warn("history prune failed", logging.Error(err))
	} else if removed > 0 {
		logger.Info("pruned job history", logging.Int64("removed", removed))
	}
}
