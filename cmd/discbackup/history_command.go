package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"discbackup/internal/history"
	"discbackup/internal/logging"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished backup jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryOrFail(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No jobs recorded in %s\n", store.Path())
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					shortID(e.ID),
					e.FinishedAt.Local().Format("2006-01-02 15:04"),
					e.Name,
					e.Outcome,
					humanize.IBytes(uint64(max(e.FinalBytes, 0))),
					fmt.Sprintf("%d/%d", e.FilesSucceeded, e.FilesSucceeded+e.FilesFailed),
					e.Duration().Round(time.Second).String(),
				})
			}
			fmt.Fprintln(out, renderTable([]tableColumn{
				{header: "ID"},
				{header: "Finished"},
				{header: "Name"},
				{header: "Outcome"},
				{header: "Size", align: alignRight},
				{header: "Files", align: alignRight},
				{header: "Duration", align: alignRight},
			}, rows, isTerminal(out)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of jobs to show (0 for all)")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var transcript bool
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its MakeMKV error records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistoryOrFail(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := findEntry(cmd, store, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range renderSectionHeader("Job " + entry.ID) {
				fmt.Fprintln(out, line)
			}
			fields := [][2]string{
				{"Name", entry.Name},
				{"State", entry.State},
				{"Outcome", entry.Outcome},
				{"Mode", entry.Mode},
				{"Profile", entry.Profile},
				{"Format", entry.Format},
				{"Final path", entry.FinalPath},
				{"Size", humanize.IBytes(uint64(max(entry.FinalBytes, 0)))},
				{"Expected", humanize.IBytes(uint64(max(entry.ExpectedBytes, 0)))},
				{"Files", fmt.Sprintf("%d ok, %d failed", entry.FilesSucceeded, entry.FilesFailed)},
				{"Started", entry.StartedAt.Local().Format(time.RFC3339)},
				{"Duration", entry.Duration().Round(time.Second).String()},
				{"Already complete", yesNo(entry.AlreadyComplete)},
				{"Transcript", entry.TranscriptPath},
				{"Error", entry.ErrorMessage},
			}
			for _, f := range fields {
				if f[1] == "" {
					continue
				}
				fmt.Fprintln(out, renderField(f[0], f[1]))
			}
			if len(entry.Errors) > 0 {
				printErrorRecords(out, entry.Errors)
			}
			if transcript {
				return printTranscript(out, entry)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&transcript, "transcript", "t", false, "Also print the raw makemkvcon transcript")
	return cmd
}

func printErrorRecords(out io.Writer, records []history.ErrorEntry) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		offset := ""
		if rec.HasOffset {
			offset = strconv.FormatInt(rec.Offset, 10)
		}
		rows = append(rows, []string{strconv.Itoa(rec.Code), rec.Severity, rec.Kind, rec.File, offset, rec.Message})
	}
	fmt.Fprintln(out, renderTable([]tableColumn{
		{header: "Code", align: alignRight},
		{header: "Severity"},
		{header: "Kind"},
		{header: "File"},
		{header: "Offset", align: alignRight},
		{header: "Message"},
	}, rows, isTerminal(out)))
}

func printTranscript(out io.Writer, entry *history.Entry) error {
	if entry.TranscriptPath == "" {
		return fmt.Errorf("job %s has no transcript (logging.transcripts was off)", shortID(entry.ID))
	}
	lines, err := logging.ReadTranscript(entry.TranscriptPath)
	if err != nil {
		return fmt.Errorf("job %s transcript: %w", shortID(entry.ID), err)
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(fmt.Sprintf("Transcript (%d lines)", len(lines))) {
		fmt.Fprintln(out, line)
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

func openHistoryOrFail(ctx *commandContext) (*history.Store, error) {
	store, err := ctx.openHistory()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("job history is disabled (history.enabled = false)")
	}
	return store, nil
}

// findEntry resolves a full job id or the short prefix printed by history.
func findEntry(cmd *cobra.Command, store *history.Store, id string) (*history.Entry, error) {
	entry, err := store.Get(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return entry, nil
	}
	entries, err := store.List(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var match string
	for _, e := range entries {
		if len(id) >= 4 && len(e.ID) >= len(id) && e.ID[:len(id)] == id {
			if match != "" {
				return nil, fmt.Errorf("job id %q is ambiguous", id)
			}
			match = e.ID
		}
	}
	if match == "" {
		return nil, fmt.Errorf("job %q not found", id)
	}
	return store.Get(cmd.Context(), match)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
