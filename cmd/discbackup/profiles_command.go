package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List performance profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			usedBy := make(map[string][]string)
			for discType, profile := range cfg.MakeMKV.DiscTypeProfiles {
				usedBy[profile] = append(usedBy[profile], discType)
			}

			table := cfg.ProfileTable()
			rows := make([][]string, 0, table.Len())
			for _, name := range table.Names() {
				p, _ := table.Get(name)
				label := name
				if name == cfg.MakeMKV.Profile {
					label += " *"
				}
				types := usedBy[name]
				sort.Strings(types)
				split := "-"
				if p.SplitSizeMB > 0 {
					split = strconv.Itoa(p.SplitSizeMB)
				}
				timeout := "none"
				if p.Timeout() > 0 {
					timeout = p.Timeout().String()
				}
				rows = append(rows, []string{
					label,
					strconv.Itoa(p.CacheMB),
					fmt.Sprintf("%d-%d", p.MinBufferKB, p.MaxBufferKB),
					timeout,
					split,
					strconv.Itoa(p.Retries),
					strings.Join(types, ", "),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]tableColumn{
				{header: "Profile"},
				{header: "Cache MB", align: alignRight},
				{header: "Buffer KB", align: alignRight},
				{header: "Timeout", align: alignRight},
				{header: "Split MB", align: alignRight},
				{header: "Retries", align: alignRight},
				{header: "Disc types"},
			}, rows, isTerminal(out)))
			fmt.Fprintln(out, "* default profile")
			return nil
		},
	}
}
