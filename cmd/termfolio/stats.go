package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/internal/appconfig"
	"pkt.systems/termfolio/internal/stats"
	"pkt.systems/termfolio/schema"
)

func newStatsCmd(cfgPath *string) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print command and visit statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			if !cfg.Stats.Enabled {
				return errors.New("stats are disabled in the config")
			}
			store, err := openStats(ctx, cfg, pslog.Ctx(ctx))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			summary, err := store.Summary(ctx)
			if err != nil {
				return err
			}
			commands, err := store.TopCommands(ctx, top)
			if err != nil {
				return err
			}
			return writeStats(cmd.OutOrStdout(), summary, commands)
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 10, "number of commands to list")
	return cmd
}

func writeStats(w io.Writer, summary stats.Summary, commands []stats.CommandCount) error {
	lines := []string{
		fmt.Sprintf("sessions         %d", summary.Sessions),
		fmt.Sprintf("commands         %d", summary.Commands),
		fmt.Sprintf("not found        %d", summary.NotFound),
		fmt.Sprintf("visits           %d", summary.Visits),
		fmt.Sprintf("unique visitors  %d", summary.UniqueVisitors),
		fmt.Sprintf("visits today     %d", summary.VisitsToday),
	}
	for _, transport := range []schema.Transport{schema.TransportHTTP, schema.TransportSSH, schema.TransportLocal} {
		lines = append(lines, fmt.Sprintf("  %-14s %d", transport, summary.ByTransport[transport]))
	}
	if len(commands) > 0 {
		lines = append(lines, "", "top commands")
		for _, entry := range commands {
			lines = append(lines, fmt.Sprintf("  %6d  %s", entry.Count, entry.Command))
		}
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
