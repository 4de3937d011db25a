package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"podium/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [episode-id]",
		Short: "Show recorded runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if len(args) == 1 {
				return printEpisodeStatus(cmd, st, args[0])
			}

			runs, err := st.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.EpisodeID,
					string(run.Status),
					run.Policy,
					run.StartedAt.Local().Format(time.RFC3339),
					runDuration(run),
					run.ErrorMessage,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Episode", "Status", "Policy", "Started", "Duration", "Error"}, rows))
			return nil
		},
	}
}

func printEpisodeStatus(cmd *cobra.Command, st *store.Store, episodeID string) error {
	run, err := st.LatestRun(cmd.Context(), episodeID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if run == nil {
		fmt.Fprintf(out, "No runs recorded for episode %s.\n", episodeID)
		return nil
	}

	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Episode "+episodeID, colorize) {
		fmt.Fprintln(out, line)
	}
	kind := statusOK
	message := string(run.Status)
	switch run.Status {
	case store.RunFailed:
		kind = statusError
		if run.ErrorMessage != "" {
			message = run.ErrorMessage
		}
	case store.RunComplete:
		message = run.EpisodePath
	default:
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("latest run", kind, message, colorize))
	fmt.Fprintln(out, renderStatusLine("started", statusOK, run.StartedAt.Local().Format(time.RFC3339), colorize))

	clips, err := st.EpisodeClips(cmd.Context(), episodeID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderStatusLine("ledger", statusOK, fmt.Sprintf("%d clips recorded", len(clips)), colorize))
	return nil
}

func runDuration(run store.Run) string {
	if run.FinishedAt == nil {
		return ""
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}
