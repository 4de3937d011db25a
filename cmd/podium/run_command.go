package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"podium/internal/deps"
	"podium/internal/pipeline"
	"podium/internal/script"
	"podium/internal/services"
	"podium/internal/voices"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var policyFlag string
	var voicesFlag string
	var resetFlag bool

	cmd := &cobra.Command{
		Use:   "run <script.json>",
		Short: "Generate episode audio from a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if missing := deps.Missing(deps.Check(deps.Podium(cfg))); len(missing) > 0 {
				for _, status := range missing {
					fmt.Fprintf(cmd.ErrOrStderr(), "missing dependency %s: %s\n", status.Name, status.Detail)
				}
				return fmt.Errorf("%d required binaries missing", len(missing))
			}

			policy := pipeline.Policy(policyFlag)
			if policyFlag == "" {
				policy = pipeline.Policy(cfg.Workflow.Policy)
			}
			policy, err = pipeline.ParsePolicy(string(policy))
			if err != nil {
				return err
			}

			ep, err := script.Load(args[0])
			if err != nil {
				return err
			}
			registry, err := voices.Load(voicesFlag)
			if err != nil {
				return err
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			coord, err := ctx.coordinator(st, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if resetFlag {
				if err := coord.Reset(runCtx, ep.ID); err != nil {
					return fmt.Errorf("reset episode ledger: %w", err)
				}
			}

			result, err := coord.Run(runCtx, ep, registry, policy)
			if result != nil {
				printRunSummary(cmd, result)
			} else if services.IsFatalBeforeWork(err) {
				fmt.Fprintln(cmd.ErrOrStderr(), "run aborted before any audio work; fix the script or configuration and retry")
			}
			return err
		},
	}

	cmd.Flags().StringVar(&policyFlag, "policy", "", "Partial-failure policy: fail-fast or best-effort")
	cmd.Flags().StringVar(&voicesFlag, "voices", "", "Path to the voice registry JSON file")
	cmd.Flags().BoolVar(&resetFlag, "reset", false, "Clear the episode's clip ledger before running")
	_ = cmd.MarkFlagRequired("voices")
	return cmd
}

func printRunSummary(cmd *cobra.Command, result *pipeline.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Episode "+result.EpisodeID, colorize) {
		fmt.Fprintln(out, line)
	}

	for _, scene := range result.Scenes {
		kind := statusOK
		message := fmt.Sprintf("%d synthesized, %d reused", scene.LinesSynthesized, scene.LinesReused)
		switch {
		case scene.Dropped:
			kind = statusError
			message = fmt.Sprintf("dropped, %d lines failed", len(scene.Failures))
		case len(scene.Failures) > 0:
			kind = statusWarn
			message = fmt.Sprintf("%s, %d failed", message, len(scene.Failures))
		case scene.Reused:
			message = "reused from previous run"
		}
		label := fmt.Sprintf("scene %02d", scene.Index)
		fmt.Fprintln(out, renderStatusLine(label, kind, message, colorize))
	}

	if result.EpisodePath != "" {
		fmt.Fprintln(out, renderStatusLine("episode", statusOK, result.EpisodePath, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("episode", statusError, "run failed, no episode produced", colorize))
	}
}
