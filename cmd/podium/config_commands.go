package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podium/internal/config"
	"podium/internal/deps"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if err := config.WriteSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set tts.api_key (or export ELEVENLABS_API_KEY) before running.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Configuration valid: %s\n", path)
			} else {
				fmt.Fprintln(out, "No configuration file found; defaults are valid.")
			}
			fmt.Fprintf(out, "  episodes: %s\n", cfg.Paths.EpisodesDir)
			fmt.Fprintf(out, "  assets:   %s\n", cfg.Paths.AssetsDir)
			fmt.Fprintf(out, "  logs:     %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "  provider: %s\n", cfg.TTS.Provider)

			for _, status := range deps.Check(deps.Podium(cfg)) {
				if status.Available {
					fmt.Fprintf(out, "  %-8s  found (%s)\n", status.Name, status.Description)
				} else {
					fmt.Fprintf(out, "  %-8s  MISSING: %s\n", status.Name, status.Detail)
				}
			}
			return nil
		},
	}
}
