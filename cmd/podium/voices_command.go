package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podium/internal/sanitize"
	"podium/internal/voices"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "voices <registry.json>",
		Short:       "List the characters in a voice registry",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := voices.Load(args[0])
			if err != nil {
				return err
			}

			table := sanitize.NewTable()
			rows := make([][]string, 0, registry.Len())
			for _, name := range registry.Characters() {
				profile, _ := registry.Resolve(name)
				token, err := table.Assign(name)
				if err != nil {
					token = "(unsanitizable)"
				}
				rows = append(rows, []string{
					name,
					token,
					profile.VoiceID,
					fmt.Sprintf("%.2f", profile.Stability),
					fmt.Sprintf("%.2f", profile.SimilarityBoost),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Character", "Token", "Voice", "Stability", "Similarity"}, rows))
			return nil
		},
	}
	return cmd
}
