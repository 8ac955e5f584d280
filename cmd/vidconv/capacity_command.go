package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidconv/internal/api"
	"vidconv/internal/capacity"
	"vidconv/internal/ipc"
)

func newCapacityCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "capacity",
		Short: "Show storage used by staged inputs and converted outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				card, err := client.Capacity()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, card)
				}
				out := cmd.OutOrStdout()
				writeLines(out, renderCapacityLines(*card, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderCapacityLines(card api.CapacityCard, colorize bool) []string {
	kind := statusOK
	switch capacity.Level(card.Level) {
	case capacity.LevelWarning:
		kind = statusWarn
	case capacity.LevelNearLimit:
		kind = statusError
	}
	return []string{
		renderStatusLine("Storage", kind, fmt.Sprintf("%s (%.1f%%)", card.LevelLabel, card.Percent), colorize),
		renderInfoLine("Used", fmt.Sprintf("%.2f GiB of %.2f GiB", card.UsedGiB, card.LimitGiB)),
		renderInfoLine("Remaining", card.RemainingStr),
	}
}
