package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidconv/internal/api"
	"vidconv/internal/ipc"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	var (
		resolution string
		quality    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the resolution and quality used for new jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				var (
					settings *ipc.SettingsResponse
					err      error
				)
				if cmd.Flags().Changed("resolution") || cmd.Flags().Changed("quality") {
					settings, err = client.UpdateSettings(ipc.UpdateSettingsRequest{Resolution: resolution, Quality: quality})
				} else {
					settings, err = client.Settings()
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, settings)
				}
				writeLines(cmd.OutOrStdout(), renderSettingsLines(*settings))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&resolution, "resolution", "", "Set the output resolution")
	cmd.Flags().StringVar(&quality, "quality", "", "Set the quality preset")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderSettingsLines(s api.Settings) []string {
	return []string{
		renderInfoLine("Resolution", fmt.Sprintf("%s  (options: %s)", s.Resolution, strings.Join(s.Resolutions, ", "))),
		renderInfoLine("Quality", fmt.Sprintf("%s  (options: %s)", s.Quality, strings.Join(s.Qualities, ", "))),
		"",
		s.ResolutionHelp,
		s.QualityHelp,
	}
}
