package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"vidconv/internal/api"
	"vidconv/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, storage, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, dialErr := ctx.dialClient()
			if dialErr != nil {
				status, err := offlineStatus(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				writeLines(out, renderStatus(status, shouldColorize(out)))
				fmt.Fprintf(out, "\n%v\n", dialErr)
				return nil
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			writeLines(out, renderStatus(*status, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// offlineStatus runs the local checks when no daemon is reachable.
func offlineStatus(ctx *commandContext) (api.DaemonStatus, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.DaemonStatus{}, err
	}
	return api.DaemonStatus{
		Running:      false,
		SocketPath:   ctx.socketPath(),
		APIBind:      cfg.Paths.APIBind,
		StagingDir:   cfg.Paths.StagingDir,
		Dependencies: api.FromDependencies(preflight.CheckSystemDeps(cfg)),
		Checks:       api.FromPreflight(preflight.RunAll(cfg)),
	}, nil
}

func renderStatus(status api.DaemonStatus, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, "Running (pid "+strconv.Itoa(status.PID)+")", colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}
	lines = append(lines,
		renderInfoLine("Socket", status.SocketPath),
		renderInfoLine("API", status.APIBind),
		renderInfoLine("Staging", status.StagingDir),
	)
	if status.Publish != "" {
		lines = append(lines, renderInfoLine("Publish", status.Publish))
	}

	if status.Running {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Jobs", colorize)...)
		lines = append(lines, renderJobStats(status.JobStats)...)
		lines = append(lines,
			renderInfoLine("Running", strconv.Itoa(status.RunningJobs)),
			renderInfoLine("Awaiting confirm", strconv.Itoa(status.PendingUploads)),
			renderInfoLine("Resolution", status.Settings.Resolution),
			renderInfoLine("Quality", status.Settings.Quality),
		)
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Storage", colorize)...)
		lines = append(lines, renderCapacityLines(status.Capacity, colorize)...)
	}

	if len(status.Dependencies) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
		for _, dep := range status.Dependencies {
			lines = append(lines, renderDependencyLine(dep, colorize))
		}
	}
	if len(status.Checks) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Checks", colorize)...)
		for _, check := range status.Checks {
			kind := statusOK
			if !check.Passed {
				kind = statusError
			}
			lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
		}
	}
	return lines
}

func renderJobStats(stats map[string]int) []string {
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, renderInfoLine(api.Label(key), strconv.Itoa(stats[key])))
	}
	return lines
}

func renderDependencyLine(dep api.DependencyStatus, colorize bool) string {
	if dep.Available {
		return renderStatusLine(dep.Name, statusOK, dep.Command, colorize)
	}
	kind := statusError
	if dep.Optional {
		kind = statusWarn
	}
	return renderStatusLine(dep.Name, kind, dep.Detail, colorize)
}
