package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vidconv/internal/api"
	"vidconv/internal/config"
	"vidconv/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		resolution string
		quality    string
		wait       bool
		jsonOutput bool
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit FILE...",
		Short: "Queue video files for conversion to MP4",
		Long: "Copy each file into the staging area and queue it for conversion.\n" +
			"Accepted formats: avi, mov, mkv, wmv, mp4, webm.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				expanded, err := config.ExpandPath(arg)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				paths = append(paths, expanded)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(ipc.SubmitRequest{Paths: paths, Resolution: resolution, Quality: quality})
				if err != nil {
					return err
				}
				if wait {
					resp.Jobs = waitForJobs(cmd, client, resp.Jobs, interval)
				}
				if jsonOutput {
					if err := writeJSON(cmd, resp); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					if len(resp.Jobs) > 0 {
						renderJobList(out, resp.Jobs)
					}
					for _, msg := range resp.Errors {
						fmt.Fprintf(cmd.ErrOrStderr(), "rejected: %s\n", msg)
					}
				}
				return submitOutcome(resp)
			})
		},
	}

	cmd.Flags().StringVar(&resolution, "resolution", "", "Output resolution (Original, 4K, 1080p, 720p, 480p); defaults to the daemon setting")
	cmd.Flags().StringVar(&quality, "quality", "", "Quality preset (Standard, High, Maximum); defaults to the daemon setting")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for conversions to finish, showing progress")
	cmd.Flags().DurationVar(&interval, "interval", defaultWatchInterval, "Polling interval used with --wait")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func waitForJobs(cmd *cobra.Command, client *ipc.Client, jobs []api.Job, interval time.Duration) []api.Job {
	final := make([]api.Job, 0, len(jobs))
	for _, job := range jobs {
		done, err := watchJob(cmd.Context(), client, job.ID, interval, cmd.ErrOrStderr())
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "watch %s: %v\n", shortID(job.ID), err)
			final = append(final, job)
			continue
		}
		final = append(final, done)
	}
	return final
}

func submitOutcome(resp *ipc.SubmitResponse) error {
	if len(resp.Jobs) == 0 {
		return errors.New("no files were queued")
	}
	failed := 0
	for _, job := range resp.Jobs {
		if job.Status == "error" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d conversion(s) failed", failed)
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("%d file(s) rejected", len(resp.Errors))
	}
	return nil
}
