package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vidconv/internal/api"
	"vidconv/internal/ipc"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage conversion jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsWatchCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.List(statuses)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Items)
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				renderJobList(cmd.OutOrStdout(), resp.Items)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (queued, processing, complete, error)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show details for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				id, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Describe(id)
				if err != nil {
					return err
				}
				if !resp.Found {
					return fmt.Errorf("job %s not found", args[0])
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Item)
				}
				renderJobDetail(cmd.OutOrStdout(), resp.Item)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry ID...",
		Short: "Retry failed jobs with their original settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveJobIDs(client, args)
				if err != nil {
					return err
				}
				resp, err := client.Retry(ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, item := range resp.Items {
					fmt.Fprintf(out, "%s: %s\n", shortID(item.ID), retryOutcomeText(item))
				}
				if resp.RetriedCount == 0 {
					return fmt.Errorf("no jobs retried")
				}
				return nil
			})
		},
	}
}

func retryOutcomeText(item api.RetryResult) string {
	switch item.Outcome {
	case api.RetryOutcomeRetried:
		return fmt.Sprintf("queued (attempt %d)", item.Attempt)
	case api.RetryOutcomeNotFound:
		return "not found"
	case api.RetryOutcomeProcessing:
		return "still processing"
	case api.RetryOutcomeNotRetryable:
		return "not failed"
	default:
		return string(item.Outcome)
	}
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID...",
		Aliases: []string{"rm"},
		Short:   "Remove jobs, cancelling any running conversion and deleting their files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveJobIDs(client, args)
				if err != nil {
					return err
				}
				resp, err := client.Remove(ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, item := range resp.Items {
					label := "removed"
					if item.Outcome == api.RemoveOutcomeNotFound {
						label = "not found"
					}
					fmt.Fprintf(out, "%s: %s\n", shortID(item.ID), label)
				}
				return nil
			})
		},
	}
}

func newJobsWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch ID",
		Short: "Follow a job's progress until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				id, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				job, err := watchJob(cmd.Context(), client, id, interval, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				renderJobDetail(cmd.OutOrStdout(), job)
				if job.Status == "error" {
					return fmt.Errorf("conversion failed: %s", job.ErrorMessage)
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultWatchInterval, "Polling interval")
	return cmd
}
