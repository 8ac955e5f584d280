package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"vidconv/internal/api"
	"vidconv/internal/ipc"
)

const defaultWatchInterval = 500 * time.Millisecond

// watchJob polls a job until it completes or fails, drawing a progress bar
// on w. It returns the final job snapshot.
func watchJob(ctx context.Context, client *ipc.Client, id string, interval time.Duration, w io.Writer) (api.Job, error) {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(shortID(id)),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(shouldColorize(w)),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		resp, err := client.Describe(id)
		if err != nil {
			return api.Job{}, err
		}
		if !resp.Found {
			_ = bar.Exit()
			return api.Job{}, fmt.Errorf("job %s no longer exists", id)
		}
		job := resp.Item
		bar.Describe(fmt.Sprintf("%s %s", shortID(id), displayName(job)))
		_ = bar.Set(int(job.Progress))
		switch job.Status {
		case "complete":
			_ = bar.Finish()
			return job, nil
		case "error":
			_ = bar.Exit()
			fmt.Fprintln(w)
			return job, nil
		}
		select {
		case <-ctx.Done():
			_ = bar.Exit()
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
