package main

import (
	"fmt"
	"io"
	"strings"

	"vidconv/internal/api"
	"vidconv/internal/ipc"
)

const shortIDLength = 8

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func formatProgress(job api.Job) string {
	switch job.Status {
	case "complete":
		return "100%"
	case "queued":
		return "-"
	}
	return fmt.Sprintf("%.1f%%", job.Progress)
}

func displayName(job api.Job) string {
	if strings.TrimSpace(job.OriginalName) != "" {
		return job.OriginalName
	}
	return job.InputName
}

var jobListColumns = []tableColumn{
	{header: "ID"},
	{header: "File", maxWidth: 40},
	{header: "Status"},
	{header: "Progress", align: alignRight},
	{header: "Size", align: alignRight},
	{header: "Converted", align: alignRight},
	{header: "Settings"},
	{header: "Uploaded"},
}

func buildJobListRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		converted := job.ConvertedSizeStr
		if converted == "" {
			converted = "-"
		}
		rows = append(rows, []string{
			shortID(job.ID),
			displayName(job),
			job.StatusLabel,
			formatProgress(job),
			job.SizeStr,
			converted,
			job.Resolution + " / " + job.Quality,
			job.UploadedAt,
		})
	}
	return rows
}

func renderJobList(w io.Writer, jobs []api.Job) {
	fmt.Fprint(w, renderTable(jobListColumns, buildJobListRows(jobs)))
	fmt.Fprintln(w)
}

func renderJobDetail(w io.Writer, job api.Job) {
	lines := []string{
		renderInfoLine("ID", job.ID),
		renderInfoLine("File", displayName(job)),
		renderInfoLine("Stored as", job.InputName),
		renderInfoLine("Status", job.StatusLabel),
		renderInfoLine("Progress", formatProgress(job)),
		renderInfoLine("Resolution", job.Resolution),
		renderInfoLine("Quality", job.Quality),
		renderInfoLine("Size", job.SizeStr),
		renderInfoLine("Attempt", fmt.Sprintf("%d", job.Attempt)),
	}
	if job.OutputName != "" {
		lines = append(lines, renderInfoLine("Output", job.OutputName))
	}
	if job.ConvertedSizeStr != "" {
		lines = append(lines, renderInfoLine("Converted size", job.ConvertedSizeStr))
	}
	if job.ErrorMessage != "" {
		lines = append(lines, renderInfoLine("Error", job.ErrorMessage))
	}
	if job.PublishedKey != "" {
		lines = append(lines, renderInfoLine("Published", job.PublishedKey))
	}
	if job.PublishError != "" {
		lines = append(lines, renderInfoLine("Publish error", job.PublishError))
	}
	if job.CreatedAt != "" {
		lines = append(lines, renderInfoLine("Created", job.CreatedAt))
	}
	if job.FinishedAt != "" {
		lines = append(lines, renderInfoLine("Finished", job.FinishedAt))
	}
	writeLines(w, lines)
}

// resolveJobID expands a unique ID prefix, as shown by `jobs list`, to the
// full job ID.
func resolveJobID(client *ipc.Client, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("job id is required")
	}
	resp, err := client.List(nil)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, job := range resp.Items {
		if job.ID == arg {
			return arg, nil
		}
		if strings.HasPrefix(job.ID, arg) {
			matches = append(matches, job.ID)
		}
	}
	switch len(matches) {
	case 0:
		return arg, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("job id prefix %q is ambiguous (%d matches)", arg, len(matches))
	}
}

func resolveJobIDs(client *ipc.Client, args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := resolveJobID(client, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
