package ipc

import "vidconv/internal/api"

// serviceName is the RPC receiver name registered by the server.
const serviceName = "Vidconv"

// Job mirrors the HTTP API job DTO for IPC callers.
type Job = api.Job

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon status information.
type StatusResponse = api.DaemonStatus

// SubmitRequest enqueues files already present on the daemon host.
type SubmitRequest struct {
	Paths      []string `json:"paths"`
	Resolution string   `json:"resolution,omitempty"`
	Quality    string   `json:"quality,omitempty"`
}

// SubmitResponse reports jobs created and per-file failures.
type SubmitResponse struct {
	Jobs   []Job    `json:"jobs"`
	Errors []string `json:"errors,omitempty"`
}

// ListRequest filters job listing by status.
type ListRequest struct {
	Statuses []string `json:"statuses"`
}

// ListResponse contains jobs, newest first.
type ListResponse struct {
	Items []Job `json:"items"`
}

// DescribeRequest fetches a single job by id.
type DescribeRequest struct {
	ID string `json:"id"`
}

// DescribeResponse contains a single job.
type DescribeResponse struct {
	Found bool `json:"found"`
	Item  Job  `json:"item"`
}

// RetryRequest retries failed jobs.
type RetryRequest struct {
	IDs []string `json:"ids"`
}

// RetryResponse reports per-job retry outcomes.
type RetryResponse = api.RetryResults

// RemoveRequest removes jobs in any state.
type RemoveRequest struct {
	IDs []string `json:"ids"`
}

// RemoveResponse reports per-job removal outcomes.
type RemoveResponse = api.RemoveResults

// CapacityRequest fetches storage usage.
type CapacityRequest struct{}

// CapacityResponse is the capacity card.
type CapacityResponse = api.CapacityCard

// SettingsRequest fetches the global selection.
type SettingsRequest struct{}

// SettingsResponse carries the selection and its choices.
type SettingsResponse = api.Settings

// UpdateSettingsRequest changes one or both selections.
type UpdateSettingsRequest = api.SettingsUpdate
