package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// uploadedAtFormat is the short clock label shown next to each job.
const uploadedAtFormat = "15:04"

// Job describes a conversion job in a transport-friendly format.
type Job struct {
	ID                 string  `json:"id"`
	InputName          string  `json:"inputName"`
	OriginalName       string  `json:"originalName"`
	OutputName         string  `json:"outputName,omitempty"`
	Status             string  `json:"status"`
	StatusLabel        string  `json:"statusLabel"`
	Progress           float64 `json:"progress"`
	Resolution         string  `json:"resolution"`
	Quality            string  `json:"quality"`
	ErrorMessage       string  `json:"errorMessage,omitempty"`
	SizeBytes          int64   `json:"sizeBytes"`
	SizeStr            string  `json:"sizeStr"`
	ConvertedSizeBytes int64   `json:"convertedSizeBytes,omitempty"`
	ConvertedSizeStr   string  `json:"convertedSizeStr,omitempty"`
	Attempt            int     `json:"attempt"`
	UploadedAt         string  `json:"uploadedAt,omitempty"`
	PublishedKey       string  `json:"publishedKey,omitempty"`
	PublishError       string  `json:"publishError,omitempty"`
	CreatedAt          string  `json:"createdAt,omitempty"`
	UpdatedAt          string  `json:"updatedAt,omitempty"`
	StartedAt          string  `json:"startedAt,omitempty"`
	FinishedAt         string  `json:"finishedAt,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Items []Job `json:"items"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Item Job `json:"item"`
}

// CapacityCard summarizes storage usage for display.
type CapacityCard struct {
	LimitBytes     int64   `json:"limitBytes"`
	UsedBytes      int64   `json:"usedBytes"`
	RemainingBytes int64   `json:"remainingBytes"`
	Percent        float64 `json:"percent"`
	UsedGiB        float64 `json:"usedGiB"`
	LimitGiB       float64 `json:"limitGiB"`
	LimitStr       string  `json:"limitStr"`
	UsedStr        string  `json:"usedStr"`
	RemainingStr   string  `json:"remainingStr"`
	Level          string  `json:"level"`
	LevelLabel     string  `json:"levelLabel"`
}

// Settings is the global selection plus its choices.
type Settings struct {
	Resolution     string   `json:"resolution"`
	Quality        string   `json:"quality"`
	Resolutions    []string `json:"resolutions"`
	Qualities      []string `json:"qualities"`
	ResolutionHelp string   `json:"resolutionHelp"`
	QualityHelp    string   `json:"qualityHelp"`
}

// SettingsUpdate changes one or both selections. Empty fields are unchanged.
type SettingsUpdate struct {
	Resolution string `json:"resolution,omitempty"`
	Quality    string `json:"quality,omitempty"`
}

// StagedUpload is a file awaiting confirmation.
type StagedUpload struct {
	StoredName   string `json:"storedName"`
	OriginalName string `json:"originalName"`
	SizeBytes    int64  `json:"sizeBytes"`
	SizeStr      string `json:"sizeStr"`
}

// UploadsResponse lists staged uploads.
type UploadsResponse struct {
	Items []StagedUpload `json:"items"`
}

// UploadResult reports what happened to each file of a multi-file upload.
type UploadResult struct {
	Jobs   []Job          `json:"jobs,omitempty"`
	Staged []StagedUpload `json:"staged,omitempty"`
	Errors []string       `json:"errors,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CancelUploadsResponse reports how many staged files were discarded.
type CancelUploadsResponse struct {
	Cancelled int `json:"cancelled"`
}

// CheckResult is the outcome of a filesystem or configuration check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	LockFilePath   string             `json:"lockFilePath"`
	SocketPath     string             `json:"socketPath"`
	APIBind        string             `json:"apiBind"`
	StagingDir     string             `json:"stagingDir"`
	JobStats       map[string]int     `json:"jobStats"`
	RunningJobs    int                `json:"runningJobs"`
	PendingUploads int                `json:"pendingUploads"`
	Capacity       CapacityCard       `json:"capacity"`
	Settings       Settings           `json:"settings"`
	Publish        string             `json:"publish,omitempty"`
	Dependencies   []DependencyStatus `json:"dependencies"`
	Checks         []CheckResult      `json:"checks,omitempty"`
}
