package api

// Dataset is a registered input that runs are executed against.
type Dataset struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	SourcePath string         `json:"source_path"`
	CreatedAt  Timestamp      `json:"created_at"`
	Meta       map[string]any `json:"meta"`
}

// Step is one named phase of a run.
type Step struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	StartedAt  Timestamp `json:"started_at"`
	FinishedAt Timestamp `json:"finished_at"`
	Message    string    `json:"message,omitempty"`
}

// Run is one pipeline execution. Steps is only populated on runs fetched by
// id; list results always carry nil Steps.
type Run struct {
	ID         int64          `json:"id"`
	DatasetID  int64          `json:"dataset_id"`
	ModelType  string         `json:"model_type"`
	Status     string         `json:"status"`
	CreatedAt  Timestamp      `json:"created_at"`
	StartedAt  Timestamp      `json:"started_at"`
	FinishedAt Timestamp      `json:"finished_at"`
	Metrics    map[string]any `json:"metrics"`
	Artifacts  map[string]any `json:"artifacts"`
	Error      string         `json:"error,omitempty"`
	Steps      []Step         `json:"steps,omitempty"`
}

// HasSteps reports whether the run carries detail-level step data.
func (r Run) HasSteps() bool { return r.Steps != nil }

type CreateDatasetRequest struct {
	Name       string         `json:"name"`
	SourcePath string         `json:"source_path"`
	Meta       map[string]any `json:"meta"`
}

type CreateRunRequest struct {
	DatasetID int64  `json:"dataset_id"`
	ModelType string `json:"model_type"`
}

// LogTail is the body of GET /runs/{id}/logs.
type LogTail struct {
	RunID int64  `json:"run_id"`
	Tail  string `json:"tail"`
}
