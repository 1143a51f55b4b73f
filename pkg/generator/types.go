package generator

import (
	"context"
	"time"
)

// JobStatus is the final state of a recorded generation job
type JobStatus string

const (
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job is the record kept for every generation run that reached floogen
type Job struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	OutputPath string    `json:"output_path,omitempty"`
	ZipPath    string    `json:"zip_path,omitempty"`
	ConfigFile string    `json:"config_file,omitempty"`
	Error      string    `json:"error,omitempty"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`

	// ArtifactURI is set when the ZIP was published to object storage
	ArtifactURI string `json:"artifact_uri,omitempty"`
}

// Succeeded reports whether the job produced an RTL archive
func (j *Job) Succeeded() bool {
	return j.Status == StatusCompleted
}

// RunRequest describes one floogen invocation. Paths are absolute host paths;
// ConfigPath and OutputDir live under WorkDir.
type RunRequest struct {
	ConfigPath string
	OutputDir  string
	WorkDir    string
	Timeout    time.Duration
}

// RunResult is the captured outcome of a floogen process that ran to exit
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes floogen. Implementations return ErrToolNotFound when the
// tool cannot be started and ErrTimeout when the deadline passes; a non-zero
// exit is reported through RunResult.ExitCode, not as an error.
type Runner interface {
	Run(ctx context.Context, req *RunRequest) (*RunResult, error)
}

// Publisher uploads a completed job's archive and returns its location
type Publisher interface {
	Publish(ctx context.Context, job *Job) (string, error)
}

// DefaultTimeout bounds a single floogen run
const DefaultTimeout = 5 * time.Minute
