package generator

import "errors"

var (
	// ErrToolNotFound is returned when the floogen binary cannot be started
	ErrToolNotFound = errors.New("floogen command not found")

	// ErrTimeout is returned when floogen runs past its deadline
	ErrTimeout = errors.New("floogen execution timed out")

	// ErrGenerationFailed is returned when floogen exits with a non-zero code
	ErrGenerationFailed = errors.New("floogen generation failed")

	// ErrInvalidJobID is returned for job IDs that are not safe directory names
	ErrInvalidJobID = errors.New("invalid job id")

	// ErrJobNotFound is returned when a job is not in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrDockerNotAvailable is returned when the Docker daemon cannot be reached
	ErrDockerNotAvailable = errors.New("docker is not available")

	// ErrImagePullFailed is returned when the floogen image cannot be pulled
	ErrImagePullFailed = errors.New("failed to pull docker image")

	// ErrContainerFailed is returned when the container cannot be run
	ErrContainerFailed = errors.New("container execution failed")

	// ErrUploadFailed is returned when an artifact upload fails
	ErrUploadFailed = errors.New("artifact upload failed")
)

// RunError describes a generation attempt that produced no RTL. Message is
// the text reported to API clients; Stdout and Stderr hold whatever the tool
// printed.
type RunError struct {
	Message string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *RunError) Error() string {
	return e.Message
}

func (e *RunError) Unwrap() error {
	return e.Err
}
