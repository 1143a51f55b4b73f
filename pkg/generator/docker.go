package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// containerWorkDir is where the job directory is mounted inside the container
const containerWorkDir = "/work"

// DockerRunner runs floogen inside a container built from Image. The job
// directory is bind mounted read-write so the RTL lands on the host.
type DockerRunner struct {
	client *client.Client
	image  string

	// Binary is the floogen executable inside the image
	Binary string

	mu     sync.Mutex
	pulled map[string]bool
}

// NewDockerRunner connects to the Docker daemon from the environment
func NewDockerRunner(imageRef string) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDockerNotAvailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: %v", ErrDockerNotAvailable, err)
	}

	return &DockerRunner{
		client: cli,
		image:  imageRef,
		Binary: "floogen",
		pulled: make(map[string]bool),
	}, nil
}

// Run executes floogen in a fresh container and removes it afterwards
func (r *DockerRunner) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cmd, err := r.buildCommand(req)
	if err != nil {
		return nil, err
	}

	if err := r.pullImage(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImagePullFailed, err)
	}

	resp, err := r.client.ContainerCreate(ctx, r.containerConfig(cmd), r.hostConfig(req), nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%w: create failed: %v", ErrContainerFailed, err)
	}
	defer r.client.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})

	start := time.Now()
	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("%w: start failed: %v", ErrContainerFailed, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &RunResult{}
	statusCh, errCh := r.client.ContainerWait(execCtx, resp.ID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		result.ExitCode = int(status.StatusCode)
	case err := <-errCh:
		if execCtx.Err() != nil {
			return r.timedOut(ctx, result)
		}
		return nil, fmt.Errorf("%w: wait failed: %v", ErrContainerFailed, err)
	case <-execCtx.Done():
		return r.timedOut(ctx, result)
	}
	result.Duration = time.Since(start)

	logs, err := r.client.ContainerLogs(ctx, resp.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err == nil {
		var stdout, stderr bytes.Buffer
		stdcopy.StdCopy(&stdout, &stderr, logs)
		logs.Close()
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
	}

	return result, nil
}

func (r *DockerRunner) timedOut(ctx context.Context, result *RunResult) (*RunResult, error) {
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, ErrTimeout
}

// Close releases the Docker client
func (r *DockerRunner) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *DockerRunner) pullImage(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pulled[r.image] {
		return nil
	}

	if _, err := r.client.ImageInspect(ctx, r.image); err == nil {
		r.pulled[r.image] = true
		return nil
	}

	pullCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	reader, err := r.client.ImagePull(pullCtx, r.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %v", r.image, err)
	}
	defer reader.Close()
	io.Copy(io.Discard, reader)

	r.pulled[r.image] = true
	return nil
}

// buildCommand maps the host paths of req onto the container mount
func (r *DockerRunner) buildCommand(req *RunRequest) ([]string, error) {
	configPath, err := containerPath(req.WorkDir, req.ConfigPath)
	if err != nil {
		return nil, err
	}
	outputDir, err := containerPath(req.WorkDir, req.OutputDir)
	if err != nil {
		return nil, err
	}
	return []string{r.Binary, "-c", configPath, "-o", outputDir}, nil
}

func (r *DockerRunner) containerConfig(cmd []string) *container.Config {
	return &container.Config{
		Image:        r.image,
		Cmd:          cmd,
		WorkingDir:   containerWorkDir,
		AttachStdout: true,
		AttachStderr: true,
	}
}

func (r *DockerRunner) hostConfig(req *RunRequest) *container.HostConfig {
	return &container.HostConfig{
		Binds: []string{
			fmt.Sprintf("%s:%s", req.WorkDir, containerWorkDir),
		},
		AutoRemove: false,
	}
}

func containerPath(workDir, hostPath string) (string, error) {
	rel, err := filepath.Rel(workDir, hostPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrContainerFailed, hostPath, workDir)
	}
	return filepath.ToSlash(filepath.Join(containerWorkDir, rel)), nil
}
