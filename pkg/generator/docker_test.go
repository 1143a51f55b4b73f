package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDockerRunner_BuildCommand(t *testing.T) {
	runner := &DockerRunner{Binary: "floogen", image: "floogen:latest"}

	cmd, err := runner.buildCommand(&RunRequest{
		WorkDir:    "/srv/output/job_1",
		ConfigPath: "/srv/output/job_1/config.yml",
		OutputDir:  "/srv/output/job_1/rtl_output",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"floogen", "-c", "/work/config.yml", "-o", "/work/rtl_output"}, cmd)
}

func TestDockerRunner_BuildCommandOutsideWorkDir(t *testing.T) {
	runner := &DockerRunner{Binary: "floogen"}

	_, err := runner.buildCommand(&RunRequest{
		WorkDir:    "/srv/output/job_1",
		ConfigPath: "/etc/passwd",
		OutputDir:  "/srv/output/job_1/rtl_output",
	})
	assert.ErrorIs(t, err, ErrContainerFailed)
}

func TestDockerRunner_ContainerConfig(t *testing.T) {
	runner := &DockerRunner{image: "floogen:latest"}

	cfg := runner.containerConfig([]string{"floogen"})
	assert.Equal(t, "floogen:latest", cfg.Image)
	assert.Equal(t, "/work", cfg.WorkingDir)

	host := runner.hostConfig(&RunRequest{WorkDir: "/srv/output/job_1"})
	assert.Equal(t, []string{"/srv/output/job_1:/work"}, host.Binds)
}
