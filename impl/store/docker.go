package store

import (
	"bytes"
	"context"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

const defaultDockerBinary = "docker"

// DockerCLI drives a docker-compatible command line tool as a subprocess.
type DockerCLI struct {
	binary string
}

// NewDockerCLI returns a store backed by the passed docker executable. If the
// binary is empty then "docker" is resolved from the PATH.
func NewDockerCLI(binary string) *DockerCLI {
	if binary == "" {
		binary = defaultDockerBinary
	}
	return &DockerCLI{binary: binary}
}

func (d *DockerCLI) Inspect(ctx context.Context, ref string) error {
	return d.run(ctx, "inspect", ref, "inspect", "--type=image", ref)
}

func (d *DockerCLI) Pull(ctx context.Context, ref string) error {
	return d.run(ctx, "pull", ref, "pull", ref)
}

func (d *DockerCLI) Save(ctx context.Context, ref string, path string) error {
	return d.run(ctx, "save", ref, "save", "-o", path, ref)
}

// run runs the docker binary with the passed args. Stdout is discarded. Stderr is
// captured and returned in the error so the caller can see why the command failed.
func (d *DockerCLI) run(ctx context.Context, op string, ref string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.binary, args...)
	cmd.Stderr = &stderr
	log.Debugf("exec %s %v", d.binary, args)
	if err := cmd.Run(); err != nil {
		return &OpError{Op: op, Ref: ref, Detail: stderr.String(), Err: err}
	}
	return nil
}
