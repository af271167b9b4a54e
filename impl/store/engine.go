package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aceeric/airgap/impl/config"
	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	log "github.com/sirupsen/logrus"
)

// engineAPI is the subset of the Docker Engine API client used by the engine backend.
type engineAPI interface {
	ImageInspect(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ImageSave(ctx context.Context, imageIDs []string, opts ...client.ImageSaveOption) (io.ReadCloser, error)
}

// Engine talks to the Docker daemon over the Engine API rather than running the
// docker CLI. The daemon is located from the environment (DOCKER_HOST, etc.)
type Engine struct {
	api engineAPI
}

// NewEngine creates a Docker Engine API client from the environment, negotiating
// the API version with the daemon.
func NewEngine() (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("unable to create docker engine client: %w", err)
	}
	return &Engine{api: cli}, nil
}

func (e *Engine) Inspect(ctx context.Context, ref string) error {
	if _, err := e.api.ImageInspect(ctx, ref); err != nil {
		if client.IsErrNotFound(err) {
			return &OpError{Op: "inspect", Ref: ref, Err: ErrNotFound}
		}
		return &OpError{Op: "inspect", Ref: ref, Err: err}
	}
	return nil
}

// Pull pulls the image and drains the progress stream. The daemon reports pull
// failures inside the stream so the stream has to be read to the end to know
// whether the pull actually succeeded.
func (e *Engine) Pull(ctx context.Context, ref string) error {
	opts, err := e.pullOptions(ref)
	if err != nil {
		return &OpError{Op: "pull", Ref: ref, Err: err}
	}
	rc, err := e.api.ImagePull(ctx, ref, opts)
	if err != nil {
		return &OpError{Op: "pull", Ref: ref, Err: err}
	}
	defer rc.Close()
	if err := jsonmessage.DisplayJSONMessagesStream(rc, io.Discard, 0, false, nil); err != nil {
		return &OpError{Op: "pull", Ref: ref, Err: err}
	}
	return nil
}

func (e *Engine) Save(ctx context.Context, ref string, path string) error {
	rc, err := e.api.ImageSave(ctx, []string{ref})
	if err != nil {
		return &OpError{Op: "save", Ref: ref, Err: err}
	}
	defer rc.Close()
	f, err := os.Create(path)
	if err != nil {
		return &OpError{Op: "save", Ref: ref, Err: err}
	}
	_, err = io.Copy(f, rc)
	err = errors.Join(err, f.Close())
	if err != nil {
		return &OpError{Op: "save", Ref: ref, Err: err}
	}
	return nil
}

// pullOptions builds the pull options for the passed image. Registry credentials are
// attached if the registry is configured with any. A reference that can't be parsed
// gets no credentials but is still handed to the daemon, which has the final word
// on whether it is valid.
func (e *Engine) pullOptions(ref string) (image.PullOptions, error) {
	pullOpts := image.PullOptions{}
	// the daemon picks its own platform unless one was explicitly configured
	if config.GetOs() != "" && config.GetArch() != "" {
		pullOpts.Platform = config.GetOs() + "/" + config.GetArch()
	}
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		log.Debugf("unable to parse %s, pulling without credentials: %s", ref, err)
		return pullOpts, nil
	}
	host := reference.Domain(named)
	opts, err := registryOpts(host)
	if err != nil {
		return pullOpts, err
	}
	if opts.Username == "" && opts.Password == "" {
		return pullOpts, nil
	}
	encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      opts.Username,
		Password:      opts.Password,
		ServerAddress: host,
	})
	if err != nil {
		return pullOpts, err
	}
	pullOpts.RegistryAuth = encoded
	return pullOpts, nil
}
