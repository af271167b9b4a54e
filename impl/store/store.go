// Package store abstracts the local image store that images are pulled into and
// saved out of. Three backends are supported: the docker CLI (the default), the
// Docker Engine API, and a daemonless OCI image layout managed by crane.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Store is the set of operations the transfer worker needs from a local image store.
type Store interface {
	// Inspect returns nil if the image is present in the store.
	Inspect(ctx context.Context, ref string) error
	// Pull pulls the image from its upstream registry into the store.
	Pull(ctx context.Context, ref string) error
	// Save writes the image from the store to a tarball at the passed path.
	Save(ctx context.Context, ref string, path string) error
}

// Backend names
const (
	BackendDocker = "docker"
	BackendEngine = "engine"
	BackendCrane  = "crane"
)

// ErrNotFound is returned by Inspect when a backend knows for certain that the
// image is not in the store.
var ErrNotFound = errors.New("image not found in store")

// OpError is returned by every failed store operation. Detail carries the text
// produced by the underlying tool (e.g. the stderr of a docker subprocess) so that
// it can be surfaced as the failure reason for an image.
type OpError struct {
	Op     string
	Ref    string
	Detail string
	Err    error
}

func (e *OpError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Ref)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	if detail := strings.TrimSpace(e.Detail); detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return msg
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Exists reports whether the passed image is present in the store. It is best
// effort: any failure at all, including a malformed reference or a tool error, is
// treated as "not present" and only logged at debug level. The worst outcome of a
// wrong answer is a redundant pull.
func Exists(ctx context.Context, s Store, ref string) bool {
	if err := s.Inspect(ctx, ref); err != nil {
		log.Debugf("probe for %s: treating as absent: %s", ref, err)
		return false
	}
	return true
}

// Opts configures the backend returned by New.
type Opts struct {
	// Backend is one of docker, engine, or crane. Empty selects docker.
	Backend string
	// DockerBinary is the docker executable for the docker backend.
	DockerBinary string
	// LayoutDir is the OCI image layout directory for the crane backend.
	LayoutDir string
}

// New returns the store backend named in the passed options.
func New(opts Opts) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendDocker:
		return NewDockerCLI(opts.DockerBinary), nil
	case BackendEngine:
		e, err := NewEngine()
		if err != nil {
			return nil, err
		}
		return e, nil
	case BackendCrane:
		c, err := NewCrane(opts.LayoutDir)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", opts.Backend)
	}
}
