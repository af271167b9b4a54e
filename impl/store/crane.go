package store

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/layout"
	"github.com/google/go-containerregistry/pkg/v1/match"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	log "github.com/sirupsen/logrus"
)

// refAnnotation is the standard OCI annotation that records the image reference
// of a manifest in an image layout index.
const refAnnotation = "org.opencontainers.image.ref.name"

// Crane pulls images directly from upstream registries with no daemon involved.
// Pulled images are kept in an OCI image layout on the file system, and each
// manifest in the layout index is annotated with the image reference that was
// pulled, which is how Inspect and Save find it again.
type Crane struct {
	// guards the layout index, which is rewritten on every pull
	sync.RWMutex
	path layout.Path
}

// NewCrane opens the OCI image layout in the passed directory, or initializes a new
// empty layout there if none exists.
func NewCrane(dir string) (*Crane, error) {
	if dir == "" {
		return nil, errors.New("the crane backend requires a layout directory")
	}
	p, err := layout.FromPath(dir)
	if err != nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		if p, err = layout.Write(dir, empty.Index); err != nil {
			return nil, err
		}
		log.Infof("initialized image layout in %s", dir)
	}
	return &Crane{path: p}, nil
}

func (c *Crane) Inspect(ctx context.Context, ref string) error {
	if _, err := c.find(ref); err != nil {
		return &OpError{Op: "inspect", Ref: ref, Err: err}
	}
	return nil
}

// Pull gets the image from the upstream registry and writes its blobs into the
// layout. The blobs are written without holding the lock so concurrent pulls
// download concurrently. Only the index update is serialized.
func (c *Crane) Pull(ctx context.Context, ref string) error {
	opts, err := craneOpts(ctx, ref)
	if err != nil {
		return &OpError{Op: "pull", Ref: ref, Err: err}
	}
	img, err := crane.Pull(ref, opts...)
	if err != nil {
		return &OpError{Op: "pull", Ref: ref, Err: err}
	}
	if err := c.path.WriteImage(img); err != nil {
		return &OpError{Op: "pull", Ref: ref, Err: err}
	}
	c.Lock()
	defer c.Unlock()
	annotations := map[string]string{refAnnotation: ref}
	if err := c.path.ReplaceImage(img, match.Annotation(refAnnotation, ref), layout.WithAnnotations(annotations)); err != nil {
		return &OpError{Op: "pull", Ref: ref, Err: err}
	}
	return nil
}

// Save writes the image from the layout to a docker-compatible tarball.
func (c *Crane) Save(ctx context.Context, ref string, path string) error {
	desc, err := c.find(ref)
	if err != nil {
		return &OpError{Op: "save", Ref: ref, Err: err}
	}
	img, err := c.path.Image(desc.Digest)
	if err != nil {
		return &OpError{Op: "save", Ref: ref, Err: err}
	}
	if err := crane.Save(img, ref, path); err != nil {
		return &OpError{Op: "save", Ref: ref, Err: err}
	}
	return nil
}

// find returns the layout index descriptor annotated with the passed ref.
func (c *Crane) find(ref string) (v1.Descriptor, error) {
	c.RLock()
	defer c.RUnlock()
	idx, err := c.path.ImageIndex()
	if err != nil {
		return v1.Descriptor{}, err
	}
	im, err := idx.IndexManifest()
	if err != nil {
		return v1.Descriptor{}, err
	}
	for _, desc := range im.Manifests {
		if desc.Annotations[refAnnotation] == ref {
			return desc, nil
		}
	}
	return v1.Descriptor{}, ErrNotFound
}

// craneOpts builds the crane options for pulling the passed image from the
// configuration of its registry: platform, http scheme, basic auth, and TLS.
func craneOpts(ctx context.Context, ref string) ([]crane.Option, error) {
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return nil, err
	}
	opts, err := registryOpts(parsed.Context().RegistryStr())
	if err != nil {
		return nil, err
	}
	craneOpts := []crane.Option{
		crane.WithContext(ctx),
		crane.WithPlatform(&v1.Platform{OS: opts.OStype, Architecture: opts.ArchType}),
	}
	if opts.Scheme == "http" {
		craneOpts = append(craneOpts, crane.Insecure)
	}
	if opts.Username != "" || opts.Password != "" {
		craneOpts = append(craneOpts, crane.WithAuth(&authn.Basic{Username: opts.Username, Password: opts.Password}))
	}
	if opts.TlsCfg != nil {
		transport := remote.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = opts.TlsCfg
		craneOpts = append(craneOpts, crane.WithTransport(transport))
	}
	return craneOpts, nil
}
