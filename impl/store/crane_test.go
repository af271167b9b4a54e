package store

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aceeric/airgap/impl/config"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/stretchr/testify/require"
)

// serveImages starts an in-process registry holding one random image per passed
// repo:tag and returns the registry host.
func serveImages(t *testing.T, repos ...string) string {
	srv := httptest.NewServer(registry.New())
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "http://")
	for _, repo := range repos {
		img, err := random.Image(1024, 2)
		require.NoError(t, err)
		require.NoError(t, crane.Push(img, host+"/"+repo))
	}
	return host
}

func TestCranePullInspectSave(t *testing.T) {
	config.Set(config.Configuration{})
	host := serveImages(t, "test/img:1", "test/img:2")
	ref := host + "/test/img:1"
	ctx := context.Background()

	c, err := NewCrane(filepath.Join(t.TempDir(), "layout"))
	require.NoError(t, err)

	require.ErrorIs(t, c.Inspect(ctx, ref), ErrNotFound)
	require.False(t, Exists(ctx, c, ref))
	require.NoError(t, c.Pull(ctx, ref))
	require.True(t, Exists(ctx, c, ref))
	require.False(t, Exists(ctx, c, host+"/test/img:2"))

	out := filepath.Join(t.TempDir(), "img.tar")
	require.NoError(t, c.Save(ctx, ref, out))
	saved, err := tarball.ImageFromPath(out, nil)
	require.NoError(t, err)
	upstream, err := crane.Pull(ref)
	require.NoError(t, err)
	savedConfig, err := saved.ConfigName()
	require.NoError(t, err)
	upstreamConfig, err := upstream.ConfigName()
	require.NoError(t, err)
	require.Equal(t, upstreamConfig, savedConfig)

	require.Error(t, c.Save(ctx, host+"/test/img:2", out))
}

func TestCraneRepull(t *testing.T) {
	config.Set(config.Configuration{})
	host := serveImages(t, "test/img:1")
	ref := host + "/test/img:1"
	dir := filepath.Join(t.TempDir(), "layout")

	c, err := NewCrane(dir)
	require.NoError(t, err)
	require.NoError(t, c.Pull(context.Background(), ref))
	require.NoError(t, c.Pull(context.Background(), ref))

	// re-opening the layout keeps the pulled image, and a re-pull replaces rather
	// than duplicates the index entry
	reopened, err := NewCrane(dir)
	require.NoError(t, err)
	require.True(t, Exists(context.Background(), reopened, ref))
	idx, err := reopened.path.ImageIndex()
	require.NoError(t, err)
	im, err := idx.IndexManifest()
	require.NoError(t, err)
	require.Len(t, im.Manifests, 1)
}

func TestCranePullFailures(t *testing.T) {
	config.Set(config.Configuration{})
	host := serveImages(t)
	c, err := NewCrane(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	err = c.Pull(ctx, host+"/no/such:image")
	require.Error(t, err)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, "pull", opErr.Op)

	require.Error(t, c.Pull(ctx, "::not a ref::"))
	require.False(t, Exists(ctx, c, "::not a ref::"))
}

func TestCraneBasicAuth(t *testing.T) {
	cfg := `
registries:
  - name: registry.example.com
    scheme: http
    auth:
      user: foo
      password: bar
`
	require.NoError(t, config.SetConfigFromStr([]byte(cfg)))
	defer config.Set(config.Configuration{})
	opts, err := craneOpts(context.Background(), "registry.example.com/team/img:1")
	require.NoError(t, err)
	o := crane.GetOptions(opts...)
	require.NotEmpty(t, o.Remote)
	require.NotEmpty(t, o.Name)
}
