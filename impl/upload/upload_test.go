package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aceeric/airgap/impl/config"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		url     string
		want    Target
		wantErr bool
	}{
		{url: "gs://smp-airgap-bundles", want: Target{Scheme: GCS, Bucket: "smp-airgap-bundles"}},
		{url: "gs://smp-airgap-bundles/", want: Target{Scheme: GCS, Bucket: "smp-airgap-bundles"}},
		{url: "GS://bundles/2024/06/", want: Target{Scheme: GCS, Bucket: "bundles", Prefix: "2024/06"}},
		{url: "s3://bundles/nightly", want: Target{Scheme: S3, Bucket: "bundles", Prefix: "nightly"}},
		{url: "https://bundles/nightly", wantErr: true},
		{url: "/tmp/bundles", wantErr: true},
		{url: "s3:///nightly", wantErr: true},
		{url: "gs://bad host/%zz", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseURL(tt.url)
		if tt.wantErr {
			require.Error(t, err, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		require.Equal(t, tt.want, got, tt.url)
	}
}

func TestObjectName(t *testing.T) {
	require.Equal(t, "images.tgz", Target{Bucket: "b"}.ObjectName("images.tgz"))
	require.Equal(t, "2024/06/result.txt", Target{Bucket: "b", Prefix: "2024/06"}.ObjectName("result.txt"))
}

type recordingUploader struct {
	objects []string
	failOn  string
}

func (r *recordingUploader) Upload(_ context.Context, localPath string, objectName string) error {
	if filepath.Base(localPath) == r.failOn {
		return errors.New("permission denied")
	}
	r.objects = append(r.objects, objectName)
	return nil
}

func TestFiles(t *testing.T) {
	target := Target{Scheme: GCS, Bucket: "smp-airgap-bundles", Prefix: "run1"}
	r := &recordingUploader{}
	require.NoError(t, Files(context.Background(), r, target, "/tmp/x/images.tgz", "/tmp/y/result.txt"))
	require.Equal(t, []string{"run1/images.tgz", "run1/result.txt"}, r.objects)

	r = &recordingUploader{failOn: "images.tgz"}
	err := Files(context.Background(), r, target, "/tmp/x/images.tgz", "/tmp/y/result.txt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "gs://smp-airgap-bundles/run1/images.tgz")
	require.Empty(t, r.objects)
}

func TestNewBadURL(t *testing.T) {
	_, _, err := New(context.Background(), config.UploadConfig{Url: "ftp://x/y"})
	require.Error(t, err)
}

func writeFile(t *testing.T, name string, contents string) string {
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}
