// Package upload copies the bundle and the report of a run to cloud object storage.
// The destination is a URL whose scheme selects the provider: gs://bucket/prefix for
// Google Cloud Storage or s3://bucket/prefix for Amazon S3.
package upload

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/aceeric/airgap/impl/config"
	log "github.com/sirupsen/logrus"
)

// Uploader copies one local file to an object in a bucket.
type Uploader interface {
	Upload(ctx context.Context, localPath string, objectName string) error
}

// Supported URL schemes
const (
	GCS = "gs"
	S3  = "s3"
)

// Target is a parsed upload URL.
type Target struct {
	Scheme string
	Bucket string
	Prefix string
}

// ObjectName returns the name of the object that a local file with the passed base
// name is uploaded to, e.g. prefix/images.tgz, or images.tgz if there is no prefix.
func (t Target) ObjectName(name string) string {
	if t.Prefix == "" {
		return name
	}
	return path.Join(t.Prefix, name)
}

func (t Target) String() string {
	return t.Scheme + "://" + t.Bucket + "/" + t.Prefix
}

// ParseURL parses an upload URL like gs://smp-airgap-bundles/2024-06 into a Target.
func ParseURL(rawURL string) (Target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, fmt.Errorf("invalid upload url %q: %w", rawURL, err)
	}
	t := Target{
		Scheme: strings.ToLower(u.Scheme),
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}
	if t.Scheme != GCS && t.Scheme != S3 {
		return Target{}, fmt.Errorf("unsupported upload url scheme %q, expected gs:// or s3://", u.Scheme)
	}
	if t.Bucket == "" {
		return Target{}, fmt.Errorf("upload url %q has no bucket", rawURL)
	}
	return t, nil
}

// New parses the configured upload URL and returns the Uploader for its scheme
// along with the parsed target.
func New(ctx context.Context, cfg config.UploadConfig) (Uploader, Target, error) {
	t, err := ParseURL(cfg.Url)
	if err != nil {
		return nil, t, err
	}
	var u Uploader
	switch t.Scheme {
	case GCS:
		u, err = NewGCSUploader(ctx, t.Bucket, cfg.Credentials, cfg.Endpoint)
	case S3:
		u, err = NewS3Uploader(ctx, t.Bucket, cfg)
	}
	if err != nil {
		return nil, t, err
	}
	return u, t, nil
}

// Files uploads each passed file to the target under its base name. The first
// failure stops the upload.
func Files(ctx context.Context, u Uploader, t Target, files ...string) error {
	for _, file := range files {
		object := t.ObjectName(filepath.Base(file))
		log.Infof("uploading %s to %s://%s/%s", file, t.Scheme, t.Bucket, object)
		if err := u.Upload(ctx, file, object); err != nil {
			return fmt.Errorf("error uploading %s to %s://%s/%s: %w", file, t.Scheme, t.Bucket, object, err)
		}
	}
	return nil
}
