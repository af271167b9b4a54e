package upload

import (
	"context"
	"errors"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSUploader uploads to a Google Cloud Storage bucket.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

// NewGCSUploader creates a storage client authenticated with the passed service
// account key file. If the key file is empty then application default credentials
// are used. The endpoint is only needed to reach something other than the real
// service.
func NewGCSUploader(ctx context.Context, bucket string, keyFile string, endpoint string) (*GCSUploader, error) {
	opts := []option.ClientOption{}
	if keyFile != "" {
		opts = append(opts, option.WithCredentialsFile(keyFile))
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSUploader{client: client, bucket: bucket}, nil
}

func (g *GCSUploader) Upload(ctx context.Context, localPath string, objectName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		return errors.Join(err, w.Close())
	}
	return w.Close()
}
