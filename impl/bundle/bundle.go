// Package bundle packs the image tarballs saved by a run into a single gzipped
// tarball for transport into an air-gapped environment.
package bundle

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"github.com/opencontainers/go-digest"
	log "github.com/sirupsen/logrus"
)

// ChecksumsName is the name of the checksum entry in the bundle.
const ChecksumsName = "SHA256SUMS"

// Create writes every passed artifact into a gzipped tarball at the passed path.
// Each artifact is stored under its base name. If checksums is true, then a
// SHA256SUMS entry is added at the end with one line per artifact in the format of
// the sha256sum utility so the bundle can be verified on the far side with
// 'sha256sum -c'. The bundle is written to a temp file in the same directory and
// renamed on success, so the path either holds a complete bundle or is untouched.
func Create(path string, artifacts []string, checksums bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := write(tmp, artifacts, checksums); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	log.Infof("bundled %d images into %s", len(artifacts), path)
	return nil
}

// write creates the bundle file.
func write(bundlePath string, artifacts []string, checksums bool) (err error) {
	f, err := os.Create(bundlePath)
	if err != nil {
		return err
	}
	gz := pgzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	defer func() {
		err = errors.Join(err, tw.Close(), gz.Close(), f.Close())
	}()

	var sums bytes.Buffer
	for _, artifact := range artifacts {
		dgst, err := addFile(tw, artifact)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sums, "%s  %s\n", dgst.Encoded(), filepath.Base(artifact))
	}
	if checksums {
		hdr := &tar.Header{
			Name: ChecksumsName,
			Mode: 0o644,
			Size: int64(sums.Len()),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(sums.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// addFile adds one artifact to the tarball under its base name and returns its
// sha256 digest.
func addFile(tw *tar.Writer, artifact string) (digest.Digest, error) {
	f, err := os.Open(artifact)
	if err != nil {
		return "", err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %s", artifact)
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return "", err
	}
	hdr.Name = filepath.Base(artifact)
	if err := tw.WriteHeader(hdr); err != nil {
		return "", err
	}
	digester := digest.Canonical.Digester()
	if _, err := io.Copy(tw, io.TeeReader(f, digester.Hash())); err != nil {
		return "", fmt.Errorf("error adding %s to bundle: %w", artifact, err)
	}
	return digester.Digest(), nil
}
