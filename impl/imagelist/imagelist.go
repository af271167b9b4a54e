// Package imagelist reads the list of image refs to transfer. The list is a
// plain text file with one image ref per line, e.g.:
//
//	docker.io/calico/cni:v3.27.0
//	registry.k8s.io/pause:3.8
//	# comments are ignored
//	quay.io/jetstack/cert-manager-controller:v1.11.2
package imagelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ResourceError is returned when the image list file can't be opened or read.
// Nothing is dispatched when this happens.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("unable to read image list %s: %s", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Load reads the image list in the passed file. Each line is trimmed of leading and
// trailing white space. Empty lines and lines beginning with '#' are skipped. The
// order of the returned refs is the order in the file, and duplicates are kept.
func Load(imageListFile string) ([]string, error) {
	return load(imageListFile, true)
}

// LoadRaw is like Load except every line is returned - including empty lines which
// come back as empty strings, and comment lines which are returned as-is.
func LoadRaw(imageListFile string) ([]string, error) {
	return load(imageListFile, false)
}

func load(imageListFile string, skipBlank bool) ([]string, error) {
	log.Infof("loading image refs from file: %s", imageListFile)
	f, err := os.Open(imageListFile)
	if err != nil {
		return nil, &ResourceError{Path: imageListFile, Err: err}
	}
	defer f.Close()
	refs, err := Read(f, skipBlank)
	if err != nil {
		return nil, &ResourceError{Path: imageListFile, Err: err}
	}
	log.Infof("loaded %d image refs from file: %s", len(refs), imageListFile)
	return refs, nil
}

// Read reads image refs from the passed reader, one per line. Lines can be any
// length. If 'skipBlank' is true then empty lines and comment lines are skipped.
func Read(r io.Reader, skipBlank bool) ([]string, error) {
	refs := []string{}
	br := bufio.NewReader(r)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			line := strings.TrimSpace(text)
			if !skipBlank || (len(line) != 0 && !strings.HasPrefix(line, "#")) {
				refs = append(refs, line)
			}
		}
		if err == io.EOF {
			return refs, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
