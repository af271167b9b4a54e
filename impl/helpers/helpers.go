package helpers

import (
	"path/filepath"
	"strings"

	"github.com/aceeric/airgap/impl/globals"
	"github.com/distribution/reference"
)

// unknownRegistry is returned by RegistryOf for refs that can't be parsed.
const unknownRegistry = "unknown"

// ArtifactName makes a file system-safe tarball name from an image ref by
// replacing every slash with an underscore. E.g. 'docker.io/calico/cni:v3.27.0'
// becomes 'docker.io_calico_cni:v3.27.0.tar'. The transformation is lossy:
// 'a/b:1' and 'a_b:1' produce the same name.
func ArtifactName(imageRef string) string {
	return strings.ReplaceAll(imageRef, "/", "_") + globals.ArtifactExt
}

// ArtifactPath joins the passed directory and the artifact name for the
// passed image ref.
func ArtifactPath(dir string, imageRef string) string {
	return filepath.Join(dir, ArtifactName(imageRef))
}

// RegistryOf returns the registry host of the passed image ref, applying the
// docker defaults, so 'calico/cni:v3.27.0' is in 'docker.io'. Image refs are
// not validated so an unparseable ref just returns "unknown".
func RegistryOf(imageRef string) string {
	named, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return unknownRegistry
	}
	return reference.Domain(named)
}
