package subcmd

import (
	"fmt"
	"io"
)

// Version writes the version and build date to the passed writer.
func Version(out io.Writer, buildVer string, buildDtm string) {
	fmt.Fprintf(out, "airgap version: %s build date: %s\n", buildVer, buildDtm)
}
