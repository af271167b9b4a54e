// Package report summarizes the outcomes of a run, prints the summary, and
// persists it to a file.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aceeric/airgap/impl/batch"
	log "github.com/sirupsen/logrus"
)

// Summary is derived once from the outcomes of a completed run. Succeeded plus
// Failed always equals Total.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// PersistError means the summary could not be written to the report file. The
// outcomes of the run are unaffected.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("unable to write report to %s: %s", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Summarize counts the passed outcomes.
func Summarize(outcomes []batch.Outcome, elapsed time.Duration) Summary {
	s := Summary{Total: len(outcomes), Elapsed: elapsed}
	for _, o := range outcomes {
		if o.Succeeded {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// Write writes the summary to the passed writer:
//
//	Total time: 12.34 seconds
//	Total images: 3
//	Succeeded: 2
//	Failed: 1
func Write(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w, "Total time: %.2f seconds\nTotal images: %d\nSucceeded: %d\nFailed: %d\n",
		s.Elapsed.Seconds(), s.Total, s.Succeeded, s.Failed)
	return err
}

// Persist writes the summary to the passed file, creating or truncating it. Any
// failure is returned as a PersistError.
func Persist(path string, s Summary) error {
	var buf bytes.Buffer
	Write(&buf, s)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	log.Infof("wrote report to %s", path)
	return nil
}
