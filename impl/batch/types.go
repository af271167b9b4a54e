package batch

import (
	"fmt"
	"time"
)

// WorkItem is one image to transfer. Index is the zero-based position of the image
// in the input list and Total is the length of the list. Both are only used to
// label progress.
type WorkItem struct {
	Ref   string
	Index int
	Total int
}

// label formats the progress prefix, e.g. [3/12]
func (w WorkItem) label() string {
	return fmt.Sprintf("[%d/%d]", w.Index+1, w.Total)
}

// Outcome is the result of transferring one WorkItem.
type Outcome struct {
	Item      WorkItem
	Succeeded bool
	// Skipped is true if the image was already present and no pull was issued.
	Skipped bool
	// SavedTo is the artifact path if the image was saved.
	SavedTo string
	// Err is the failure if Succeeded is false.
	Err      error
	Duration time.Duration
}

// Result holds the outcomes of a run in input order, and the wall clock time from
// dispatch of the first item to collection of the last outcome.
type Result struct {
	Outcomes []Outcome
	Elapsed  time.Duration
}

// Saved returns the artifact paths of every successful outcome that saved an image,
// in input order. A path appears once even if several outcomes saved to it, as
// happens with duplicate refs.
func (r Result) Saved() []string {
	saved := []string{}
	seen := make(map[string]bool)
	for _, o := range r.Outcomes {
		if o.Succeeded && o.SavedTo != "" && !seen[o.SavedTo] {
			seen[o.SavedTo] = true
			saved = append(saved, o.SavedTo)
		}
	}
	return saved
}
