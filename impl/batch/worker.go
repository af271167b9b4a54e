package batch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/aceeric/airgap/impl/globals"
	"github.com/aceeric/airgap/impl/helpers"
	"github.com/aceeric/airgap/impl/store"
	log "github.com/sirupsen/logrus"
)

// Worker transfers one image at a time from its upstream registry into the local
// store and optionally saves it from the store to a tarball. A Worker has no state
// that changes while transferring so one Worker is shared by every goroutine in
// the pool.
type Worker struct {
	Store   store.Store
	Console *globals.Console
	// SkipExisting probes the store first and doesn't pull images already in it.
	SkipExisting bool
	// Save saves each image to a tarball in SaveDir after the pull.
	Save    bool
	SaveDir string
	// Timeout bounds each individual store call. Zero means no bound.
	Timeout time.Duration
}

// Transfer runs the steps for one image and returns its Outcome. The first step
// that fails ends the transfer and its error is recorded in the Outcome. There are
// no retries, and a partially written tarball is left as is.
//
// If SkipExisting is set and the image is already in the store, the pull is skipped.
// If Save is not set that completes the item. Otherwise the present image is still
// saved so that it lands in the output directory with the pulled images.
func (w *Worker) Transfer(ctx context.Context, item WorkItem) Outcome {
	start := time.Now()
	outcome := w.transfer(ctx, item)
	outcome.Duration = time.Since(start)
	return outcome
}

func (w *Worker) transfer(ctx context.Context, item WorkItem) Outcome {
	outcome := Outcome{Item: item}
	if w.SkipExisting && w.exists(ctx, item.Ref) {
		w.Console.Println(item.label() + " " + item.Ref + " already exists locally, skipping pull.")
		outcome.Skipped = true
	} else {
		w.Console.Println(item.label() + " Pulling " + item.Ref + "...")
		if err := w.call(ctx, func(ctx context.Context) error { return w.Store.Pull(ctx, item.Ref) }); err != nil {
			return w.fail(outcome, PhasePull, err)
		}
		w.Console.Println(item.label() + " Successfully pulled " + item.Ref)
	}

	if w.Save {
		path := helpers.ArtifactPath(w.SaveDir, item.Ref)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return w.fail(outcome, PhaseSave, err)
		}
		if err := w.call(ctx, func(ctx context.Context) error { return w.Store.Save(ctx, item.Ref, path) }); err != nil {
			return w.fail(outcome, PhaseSave, err)
		}
		w.Console.Println(item.label() + " Successfully saved " + item.Ref + " to " + path)
		outcome.SavedTo = path
	}
	outcome.Succeeded = true
	return outcome
}

// exists probes the store for the image.
func (w *Worker) exists(ctx context.Context, ref string) bool {
	present := false
	w.call(ctx, func(ctx context.Context) error {
		present = store.Exists(ctx, w.Store, ref)
		return nil
	})
	return present
}

// call runs one store operation, bounded by the worker timeout if there is one.
func (w *Worker) call(ctx context.Context, op func(context.Context) error) error {
	if w.Timeout <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()
	return op(ctx)
}

// fail records the failure of one phase in the passed outcome and returns it.
func (w *Worker) fail(outcome Outcome, phase string, err error) Outcome {
	what := "pull"
	if w.Save {
		what = "pull and save"
	}
	w.Console.Println(outcome.Item.label() + " Failed to " + what + " " + outcome.Item.Ref + ": " + err.Error())
	log.Debugf("%s of %s failed: %s", phase, outcome.Item.Ref, err)
	outcome.Err = &TransferError{Phase: phase, Ref: outcome.Item.Ref, Err: err}
	return outcome
}
