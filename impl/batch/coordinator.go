package batch

import (
	"context"
	"time"

	"github.com/aceeric/airgap/impl/helpers"
	"github.com/aceeric/airgap/impl/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Coordinator fans a list of images out to a fixed size pool of goroutines, each
// running the Worker, and collects their outcomes.
type Coordinator struct {
	workers int
	worker  *Worker
}

// NewCoordinator returns a Coordinator that runs at most 'workers' transfers at a
// time. Values less than one are treated as one.
func NewCoordinator(workers int, worker *Worker) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{workers: workers, worker: worker}
}

// Run transfers every image in the passed list and returns once every image has
// an outcome. A failed image never stops the run. Outcomes are sent by the workers
// over a channel to a single collector goroutine which slots each one into the
// result at the input position of its image, so the order of the outcomes always
// matches the order of the input regardless of completion order. There is no
// cancellation beyond what the passed context does to in-flight store calls.
func (c *Coordinator) Run(ctx context.Context, refs []string) Result {
	start := time.Now()
	result := Result{Outcomes: make([]Outcome, len(refs))}
	if len(refs) == 0 {
		result.Elapsed = time.Since(start)
		return result
	}
	log.Infof("transferring %d images with %d workers", len(refs), c.workers)

	outcomes := make(chan Outcome, c.workers)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for o := range outcomes {
			result.Outcomes[o.Item.Index] = o
			record(o)
		}
	}()

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, ref := range refs {
		item := WorkItem{Ref: ref, Index: i, Total: len(refs)}
		// blocks while all workers are busy
		g.Go(func() error {
			outcomes <- c.worker.Transfer(ctx, item)
			return nil
		})
	}
	g.Wait()
	close(outcomes)
	<-collected

	result.Elapsed = time.Since(start)
	log.Infof("transferred %d images in %s", len(refs), result.Elapsed)
	return result
}

// record updates the metrics for one outcome.
func record(o Outcome) {
	outcome := metrics.Pulled
	switch {
	case !o.Succeeded:
		outcome = metrics.Failed
	case o.Skipped:
		outcome = metrics.Skipped
	}
	metrics.IncImagesByOutcome(outcome, helpers.RegistryOf(o.Item.Ref))
	metrics.ObserveImageSeconds(outcome, o.Duration.Seconds())
}
