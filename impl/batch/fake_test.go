package batch

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// fakeStore is an in-memory store that can be told which images are present, which
// fail, and how long each operation takes. It records every call and the maximum
// number of operations that were ever in flight at the same time.
type fakeStore struct {
	mu        sync.Mutex
	present   map[string]bool
	failPull  map[string]bool
	failSave  map[string]bool
	latency   map[string]time.Duration
	inspected []string
	pulled    []string
	saved     []string
	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		present:  map[string]bool{},
		failPull: map[string]bool{},
		failSave: map[string]bool{},
		latency:  map[string]time.Duration{},
	}
}

func (f *fakeStore) Inspect(ctx context.Context, ref string) error {
	f.mu.Lock()
	f.inspected = append(f.inspected, ref)
	present := f.present[ref]
	f.mu.Unlock()
	if !present {
		return errors.New("No such image: " + ref)
	}
	return nil
}

func (f *fakeStore) Pull(ctx context.Context, ref string) error {
	defer f.enter()()
	f.mu.Lock()
	f.pulled = append(f.pulled, ref)
	latency, fail := f.latency[ref], f.failPull[ref]
	f.mu.Unlock()
	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return ctx.Err()
	}
	if fail {
		return errors.New("manifest unknown")
	}
	return nil
}

func (f *fakeStore) Save(ctx context.Context, ref string, path string) error {
	f.mu.Lock()
	f.saved = append(f.saved, ref)
	fail := f.failSave[ref]
	f.mu.Unlock()
	if fail {
		return errors.New("no space left on device")
	}
	return os.WriteFile(path, []byte(ref), 0o644)
}

// enter marks an operation in flight and returns the function that marks it done.
func (f *fakeStore) enter() func() {
	n := f.active.Add(1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	return func() { f.active.Add(-1) }
}

func (f *fakeStore) pulls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.pulled...)
}

func (f *fakeStore) saves() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.saved...)
}

// counts tallies the succeeded and failed outcomes in a result.
func counts(r Result) (int, int) {
	succeeded, failed := 0, 0
	for _, o := range r.Outcomes {
		if o.Succeeded {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
