package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aceeric/airgap/impl/globals"
	"github.com/stretchr/testify/require"
)

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestWorkerPull(t *testing.T) {
	var buf bytes.Buffer
	fs := newFakeStore()
	w := &Worker{Store: fs, Console: globals.NewConsole(&buf)}
	o := w.Transfer(context.Background(), WorkItem{Ref: "a/img:1", Index: 0, Total: 3})
	require.True(t, o.Succeeded)
	require.False(t, o.Skipped)
	require.NoError(t, o.Err)
	require.Empty(t, o.SavedTo)
	require.Equal(t, []string{
		"[1/3] Pulling a/img:1...",
		"[1/3] Successfully pulled a/img:1",
	}, lines(&buf))
	require.Empty(t, fs.inspected)
}

func TestWorkerPullFailure(t *testing.T) {
	var buf bytes.Buffer
	fs := newFakeStore()
	fs.failPull["b/img:2"] = true
	w := &Worker{Store: fs, Console: globals.NewConsole(&buf), Save: false}
	o := w.Transfer(context.Background(), WorkItem{Ref: "b/img:2", Index: 1, Total: 3})
	require.False(t, o.Succeeded)
	var te *TransferError
	require.ErrorAs(t, o.Err, &te)
	require.Equal(t, PhasePull, te.Phase)
	require.Equal(t, "b/img:2", te.Ref)
	require.Contains(t, o.Err.Error(), "manifest unknown")
	require.Equal(t, []string{
		"[2/3] Pulling b/img:2...",
		"[2/3] Failed to pull b/img:2: manifest unknown",
	}, lines(&buf))
}

func TestWorkerSkipExisting(t *testing.T) {
	var buf bytes.Buffer
	fs := newFakeStore()
	fs.present["a/img:1"] = true
	w := &Worker{Store: fs, Console: globals.NewConsole(&buf), SkipExisting: true}

	o := w.Transfer(context.Background(), WorkItem{Ref: "a/img:1", Index: 0, Total: 2})
	require.True(t, o.Succeeded)
	require.True(t, o.Skipped)
	require.Empty(t, fs.pulls())
	require.Equal(t, []string{"[1/2] a/img:1 already exists locally, skipping pull."}, lines(&buf))

	// absent image is probed and then pulled
	o = w.Transfer(context.Background(), WorkItem{Ref: "b/img:2", Index: 1, Total: 2})
	require.True(t, o.Succeeded)
	require.False(t, o.Skipped)
	require.Equal(t, []string{"b/img:2"}, fs.pulls())
	require.Equal(t, []string{"a/img:1", "b/img:2"}, fs.inspected)
}

func TestWorkerSave(t *testing.T) {
	var buf bytes.Buffer
	fs := newFakeStore()
	dir := filepath.Join(t.TempDir(), "harness-airgapped", "nested")
	w := &Worker{Store: fs, Console: globals.NewConsole(&buf), Save: true, SaveDir: dir}
	o := w.Transfer(context.Background(), WorkItem{Ref: "docker.io/calico/cni:v3.27.0", Index: 0, Total: 1})
	require.True(t, o.Succeeded)
	expected := filepath.Join(dir, "docker.io_calico_cni:v3.27.0.tar")
	require.Equal(t, expected, o.SavedTo)
	b, err := os.ReadFile(expected)
	require.NoError(t, err)
	require.Equal(t, "docker.io/calico/cni:v3.27.0", string(b))
	require.Equal(t, "[1/1] Successfully saved docker.io/calico/cni:v3.27.0 to "+expected, lines(&buf)[2])
}

func TestWorkerSaveFailure(t *testing.T) {
	var buf bytes.Buffer
	fs := newFakeStore()
	fs.failSave["a/img:1"] = true
	w := &Worker{Store: fs, Console: globals.NewConsole(&buf), Save: true, SaveDir: t.TempDir()}
	o := w.Transfer(context.Background(), WorkItem{Ref: "a/img:1", Index: 0, Total: 1})
	require.False(t, o.Succeeded)
	require.Empty(t, o.SavedTo)
	var te *TransferError
	require.ErrorAs(t, o.Err, &te)
	require.Equal(t, PhaseSave, te.Phase)
	require.Equal(t, "[1/1] Failed to pull and save a/img:1: no space left on device", lines(&buf)[2])
}

func TestWorkerPullFailureSkipsSave(t *testing.T) {
	fs := newFakeStore()
	fs.failPull["a/img:1"] = true
	w := &Worker{Store: fs, Save: true, SaveDir: t.TempDir()}
	o := w.Transfer(context.Background(), WorkItem{Ref: "a/img:1", Index: 0, Total: 1})
	require.False(t, o.Succeeded)
	require.Empty(t, fs.saves())
}

func TestWorkerSkipExistingStillSaves(t *testing.T) {
	fs := newFakeStore()
	fs.present["a/img:1"] = true
	w := &Worker{Store: fs, SkipExisting: true, Save: true, SaveDir: t.TempDir()}
	o := w.Transfer(context.Background(), WorkItem{Ref: "a/img:1", Index: 0, Total: 1})
	require.True(t, o.Succeeded)
	require.True(t, o.Skipped)
	require.NotEmpty(t, o.SavedTo)
	require.Empty(t, fs.pulls())
	require.Equal(t, []string{"a/img:1"}, fs.saves())
}

func TestWorkerSaveDirNotCreatable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	w := &Worker{Store: newFakeStore(), Save: true, SaveDir: filepath.Join(file, "sub")}
	o := w.Transfer(context.Background(), WorkItem{Ref: "a/img:1", Index: 0, Total: 1})
	require.False(t, o.Succeeded)
	var te *TransferError
	require.ErrorAs(t, o.Err, &te)
	require.Equal(t, PhaseSave, te.Phase)
}

func TestWorkerTimeout(t *testing.T) {
	fs := newFakeStore()
	fs.latency["slow/img:1"] = 5 * time.Second
	w := &Worker{Store: fs, Timeout: 20 * time.Millisecond}
	start := time.Now()
	o := w.Transfer(context.Background(), WorkItem{Ref: "slow/img:1", Index: 0, Total: 1})
	require.False(t, o.Succeeded)
	require.True(t, errors.Is(o.Err, context.DeadlineExceeded))
	require.Less(t, time.Since(start), 2*time.Second)
	require.GreaterOrEqual(t, o.Duration, 20*time.Millisecond)
}

func TestWorkerNilConsole(t *testing.T) {
	w := &Worker{Store: newFakeStore()}
	o := w.Transfer(context.Background(), WorkItem{Ref: "a/img:1", Index: 0, Total: 1})
	require.True(t, o.Succeeded)
}
