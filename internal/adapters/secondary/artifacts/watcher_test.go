package artifacts

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *registerRecorder) register(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return nil
}

func (r *registerRecorder) seen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.paths {
		if p == path {
			return true
		}
	}
	return false
}

func TestWatcherInitialSweep(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = store.Save(ctx, "existing.json", strings.NewReader("{}"))
	require.NoError(t, err)

	rec := &registerRecorder{}
	w := NewWatcher(store, rec.register)
	require.NoError(t, w.Start(ctx))

	assert.True(t, rec.seen("existing.json"))
}

func TestWatcherRegistersNewFiles(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &registerRecorder{}
	w := NewWatcher(store, rec.register)
	w.debounce = 50 * time.Millisecond
	require.NoError(t, w.Start(ctx))

	_, err = store.Save(ctx, "dropped.json", strings.NewReader("{}"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return rec.seen("dropped.json") },
		3*time.Second, 25*time.Millisecond)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &registerRecorder{}
	w := NewWatcher(store, rec.register)
	w.debounce = 50 * time.Millisecond
	require.NoError(t, w.Start(ctx))

	_, err = store.Save(ctx, "notes.txt", strings.NewReader("x"))
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.False(t, rec.seen("notes.txt"))
}
