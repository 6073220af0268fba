package artifacts

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// RegisterFunc takes the store-relative path of an artifact file and
// registers (or re-registers) the emulator it describes.
type RegisterFunc func(ctx context.Context, path string) error

// Watcher registers every artifact already in the store, then keeps the
// registry in sync with files dropped into the store root. Events are
// debounced per file so an artifact being copied in triggers one
// registration, not one per write.
type Watcher struct {
	store    *Store
	register RegisterFunc
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewWatcher(store *Store, register RegisterFunc) *Watcher {
	return &Watcher{
		store:    store,
		register: register,
		debounce: 500 * time.Millisecond,
		timers:   make(map[string]*time.Timer),
	}
}

// Start performs the initial sweep and begins watching the store root. It
// returns once the sweep is done; the watch loop runs until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	paths, err := w.store.ListArtifacts(ctx)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := w.register(ctx, path); err != nil {
			log.WithError(err).WithField("artifact", path).Warn("failed to register artifact")
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.store.Root()); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	log.WithField("dir", w.store.Root()).Info("watching artifact directory")
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Create covers atomic renames into place, Write covers
			// in-place edits.
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			rel, err := filepath.Rel(w.store.Root(), event.Name)
			if err != nil {
				continue
			}
			w.schedule(ctx, filepath.ToSlash(rel))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("artifact watcher error")
		}
	}
}

// schedule (re)arms the debounce timer of one artifact file.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err := w.register(ctx, path); err != nil {
			log.WithError(err).WithField("artifact", path).Warn("failed to register artifact")
		} else {
			log.WithField("artifact", path).Info("registered artifact")
		}
	})
}
