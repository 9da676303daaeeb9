// Package assets watches a preset's shader and lookup-texture files on disk
// and marks them stale when they change. It holds no cache and never
// triggers an implicit rebuild itself -- the caller polls Stale and decides
// when to act on it, the same hands-off split
// engine/assets/assets.go's AssetManager keeps between noticing a file
// change and actually reloading it.
package assets

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/shaderforge/slangchain/core"
)

// Watcher tracks a set of source files (a preset, its shader passes, its
// lookup textures) and marks them stale when fsnotify reports a write,
// create, rename or remove.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu     sync.Mutex
	stale  map[string]bool
	tracks map[string]bool // the set of paths this Watcher was asked to track

	done chan struct{}
}

// New starts a Watcher with no tracked paths yet.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:    fsw,
		stale:  make(map[string]bool),
		tracks: make(map[string]bool),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Track starts watching path (a preset file, a .slang source, or a LUT
// image) for changes. Watching a path that is already tracked is a no-op.
func (w *Watcher) Track(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	already := w.tracks[abs]
	w.tracks[abs] = true
	w.mu.Unlock()
	if already || !exists(abs) {
		// A preset may reference a shader/LUT path that doesn't exist yet
		// at parse time; nothing to watch until it's written.
		return nil
	}
	return w.fsw.Add(abs)
}

// Stale reports whether path has changed on disk since it was last Tracked
// (or since the last call to Stale for that path), and clears the flag.
func (w *Watcher) Stale(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	stale := w.stale[abs]
	delete(w.stale, abs)
	return stale
}

// Close stops the watcher and releases its fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case e, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.markStale(e.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) markStale(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.tracks[abs] {
		return
	}
	w.stale[abs] = true
}

// exists reports whether path is present on disk. Track uses it to skip
// missing paths silently rather than erroring, since a preset referencing a
// not-yet-written file is a normal editing-time state, not a failure.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
