// Package watch reports changes to tool stores on disk. It watches the
// directories that hold every configured store and emits one debounced
// Event per store when anything under it changes.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"toolshed/pkg/logging"
)

// DefaultDebounce is used when New is given a zero interval.
const DefaultDebounce = 300 * time.Millisecond

// Operation is the merged kind of change seen for a store.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Event reports a change under one store.
type Event struct {
	// Store is the configured store path the change belongs to.
	Store string
	// Path is the last file that changed.
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Watcher watches a fixed set of store paths. One goroutine owns the
// fsnotify watcher and the pending changes while it runs.
type Watcher struct {
	// stores are the configured paths, longest first so nested stores
	// match before their parents
	stores   []string
	debounce time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// pending is a change waiting out its quiet period.
type pending struct {
	event Event
	due   time.Time
}

// New creates a Watcher for stores, each a file or a directory.
func New(stores []string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	cleaned := make([]string, len(stores))
	for i, s := range stores {
		cleaned[i] = filepath.Clean(s)
	}
	sort.SliceStable(cleaned, func(i, j int) bool { return len(cleaned[i]) > len(cleaned[j]) })
	return &Watcher{stores: cleaned, debounce: debounce}
}

// Start begins watching. Events are delivered on changes until ctx is done
// or Stop is called. Starting a running watcher does nothing.
func (w *Watcher) Start(ctx context.Context, changes chan<- Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range w.watchDirs() {
		watchDir(fsw, dir)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(ctx, fsw, changes, w.done)

	logging.Info("Watcher", "Started watching %d stores", len(w.stores))
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	logging.Info("Watcher", "Stopped watcher")
	return nil
}

// watchDirs lists every store directory with its immediate
// subdirectories, and the parent directory of every store file. A
// missing store gets its parent watched so its creation is seen.
func (w *Watcher) watchDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	for _, store := range w.stores {
		info, err := os.Stat(store)
		if err != nil || !info.IsDir() {
			add(filepath.Dir(store))
			continue
		}
		add(store)
		entries, _ := os.ReadDir(store)
		for _, e := range entries {
			if e.IsDir() {
				add(filepath.Join(store, e.Name()))
			}
		}
	}
	return dirs
}

func watchDir(fsw *fsnotify.Watcher, dir string) {
	if err := fsw.Add(dir); err != nil {
		logging.Debug("Watcher", "Not watching %s: %v", dir, err)
		return
	}
	logging.Debug("Watcher", "Watching directory: %s", dir)
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- Event, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := fsw.Close(); err != nil {
			logging.Error("Watcher", err, "Error closing filesystem watcher")
		}
	}()

	queue := make(map[string]*pending)
	var timer *time.Timer
	var fire <-chan time.Time

	// rearm points the timer at the earliest due change.
	rearm := func() {
		if timer != nil {
			timer.Stop()
		}
		fire = nil
		var next time.Time
		for _, p := range queue {
			if next.IsZero() || p.due.Before(next) {
				next = p.due
			}
		}
		if next.IsZero() {
			return
		}
		timer = time.NewTimer(time.Until(next))
		fire = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			event, ok := w.translate(fsw, ev)
			if !ok {
				continue
			}
			if p, ok := queue[event.Store]; ok {
				event.Operation = mergeOperations(p.event.Operation, event.Operation)
			}
			queue[event.Store] = &pending{event: event, due: event.Timestamp.Add(w.debounce)}
			rearm()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher", err, "Filesystem watcher error")

		case now := <-fire:
			for store, p := range queue {
				if p.due.After(now) {
					continue
				}
				delete(queue, store)
				select {
				case changes <- p.event:
					logging.Debug("Watcher", "Emitted change event: %s %s", p.event.Operation, p.event.Store)
				case <-ctx.Done():
					return
				}
			}
			rearm()
		}
	}
}

// translate maps a filesystem event onto the store it belongs to.
func (w *Watcher) translate(fsw *fsnotify.Watcher, ev fsnotify.Event) (Event, bool) {
	if isTempFile(ev.Name) {
		return Event{}, false
	}
	ev.Name = filepath.Clean(ev.Name)
	store := w.storeFor(ev.Name)
	if store == "" {
		return Event{}, false
	}

	var op Operation
	switch {
	case ev.Has(fsnotify.Create):
		op = OperationCreate
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			switch {
			case ev.Name == store:
				// the store directory itself appeared after Start
				watchDir(fsw, store)
				entries, _ := os.ReadDir(store)
				for _, e := range entries {
					if e.IsDir() {
						watchDir(fsw, filepath.Join(store, e.Name()))
					}
				}
			case filepath.Dir(ev.Name) == store:
				// a new skill directory needs its own watch
				watchDir(fsw, ev.Name)
			}
		}
	case ev.Has(fsnotify.Write):
		op = OperationUpdate
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// the new name of a rename arrives as its own create
		op = OperationDelete
	default:
		return Event{}, false
	}
	return Event{Store: store, Path: ev.Name, Operation: op, Timestamp: time.Now()}, true
}

// storeFor returns the store a changed path belongs to, or "".
func (w *Watcher) storeFor(path string) string {
	path = filepath.Clean(path)
	for _, store := range w.stores {
		if path == store || strings.HasPrefix(path, store+string(filepath.Separator)) {
			return store
		}
	}
	return ""
}

// mergeOperations folds a later change into an earlier pending one.
func mergeOperations(earlier, later Operation) Operation {
	switch {
	case later == OperationDelete:
		return OperationDelete
	case earlier == OperationCreate:
		return OperationCreate
	case earlier == OperationDelete && later == OperationCreate:
		// delete then create is how an atomic rename looks from outside
		return OperationUpdate
	}
	return later
}

// isTempFile matches the temp files atomic writes rename into place.
func isTempFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && strings.Contains(base, ".tmp-")
}
