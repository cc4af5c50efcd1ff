package pipeline

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is the coalescing window for file watcher events.
const WatchDebounce = 2 * time.Second

// EventKind distinguishes the three incremental re-index triggers.
type EventKind int

const (
	EventModified EventKind = iota
	EventDeleted
	EventRenamed
)

// Event is a single coalesced file-system change ready for the engine to
// act on. From is only set for EventRenamed.
type Event struct {
	Kind EventKind
	Path string
	From string
}

// Watcher wraps fsnotify with a debounce-then-flush pattern: a single
// time.AfterFunc timer reset on every new event, firing once activity
// settles, collapsing bursts of filesystem churn into one batch of Events.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]Event
	timer   *time.Timer

	flush func([]Event)
}

// NewWatcher creates a Watcher that calls flush with the coalesced event
// batch after WatchDebounce has elapsed since the last change.
func NewWatcher(flush func([]Event)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:     fsw,
		pending: make(map[string]Event),
		flush:   flush,
	}, nil
}

// Add registers a root directory for recursive-equivalent watching;
// fsnotify only watches the directory itself, so callers add every
// subdirectory under each configured root.
func (w *Watcher) Add(path string) error {
	return w.fsw.Add(path)
}

// Run drains fsnotify events until Close is called. Intended to run in
// its own goroutine.
func (w *Watcher) Run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.record(ev)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Errors are surfaced through the engine's status message, not
			// fatal to the watch loop.
		}
	}
}

func (w *Watcher) record(ev fsnotify.Event) {
	var e Event
	switch {
	case ev.Op&fsnotify.Remove != 0:
		e = Event{Kind: EventDeleted, Path: ev.Name}
	case ev.Op&fsnotify.Rename != 0:
		e = Event{Kind: EventDeleted, Path: ev.Name} // fsnotify reports the old path's removal separately from the new path's create
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		e = Event{Kind: EventModified, Path: ev.Name}
	default:
		return
	}

	w.mu.Lock()
	w.pending[e.Path] = e
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(WatchDebounce, w.doFlush)
	w.mu.Unlock()
}

func (w *Watcher) doFlush() {
	w.mu.Lock()
	events := make([]Event, 0, len(w.pending))
	for _, e := range w.pending {
		events = append(events, e)
	}
	w.pending = make(map[string]Event)
	w.mu.Unlock()

	if len(events) > 0 && w.flush != nil {
		w.flush(events)
	}
}

// Close stops the underlying fsnotify watcher and any pending debounce
// timer.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
