package engine

import (
	"os"
	"path/filepath"

	"github.com/codelens/codelens/internal/pipeline"
	"github.com/codelens/codelens/internal/store"
)

// Watch starts the fsnotify-backed incremental re-index path: every
// configured root (and its subdirectories, since fsnotify only watches
// one directory at a time) is registered, and debounced batches of
// change events are merged into the live index under the engine's
// exclusive lock.
func (e *Engine) Watch() error {
	w, err := pipeline.NewWatcher(e.handleEvents)
	if err != nil {
		return err
	}

	for _, root := range e.cfg.Paths {
		_ = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
			if walkErr != nil || !info.IsDir() {
				return nil
			}
			_ = w.Add(path)
			return nil
		})
	}

	e.mu.Lock()
	e.watcher = w
	e.mu.Unlock()

	go w.Run()
	return nil
}

// handleEvents is the Watcher's flush callback: it takes the exclusive
// lock once per debounced batch and applies every coalesced event.
func (e *Engine) handleEvents(events []pipeline.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ev := range events {
		switch ev.Kind {
		case pipeline.EventDeleted:
			e.tombstonePath(ev.Path)
		case pipeline.EventRenamed:
			e.tombstonePath(ev.From)
			e.reindexOne(ev.Path)
		case pipeline.EventModified:
			e.reindexOne(ev.Path)
		}
	}
	e.resolveImports()
}

// tombstonePath marks the FileID registered for path as removed: it stops
// appearing in Path/Text lookups (fileSource.Path returns false) without
// the trigram postings it belongs to being physically rewritten. The next
// full rebuild or explicit snapshot save is what actually prunes it.
func (e *Engine) tombstonePath(path string) {
	canon, err := store.Canonicalize(path)
	if err != nil {
		return
	}
	id, ok := e.store.LookupPath(canon)
	if !ok {
		return
	}
	e.tombstoned[id] = true
	e.dirty = true
}

// reindexOne re-runs Phase A/B for a single changed path and merges it,
// replacing any previously tombstoned record at the same path.
func (e *Engine) reindexOne(path string) {
	partials := pipeline.RunPhaseA([]string{path}, func(string, error) { e.addError() })
	if len(partials) == 0 {
		return
	}
	pipeline.RunPhaseB(partials, e.extractor, nil)

	pf := partials[0]
	id, err := e.store.AddWithContent(pf.Path)
	if err != nil {
		e.addError()
		return
	}
	delete(e.tombstoned, id)
	e.trigrams.AddTrigrams(id, pf.Trigrams)
	if len(pf.Symbols) > 0 {
		e.symbolsByFile[id] = pf.Symbols
	}
	e.graph.RegisterPath(id, pf.CanonPath)
	for _, raw := range pf.RawImports {
		e.pending = append(e.pending, pendingImport{fromID: id, fromPath: pf.CanonPath, raw: raw})
	}
	e.dirty = true

	if e.cfg.IndexPath != "" && e.cfg.SaveAfterUpdates > 0 {
		e.statusMu.Lock()
		e.status.FilesIndexed++
		shouldSave := e.status.FilesIndexed%e.cfg.SaveAfterUpdates == 0
		e.statusMu.Unlock()
		if shouldSave {
			_ = e.saveSnapshot()
		}
	}
}
