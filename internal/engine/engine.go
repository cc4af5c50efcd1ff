// Package engine is the composition root of codelens: it owns a single
// reader-writer-locked shared state and wires the file store, trigram
// index, symbol extractor, dependency graph, search engine, indexing
// pipeline, and persistence layer together behind one query surface.
package engine

import (
	"runtime"
	"sync"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/deps"
	"github.com/codelens/codelens/internal/pipeline"
	"github.com/codelens/codelens/internal/search"
	"github.com/codelens/codelens/internal/store"
	"github.com/codelens/codelens/internal/symbols"
	"github.com/codelens/codelens/internal/trigram"
	"github.com/codelens/codelens/internal/types"
)

// Engine is the single reader-writer-locked state: queries take the
// shared lock; batch merges and incremental re-indexes take the
// exclusive lock.
type Engine struct {
	mu sync.RWMutex

	cfg       config.IndexerConfig
	store     *store.Store
	trigrams  *trigram.Index
	graph     *deps.Graph
	extractor *symbols.Extractor
	search    *search.Engine

	symbolsByFile map[types.FileID][]types.Symbol
	tombstoned    map[types.FileID]bool

	pending []pendingImport

	statusMu sync.Mutex
	status   Status

	watcher   *pipeline.Watcher
	dirty     bool // true once anything has changed since the last save
}

type pendingImport struct {
	fromID   types.FileID
	fromPath string
	raw      string
}

// New builds an Engine from a validated, defaulted configuration.
func New(cfg config.IndexerConfig) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		store:         store.New(cfg.TranscodeNonUTF8),
		trigrams:      trigram.New(),
		graph:         deps.New(),
		extractor:     symbols.New(),
		symbolsByFile: make(map[types.FileID][]types.Symbol),
		tombstoned:    make(map[types.FileID]bool),
		status:        Status{State: StateIdle},
	}
	e.search = search.New(&fileSource{e: e}, e.trigrams, e.graph, runtime.GOMAXPROCS(0))
	return e, nil
}

// fileSource adapts Engine to search.FileSource, suppressing tombstoned
// ids so a removed file disappears from verification without touching
// the postings lists it still physically belongs to.
type fileSource struct{ e *Engine }

func (f *fileSource) Path(id types.FileID) (string, bool) {
	if f.e.tombstoned[id] {
		return "", false
	}
	return f.e.store.Path(id)
}

func (f *fileSource) Text(id types.FileID) (string, error) {
	return f.e.store.Text(id)
}

func (f *fileSource) Symbols(id types.FileID) []types.Symbol {
	return f.e.symbolsByFile[id]
}

// Close releases the file watcher, if running, and any live memory
// mappings held by the File Store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.watcher != nil {
		_ = e.watcher.Close()
		e.watcher = nil
	}
	for _, id := range e.store.AllIDs() {
		e.store.Remove(id)
	}
	return nil
}
