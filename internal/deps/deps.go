// Package deps maintains a directed import graph between files plus
// best-effort resolution of raw import strings to FileIDs, using
// RWMutex-guarded adjacency maps and insertion-ordered secondary indexes
// keyed by path and basename.
package deps

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/codelens/codelens/internal/types"
)

// probeExtensions is the fixed, ordered extension list Resolve probes
// against a bare import specifier.
var probeExtensions = []string{".rs", ".py", ".js", ".ts", ".jsx", ".tsx"}

// Graph is a directed import graph between files.
type Graph struct {
	mu sync.RWMutex

	pathToID     map[string]types.FileID
	basenameToID map[string][]types.FileID // insertion-ordered, one-to-many

	dependencies map[types.FileID]map[types.FileID]struct{} // from -> {to}
	dependents   map[types.FileID]map[types.FileID]struct{} // to -> {from}
	importCount  map[types.FileID]int
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		pathToID:     make(map[string]types.FileID),
		basenameToID: make(map[string][]types.FileID),
		dependencies: make(map[types.FileID]map[types.FileID]struct{}),
		dependents:   make(map[types.FileID]map[types.FileID]struct{}),
		importCount:  make(map[types.FileID]int),
	}
}

// RegisterPath records id's canonical path and basename. Safe to call
// more than once for the same id; basename collisions append to the tail
// of that basename's id list, preserving first-registered-wins
// resolution order.
func (g *Graph) RegisterPath(id types.FileID, path string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pathToID[path] = id

	base := filepath.Base(path)
	for _, existing := range g.basenameToID[base] {
		if existing == id {
			return
		}
	}
	g.basenameToID[base] = append(g.basenameToID[base], id)
}

// AddEdge records that from imports to: it inserts bidirectional
// membership and bumps import_count[to].
func (g *Graph) AddEdge(from, to types.FileID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dependencies[from] == nil {
		g.dependencies[from] = make(map[types.FileID]struct{})
	}
	g.dependencies[from][to] = struct{}{}

	if g.dependents[to] == nil {
		g.dependents[to] = make(map[types.FileID]struct{})
	}
	g.dependents[to][from] = struct{}{}

	g.importCount[to]++
}

// Resolve applies a two-branch resolution algorithm to a raw import
// string as it appears in fromPath's source, returning the id of the
// file it most likely refers to.
func (g *Graph) Resolve(fromPath, rawImport string) (types.FileID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if strings.HasPrefix(rawImport, ".") {
		return g.resolveRelative(fromPath, rawImport)
	}
	return g.resolveBasename(rawImport)
}

// resolveRelative handles a relative import: form parent(fromPath)+raw,
// then probe with and without each extension in probeExtensions, in
// order, returning the first canonical path present in pathToID.
func (g *Graph) resolveRelative(fromPath, rawImport string) (types.FileID, bool) {
	joined := filepath.Clean(filepath.Join(filepath.Dir(fromPath), rawImport))

	if id, ok := g.pathToID[joined]; ok {
		return id, true
	}
	for _, ext := range probeExtensions {
		if id, ok := g.pathToID[joined+ext]; ok {
			return id, true
		}
	}
	return 0, false
}

// resolveBasename handles a non-relative import: take the basename
// component of the raw import (its last "/"- or "::"-separated segment),
// try an exact basename match, then each extension appended, returning
// the first id registered for that basename (basename collisions resolve
// to the first registrant).
func (g *Graph) resolveBasename(rawImport string) (types.FileID, bool) {
	base := filepath.Base(rawImport)
	if i := strings.LastIndex(base, "::"); i != -1 {
		base = base[i+2:]
	}

	if ids, ok := g.basenameToID[base]; ok && len(ids) > 0 {
		return ids[0], true
	}
	for _, ext := range probeExtensions {
		if ids, ok := g.basenameToID[base+ext]; ok && len(ids) > 0 {
			return ids[0], true
		}
	}
	return 0, false
}

// Dependents returns every file id that imports id.
func (g *Graph) Dependents(id types.FileID) []types.FileID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return setToSlice(g.dependents[id])
}

// Dependencies returns every file id that id imports.
func (g *Graph) Dependencies(id types.FileID) []types.FileID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return setToSlice(g.dependencies[id])
}

// ImportCount returns how many distinct edges point at id.
func (g *Graph) ImportCount(id types.FileID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.importCount[id]
}

func setToSlice(set map[types.FileID]struct{}) []types.FileID {
	if len(set) == 0 {
		return nil
	}
	out := make([]types.FileID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Clear resets the graph to empty.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pathToID = make(map[string]types.FileID)
	g.basenameToID = make(map[string][]types.FileID)
	g.dependencies = make(map[types.FileID]map[types.FileID]struct{})
	g.dependents = make(map[types.FileID]map[types.FileID]struct{})
	g.importCount = make(map[types.FileID]int)
}
