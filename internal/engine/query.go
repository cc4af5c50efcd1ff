package engine

import (
	"github.com/codelens/codelens/internal/search"
	"github.com/codelens/codelens/internal/store"
	"github.com/codelens/codelens/internal/types"
)

// Search runs an unfiltered literal search.
func (e *Engine) Search(needle string, maxResults int) ([]search.Match, error) {
	return e.SearchWithFilter(needle, search.PathFilter{}, maxResults)
}

// SearchWithFilter runs a literal search restricted to paths matching filter.
func (e *Engine) SearchWithFilter(needle string, filter search.PathFilter, maxResults int) ([]search.Match, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.search.Literal(needle, filter, maxResults)
}

// SearchRegex runs a trigram-accelerated regex search.
func (e *Engine) SearchRegex(pattern string, filter search.PathFilter, maxResults int) ([]search.Match, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.search.Regex(pattern, filter, maxResults)
}

// SearchSymbols restricts a literal search to symbol-definition lines.
func (e *Engine) SearchSymbols(needle string, filter search.PathFilter, maxResults int) ([]search.Match, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.search.Symbols(needle, filter, maxResults)
}

// GetDependents returns every registered path that imports path.
func (e *Engine) GetDependents(path string) ([]string, error) {
	return e.resolvePathEdges(path, e.graph.Dependents)
}

// GetDependencies returns every path that path imports.
func (e *Engine) GetDependencies(path string) ([]string, error) {
	return e.resolvePathEdges(path, e.graph.Dependencies)
}

func (e *Engine) resolvePathEdges(path string, edges func(types.FileID) []types.FileID) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	canon, err := store.Canonicalize(path)
	if err != nil {
		return nil, err
	}
	id, ok := e.store.LookupPath(canon)
	if !ok {
		return nil, nil
	}

	var out []string
	for _, other := range edges(id) {
		if e.tombstoned[other] {
			continue
		}
		if p, ok := e.store.Path(other); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Stats holds point-in-time size metrics for the index.
type Stats struct {
	NumFiles        int
	TotalSize       int64
	NumTrigrams     int
	DependencyEdges int
}

// Stats returns a snapshot of the index's current size metrics.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var stats Stats
	for _, id := range e.store.AllIDs() {
		if e.tombstoned[id] {
			continue
		}
		stats.NumFiles++
		if meta, ok := e.store.Meta(id); ok {
			stats.TotalSize += meta.Size
		}
		stats.DependencyEdges += len(e.graph.Dependencies(id))
	}
	stats.NumTrigrams = len(e.trigrams.Postings())
	return stats
}
