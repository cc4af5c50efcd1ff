// Package search implements literal, trigram-accelerated regex, symbol,
// and path-filtered queries over the file store, trigram index, symbol
// extractor, and dependency graph, scoring and narrowing candidate
// bitmaps before a final per-line scan. Regex acceleration is built on
// the coregx/coregex engine and its literal/prefilter packages for
// required-literal extraction.
package search

import (
	"math"
	"regexp/syntax"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/coregx/coregex"
	"github.com/coregx/coregex/literal"
	"golang.org/x/sync/errgroup"

	"github.com/codelens/codelens/internal/deps"
	"github.com/codelens/codelens/internal/indexerrors"
	"github.com/codelens/codelens/internal/symbols"
	"github.com/codelens/codelens/internal/trigram"
	"github.com/codelens/codelens/internal/types"
)

// FileSource is what the Search Engine needs from the File Store (C1): text
// bodies, canonical paths, and per-file symbol tables. The pipeline (C6)
// keeps the live symbol table per file; search doesn't re-extract.
type FileSource interface {
	Path(id types.FileID) (string, bool)
	Text(id types.FileID) (string, error)
	Symbols(id types.FileID) []types.Symbol
}

// Match is one line-level hit.
type Match struct {
	FileID types.FileID
	Path   string
	Line   int // one-based, matching types.Symbol.Line+1 convention at the API boundary
	Text   string
	Score  float64
}

// PathFilter is an include/exclude glob pair. Each field is the
// semicolon-delimited list as it arrives at the API boundary; matches
// splits and compiles lazily.
type PathFilter struct {
	Include string
	Exclude string
}

func splitGlobs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// matches reports whether path passes the filter: include empty or some
// include-glob matches, AND no exclude-glob matches.
func (f PathFilter) matches(path string) bool {
	includes := splitGlobs(f.Include)
	excludes := splitGlobs(f.Exclude)

	if len(includes) > 0 {
		ok := false
		for _, g := range includes {
			if m, _ := doublestar.Match(g, path); m {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, g := range excludes {
		if m, _ := doublestar.Match(g, path); m {
			return false
		}
	}
	return true
}

// Engine answers literal, regex, and symbol queries over an indexed set
// of files.
type Engine struct {
	files    FileSource
	trigrams *trigram.Index
	graph    *deps.Graph
	workers  int
}

// New builds an Engine over the given components. workers bounds the
// scan-phase worker pool; values <1 default to 4.
func New(files FileSource, trigrams *trigram.Index, graph *deps.Graph, workers int) *Engine {
	if workers < 1 {
		workers = 4
	}
	return &Engine{files: files, trigrams: trigrams, graph: graph, workers: workers}
}

// Literal runs a case-insensitive literal search: candidate pruning via
// the trigram index, line-by-line verification, scoring, and a
// deterministic sort truncated to n results.
func (e *Engine) Literal(needle string, filter PathFilter, n int) ([]Match, error) {
	if needle == "" {
		return nil, nil
	}
	lowerNeedle := strings.ToLower(needle)
	candidates := e.trigrams.QueryCandidates([]byte(lowerNeedle))
	candidates = e.applyFilter(candidates, filter)

	scan := func(id types.FileID) []Match {
		path, ok := e.files.Path(id)
		if !ok {
			return nil
		}
		text, err := e.files.Text(id)
		if err != nil {
			return nil
		}
		symLines := symbolDefLines(e.files.Symbols(id))
		var out []Match
		for lineNo, line := range splitLines(text) {
			lowerLine := strings.ToLower(line)
			if !strings.Contains(lowerLine, lowerNeedle) {
				continue
			}
			score := scoreLiteralMatch(line, lowerLine, needle, lowerNeedle, path, lineNo, symLines, e.importCount(id))
			out = append(out, Match{FileID: id, Path: path, Line: lineNo + 1, Text: line, Score: score})
		}
		return out
	}

	matches := e.scanParallel(candidates, scan)
	return finalize(matches, n), nil
}

// Regex runs a trigram-accelerated regex search.
func (e *Engine) Regex(pattern string, filter PathFilter, n int) ([]Match, error) {
	re, err := coregex.Compile(pattern)
	if err != nil {
		return nil, indexerrors.NewPatternError(pattern, err)
	}

	parsed, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, indexerrors.NewPatternError(pattern, err)
	}

	candidates := e.regexCandidates(parsed)
	candidates = e.applyFilter(candidates, filter)

	scan := func(id types.FileID) []Match {
		path, ok := e.files.Path(id)
		if !ok {
			return nil
		}
		text, err := e.files.Text(id)
		if err != nil {
			return nil
		}
		symLines := symbolDefLines(e.files.Symbols(id))
		var out []Match
		for lineNo, line := range splitLines(text) {
			if !re.MatchString(line) {
				continue
			}
			score := scoreRegexMatch(line, path, lineNo, symLines, e.importCount(id))
			out = append(out, Match{FileID: id, Path: path, Line: lineNo + 1, Text: line, Score: score})
		}
		return out
	}

	matches := e.scanParallel(candidates, scan)
	return finalize(matches, n), nil
}

// regexCandidates narrows the search to files whose trigrams could
// contain a required literal: extract the required-literal sequence
// anywhere in the parsed pattern via coregex's inner-literal extractor
// (so a mid-pattern literal like the "_handler" in `\w+_handler\(` still
// narrows candidates, not just an anchored prefix), keep literals of
// length >=3, and use the longest one to query the trigram index. No
// qualifying literal means every indexed file is a candidate.
func (e *Engine) regexCandidates(parsed *syntax.Regexp) *roaring.Bitmap {
	parsed = parsed.Simplify()
	extractor := literal.New(literal.DefaultConfig())
	seq := extractor.ExtractInner(parsed)

	var best []byte
	if seq != nil {
		for i := 0; i < seq.Len(); i++ {
			lit := seq.Get(i)
			if len(lit.Bytes) >= 3 && len(lit.Bytes) > len(best) {
				best = lit.Bytes
			}
		}
	}
	if len(best) == 0 {
		return e.trigrams.AllIDs()
	}
	return e.trigrams.QueryCandidates(best)
}

// Symbols restricts a literal search to lines that are symbol
// definitions and whose matched substring overlaps the symbol's name.
func (e *Engine) Symbols(needle string, filter PathFilter, n int) ([]Match, error) {
	matches, err := e.Literal(needle, filter, 0) // 0 = unbounded, filtered below
	if err != nil {
		return nil, err
	}

	var out []Match
	lowerNeedle := strings.ToLower(needle)
	for _, m := range matches {
		for _, sym := range e.files.Symbols(m.FileID) {
			if !sym.Definition || sym.Line+1 != m.Line {
				continue
			}
			if strings.Contains(strings.ToLower(sym.Name), lowerNeedle) {
				out = append(out, m)
				break
			}
		}
	}
	return finalize(out, n), nil
}

func (e *Engine) importCount(id types.FileID) int {
	if e.graph == nil {
		return 0
	}
	return e.graph.ImportCount(id)
}

// applyFilter narrows candidates to those whose path passes filter; an
// empty filter is a no-op. Applied before the scan phase.
func (e *Engine) applyFilter(candidates *roaring.Bitmap, filter PathFilter) *roaring.Bitmap {
	if filter.Include == "" && filter.Exclude == "" {
		return candidates
	}
	out := roaring.New()
	it := candidates.Iterator()
	for it.HasNext() {
		id := types.FileID(it.Next())
		path, ok := e.files.Path(id)
		if !ok {
			continue
		}
		if filter.matches(path) {
			out.Add(uint32(id))
		}
	}
	return out
}

// scanParallel partitions candidates across e.workers goroutines via
// errgroup and merges results before the caller sorts them.
func (e *Engine) scanParallel(candidates *roaring.Bitmap, scan func(types.FileID) []Match) []Match {
	ids := candidates.ToArray()
	if len(ids) == 0 {
		return nil
	}

	workers := e.workers
	if workers > len(ids) {
		workers = len(ids)
	}
	chunks := make([][]Match, workers)

	var g errgroup.Group
	per := (len(ids) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		w := w
		start := w * per
		if start >= len(ids) {
			continue
		}
		end := start + per
		if end > len(ids) {
			end = len(ids)
		}
		g.Go(func() error {
			var local []Match
			for _, raw := range ids[start:end] {
				local = append(local, scan(types.FileID(raw))...)
			}
			chunks[w] = local
			return nil
		})
	}
	_ = g.Wait()

	var all []Match
	for _, c := range chunks {
		all = append(all, c...)
	}
	return all
}

// finalize sorts matches by score descending, ties broken by (path, line)
// ascending for determinism, and truncates to n (n<=0 means unbounded).
func finalize(matches []Match, n int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Path != matches[j].Path {
			return matches[i].Path < matches[j].Path
		}
		return matches[i].Line < matches[j].Line
	})
	if n > 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

func symbolDefLines(syms []types.Symbol) map[int]bool {
	if len(syms) == 0 {
		return nil
	}
	set := make(map[int]bool, len(syms))
	for _, s := range syms {
		if s.Definition {
			set[s.Line] = true
		}
	}
	return set
}

// scoreLiteralMatch computes a line's relevance score: exact-case,
// symbol-definition, path, and line-length bonuses, plus a small boost
// for heavily-imported files.
func scoreLiteralMatch(line, lowerLine, needle, lowerNeedle, path string, lineNo int, symLines map[int]bool, importCount int) float64 {
	score := 1.0
	if strings.Contains(line, needle) {
		score *= 2.0
	}
	if symLines[lineNo] {
		score *= 3.0
	}
	score *= pathBonus(path)
	score *= shortLineFactor(line)
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if strings.HasPrefix(trimmed, lowerNeedle) {
		score *= 1.5
	}
	score += math.Log(1 + float64(importCount))
	return score
}

// scoreRegexMatch is the same formula with the exact-case bonus omitted,
// since a regex match has no single needle to compare case against.
func scoreRegexMatch(line, path string, lineNo int, symLines map[int]bool, importCount int) float64 {
	score := 1.0
	if symLines[lineNo] {
		score *= 3.0
	}
	score *= pathBonus(path)
	score *= shortLineFactor(line)
	score += math.Log(1 + float64(importCount))
	return score
}

func pathBonus(path string) float64 {
	if strings.Contains(path, "/src/") || strings.Contains(path, "/lib/") {
		return 1.5
	}
	return 1.0
}

func shortLineFactor(line string) float64 {
	return 1.0 / (1.0 + float64(len(line))/100.0)
}
