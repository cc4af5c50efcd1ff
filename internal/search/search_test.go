package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/deps"
	"github.com/codelens/codelens/internal/trigram"
	"github.com/codelens/codelens/internal/types"
)

type fakeFile struct {
	path string
	text string
	syms []types.Symbol
}

type fakeSource struct {
	files map[types.FileID]fakeFile
}

func (f *fakeSource) Path(id types.FileID) (string, bool) {
	ff, ok := f.files[id]
	return ff.path, ok
}

func (f *fakeSource) Text(id types.FileID) (string, error) {
	return f.files[id].text, nil
}

func (f *fakeSource) Symbols(id types.FileID) []types.Symbol {
	return f.files[id].syms
}

func buildEngine(t *testing.T, files map[types.FileID]fakeFile) (*Engine, *fakeSource) {
	t.Helper()
	idx := trigram.New()
	for id, f := range files {
		idx.Add(id, []byte(f.text))
	}
	src := &fakeSource{files: files}
	return New(src, idx, deps.New(), 2), src
}

func TestLiteral_CaseInsensitiveCandidatesExactCaseBonus(t *testing.T) {
	files := map[types.FileID]fakeFile{
		1: {path: "/repo/src/widget.go", text: "func Widget() {}\nfunc widget() {}\n"},
	}
	e, _ := buildEngine(t, files)

	matches, err := e.Literal("Widget", PathFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	// The exact-case line scores higher than the lowercase-only line.
	assert.Equal(t, 1, matches[0].Line)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestLiteral_PathFilter(t *testing.T) {
	files := map[types.FileID]fakeFile{
		1: {path: "/repo/src/a.go", text: "token here\n"},
		2: {path: "/repo/vendor/b.go", text: "token here too\n"},
	}
	e, _ := buildEngine(t, files)

	matches, err := e.Literal("token", PathFilter{Exclude: "**/vendor/**"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "/repo/src/a.go", matches[0].Path)
}

func TestLiteral_EmptyNeedleReturnsNoResults(t *testing.T) {
	e, _ := buildEngine(t, map[types.FileID]fakeFile{1: {path: "/a.go", text: "x\n"}})
	matches, err := e.Literal("", PathFilter{}, 10)
	require.NoError(t, err)
	assert.Nil(t, matches)
}

func TestRegex_RequiresLiteralNarrowing(t *testing.T) {
	files := map[types.FileID]fakeFile{
		1: {path: "/repo/handler.go", text: "func HandleUserRequest(w http.ResponseWriter) {}\n"},
		2: {path: "/repo/other.go", text: "func Unrelated() {}\n"},
	}
	e, _ := buildEngine(t, files)

	matches, err := e.Regex(`Handle\w+Request`, PathFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "/repo/handler.go", matches[0].Path)
}

func TestRegex_NarrowsOnMidPatternLiteral(t *testing.T) {
	files := map[types.FileID]fakeFile{
		1: {path: "/repo/handler.go", text: "func user_handler(w http.ResponseWriter) {}\n"},
		2: {path: "/repo/other.go", text: "func unrelatedThing() {}\n"},
	}
	e, _ := buildEngine(t, files)

	// The only required literal, "_handler", sits mid-pattern with no
	// anchored prefix; a prefix-only extractor would find nothing and fall
	// back to scanning every file, but the match is still correct either
	// way since narrowing only prunes candidates, never results.
	matches, err := e.Regex(`\w+_handler\(`, PathFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "/repo/handler.go", matches[0].Path)
}

func TestRegex_InvalidPattern(t *testing.T) {
	e, _ := buildEngine(t, map[types.FileID]fakeFile{1: {path: "/a.go", text: "x\n"}})
	_, err := e.Regex("(unterminated", PathFilter{}, 10)
	assert.Error(t, err)
}

func TestSymbols_OnlyMatchesDefinitionLines(t *testing.T) {
	files := map[types.FileID]fakeFile{
		1: {
			path: "/repo/a.go",
			text: "func Parse() {}\nvar x = Parse()\n",
			syms: []types.Symbol{{Name: "Parse", Kind: types.SymbolFunction, Line: 0, Definition: true}},
		},
	}
	e, _ := buildEngine(t, files)

	matches, err := e.Symbols("Parse", PathFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Line)
}

func TestPathFilter_IncludeAndExclude(t *testing.T) {
	f := PathFilter{Include: "**/*.go;**/*.rs", Exclude: "**/vendor/**"}
	assert.True(t, f.matches("/repo/src/main.go"))
	assert.False(t, f.matches("/repo/vendor/main.go"))
	assert.False(t, f.matches("/repo/src/main.py"))
}
