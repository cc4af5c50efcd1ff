package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/search"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	cfg := config.IndexerConfig{Paths: []string{root}}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_BuildAndSearchLiteral(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n\nfunc handlerequest() {}\n")
	writeFile(t, filepath.Join(root, "util.go"), "package main\n\nfunc helper() {}\n")

	e := newTestEngine(t, root)
	require.NoError(t, e.Build(context.Background()))

	matches, err := e.Search("handlerequest", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Path, "main.go")

	stats := e.Stats()
	assert.Equal(t, 2, stats.NumFiles)
}

func TestEngine_SearchSymbols(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a\n\nfunc computetotal() int { return 0 }\n")

	e := newTestEngine(t, root)
	require.NoError(t, e.Build(context.Background()))

	matches, err := e.SearchSymbols("computetotal", search.PathFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestEngine_DependencyGraph(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.js"), "import b from \"./b\";\n")
	writeFile(t, filepath.Join(root, "b.js"), "export const x = 1;\n")

	e := newTestEngine(t, root)
	require.NoError(t, e.Build(context.Background()))

	deps, err := e.GetDependencies(filepath.Join(root, "a.js"))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Contains(t, deps[0], "b.js")

	dependents, err := e.GetDependents(filepath.Join(root, "b.js"))
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Contains(t, dependents[0], "a.js")
}

func TestEngine_SnapshotRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a\n\nfunc findthing() {}\n")

	indexPath := filepath.Join(t.TempDir(), "index.snap")
	cfg := config.IndexerConfig{Paths: []string{root}, IndexPath: indexPath, SaveAfterBuild: true}

	e1, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e1.Build(context.Background()))
	require.NoError(t, e1.Close())

	_, statErr := os.Stat(indexPath)
	require.NoError(t, statErr)

	e2, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e2.Close() })
	require.NoError(t, e2.Build(context.Background()))

	matches, err := e2.Search("findthing", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestEngine_SnapshotDropsRemovedFiles(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep.go")
	gone := filepath.Join(root, "gone.go")
	writeFile(t, keep, "package a\n\nfunc keepme() {}\n")
	writeFile(t, gone, "package a\n\nfunc removeme() {}\n")

	indexPath := filepath.Join(t.TempDir(), "index.snap")
	cfg := config.IndexerConfig{Paths: []string{root}, IndexPath: indexPath, SaveAfterBuild: true}

	e1, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e1.Build(context.Background()))
	require.NoError(t, e1.Close())

	require.NoError(t, os.Remove(gone))

	e2, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e2.Close() })
	require.NoError(t, e2.Build(context.Background()))

	matches, err := e2.Search("removeme", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = e2.Search("keepme", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestEngine_StatusReflectsProgress(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a\n")

	e := newTestEngine(t, root)
	require.NoError(t, e.Build(context.Background()))

	status := e.Status()
	assert.Equal(t, StateCompleted, status.State)
	assert.Equal(t, 1, status.FilesIndexed)
}
