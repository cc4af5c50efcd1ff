package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestDiscover_FiltersBinaryAndExcluded(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":              "package main\n",
		"lib.py":                "import os\n",
		"logo.png":              "binary",
		"node_modules/pkg/x.js": "skip me",
		".git/HEAD":             "ref: refs/heads/main",
	})

	cfg := config.IndexerConfig{Paths: []string{root}}.WithDefaults()

	out := make(chan string, 100)
	err := Discover(context.Background(), cfg, out)
	require.NoError(t, err)

	var got []string
	for p := range out {
		rel, _ := filepath.Rel(root, p)
		got = append(got, filepath.ToSlash(rel))
	}
	sort.Strings(got)

	assert.Equal(t, []string{"lib.py", "main.go"}, got)
}

func TestDiscover_RespectsIncludeExtensions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go": "package a\n",
		"b.py": "x = 1\n",
	})

	cfg := config.IndexerConfig{Paths: []string{root}, IncludeExtensions: []string{".go"}}.WithDefaults()

	out := make(chan string, 10)
	require.NoError(t, Discover(context.Background(), cfg, out))

	var got []string
	for p := range out {
		got = append(got, filepath.Base(p))
	}
	assert.Equal(t, []string{"a.go"}, got)
}

func TestDiscover_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"big.go": "0123456789"})

	cfg := config.IndexerConfig{Paths: []string{root}, MaxFileSize: 5}.WithDefaults()

	out := make(chan string, 10)
	require.NoError(t, Discover(context.Background(), cfg, out))

	var got []string
	for p := range out {
		got = append(got, p)
	}
	assert.Empty(t, got)
}

func TestDiscover_CanceledContextStops(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.go": "package a\n"})

	cfg := config.IndexerConfig{Paths: []string{root}}.WithDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan string, 10)
	_ = Discover(ctx, cfg, out)
	_, open := <-out
	assert.False(t, open)
}
