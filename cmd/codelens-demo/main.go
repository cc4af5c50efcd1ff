// Command codelens-demo exercises the engine end to end: build an index
// over one or more paths, run a query against it, print the matches. It
// is not a CLI surface — config file parsing and a real flag grammar are
// explicitly out of scope — just enough wiring for a smoke test.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/engine"
	"github.com/codelens/codelens/internal/search"
)

func main() {
	root := flag.String("root", ".", "comma-separated list of paths to index")
	needle := flag.String("search", "", "literal needle to search for after indexing")
	indexPath := flag.String("index", "", "optional snapshot path to load/save")
	maxResults := flag.Int("max", 20, "maximum matches to print")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	paths := splitAbs(*root)
	if len(paths) == 0 {
		logger.Error("no paths given")
		os.Exit(1)
	}

	cfg := config.IndexerConfig{
		Paths:          paths,
		IndexPath:      *indexPath,
		SaveAfterBuild: *indexPath != "",
	}

	e, err := engine.New(cfg)
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	defer e.Close()

	if err := e.Build(context.Background()); err != nil {
		logger.Error("build failed", "error", err)
		os.Exit(1)
	}

	stats := e.Stats()
	logger.Info("index built",
		"files", stats.NumFiles,
		"total_size", stats.TotalSize,
		"trigrams", stats.NumTrigrams,
		"edges", stats.DependencyEdges,
	)

	if *needle == "" {
		return
	}

	matches, err := e.SearchWithFilter(*needle, search.PathFilter{}, *maxResults)
	if err != nil {
		logger.Error("search failed", "error", err)
		os.Exit(1)
	}
	for _, m := range matches {
		fmt.Printf("%s:%d: %s\n", m.Path, m.Line, strings.TrimSpace(m.Text))
	}
}

func splitAbs(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		out = append(out, abs)
	}
	return out
}
