// Package pipeline implements the staged indexing pipeline: the discovery
// producer, the Phase A/Phase B batch processing that turns raw files
// into indexed state, and the fsnotify-driven incremental watcher — a
// filepath.Walk producer, an extension-table binary pre-filter, and a
// debounced filesystem event loop.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/codelens/codelens/internal/config"
)

// knownBinaryExtensions lists extensions skipped during discovery without
// ever opening the file.
var knownBinaryExtensions = map[string]bool{
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".tiff": true, ".tif": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
	".7z": true, ".rar": true, ".jar": true, ".war": true, ".ear": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true,
	".o": true, ".obj": true, ".bin": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	".pdf": true, ".db": true, ".sqlite": true, ".class": true, ".pyc": true,
}

// discoveryQueueCapacity bounds how far discovery can run ahead of indexing.
const discoveryQueueCapacity = 5000

// Discover walks every root in cfg.Paths, skipping exclude patterns and
// known-binary extensions, and sends every remaining regular file path to
// out. It closes out when every root has been walked or ctx is canceled.
func Discover(ctx context.Context, cfg config.IndexerConfig, out chan<- string) error {
	defer close(out)

	visited := make(map[string]bool)
	for _, root := range cfg.Paths {
		if err := walkRoot(ctx, root, cfg, visited, out); err != nil {
			if err == context.Canceled {
				return err
			}
		}
	}
	return nil
}

// NewQueue allocates the bounded discovery channel.
func NewQueue() chan string {
	return make(chan string, discoveryQueueCapacity)
}

func walkRoot(ctx context.Context, root string, cfg config.IndexerConfig, visited map[string]bool, out chan<- string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if walkErr != nil {
			return nil // skip unreadable entries, continue the walk
		}

		if info.IsDir() {
			if path != root && shouldExcludeDir(path, cfg) {
				return filepath.SkipDir
			}
			real, err := filepath.EvalSymlinks(path)
			if err == nil {
				if visited[real] {
					return filepath.SkipDir
				}
				visited[real] = true
			}
			return nil
		}

		if !eligible(path, info, cfg) {
			return nil
		}

		select {
		case out <- path:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
}

func shouldExcludeDir(path string, cfg config.IndexerConfig) bool {
	normalized := filepath.ToSlash(path) + "/"
	for _, pattern := range cfg.ExcludePatterns {
		if strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}

func eligible(path string, info os.FileInfo, cfg config.IndexerConfig) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if info.Size() > cfg.MaxFileSize {
		return false
	}

	normalized := filepath.ToSlash(path)
	for _, pattern := range cfg.ExcludePatterns {
		if strings.Contains(normalized, pattern) {
			return false
		}
	}
	for _, excluded := range cfg.ExcludeFiles {
		if excluded == path {
			return false
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if knownBinaryExtensions[ext] {
		return false
	}
	if len(cfg.IncludeExtensions) > 0 {
		included := false
		for _, want := range cfg.IncludeExtensions {
			if ext == want {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	return true
}
