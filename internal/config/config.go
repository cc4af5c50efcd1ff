// Package config defines the IndexerConfig contract and the
// deterministic configuration fingerprint used to decide whether a
// persisted snapshot is coherent with the current settings.
//
// Config file parsing and templating are owned by an external caller —
// this package is a plain struct plus validation, never a file-format
// reader.
package config

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultMaxFileSize is the default per-file size ceiling (10 MiB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// DefaultExcludePatterns covers the common build/VCS directories
// excluded by default.
var DefaultExcludePatterns = []string{
	".git/", ".svn", ".hg/", "node_modules/", "vendor/", "target/",
	"dist/", "build/", ".venv/", "__pycache__/", ".idea/", ".vscode/",
}

// IndexerConfig is the engine's configuration contract.
type IndexerConfig struct {
	// Paths lists absolute roots to index.
	Paths []string
	// IncludeExtensions restricts discovery to these extensions when
	// non-empty; otherwise all text files are eligible.
	IncludeExtensions []string
	// ExcludePatterns are substring-match patterns excluded during discovery.
	ExcludePatterns []string
	// ExcludeFiles are absolute paths unconditionally skipped — an operator
	// hook for quarantining a parser-crashing file.
	ExcludeFiles []string
	// MaxFileSize in bytes; larger files are skipped.
	MaxFileSize int64
	// IndexPath is the optional on-disk snapshot path.
	IndexPath string
	// SaveAfterBuild persists a snapshot after each full build.
	SaveAfterBuild bool
	// SaveAfterUpdates persists a snapshot after N incremental file changes.
	SaveAfterUpdates int
	// TranscodeNonUTF8 enables the encoding-detection fallback.
	TranscodeNonUTF8 bool
}

// WithDefaults returns a copy of c with zero-valued fields replaced by
// their defaults.
func (c IndexerConfig) WithDefaults() IndexerConfig {
	if c.MaxFileSize == 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if len(c.ExcludePatterns) == 0 {
		c.ExcludePatterns = append([]string(nil), DefaultExcludePatterns...)
	}
	return c
}

// ProbeFilePath is the crash-forensics probe file the indexing pipeline
// writes to just before each file enters Phase B, derived from IndexPath
// so operators get the hook for free whenever persistence is configured.
// Returns "" when IndexPath is unset, disabling the probe write entirely.
func (c IndexerConfig) ProbeFilePath() string {
	if c.IndexPath == "" {
		return ""
	}
	return c.IndexPath + ".probe"
}

// Validate applies minimal sanity checks: at least one path is given,
// every path is absolute, and the size ceiling is not negative.
func (c IndexerConfig) Validate() error {
	if len(c.Paths) == 0 {
		return fmt.Errorf("config: at least one path is required")
	}
	for _, p := range c.Paths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("config: path %q must be absolute", p)
		}
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("config: MaxFileSize must be non-negative")
	}
	return nil
}

// Fingerprint computes the hex MD5 digest of a deterministic normalization
// of every indexing-relevant field — everything except the persistence
// settings (IndexPath, SaveAfterBuild, SaveAfterUpdates).
func (c IndexerConfig) Fingerprint() string {
	paths := normalizedSortedCopy(c.Paths)
	exts := normalizedSortedCopy(c.IncludeExtensions)
	excl := normalizedSortedCopy(c.ExcludePatterns)
	files := normalizedSortedCopy(c.ExcludeFiles)

	var b strings.Builder
	b.WriteString("paths=")
	b.WriteString(strings.Join(paths, ","))
	b.WriteString(";exts=")
	b.WriteString(strings.Join(exts, ","))
	b.WriteString(";excl=")
	b.WriteString(strings.Join(excl, ","))
	b.WriteString(";exclfiles=")
	b.WriteString(strings.Join(files, ","))
	b.WriteString(";maxsize=")
	b.WriteString(strconv.FormatInt(c.MaxFileSize, 10))
	b.WriteString(";transcode=")
	b.WriteString(strconv.FormatBool(c.TranscodeNonUTF8))

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func normalizedSortedCopy(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = filepath.ToSlash(filepath.Clean(s))
	}
	sort.Strings(out)
	return out
}
