package pipeline

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codelens/codelens/internal/encoding"
	"github.com/codelens/codelens/internal/symbols"
	"github.com/codelens/codelens/internal/trigram"
	"github.com/codelens/codelens/internal/types"
)

// BatchSize is the per-batch path count for the merge stage.
const BatchSize = 500

// PartialFile is the output of Phase A: a read, safety-checked,
// trigram-extracted file awaiting Phase B's serial symbol/import
// extraction.
type PartialFile struct {
	Path       string
	CanonPath  string
	Ext        string
	Content    []byte
	Text       string
	ModTime    int64
	Size       int64
	Trigrams   map[trigram.Key]struct{}
	SymbolSafe bool // false if encoding.CheckSymbolSafety rejected the content

	Symbols     []types.Symbol
	RawImports  []string
}

// RunPhaseA reads, safety-checks, and trigram-extracts every path in
// batch in parallel, at most GOMAXPROCS files at a time. A path that
// fails to read is dropped and reported to onError; binary content is
// dropped silently. Neither aborts the batch.
func RunPhaseA(batch []string, onError func(path string, err error)) []*PartialFile {
	out := make([]*PartialFile, len(batch))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range batch {
		i, path := i, path
		g.Go(func() error {
			pf, err := phaseAOne(path)
			if err != nil {
				if onError != nil {
					onError(path, err)
				}
				return nil
			}
			out[i] = pf
			return nil
		})
	}
	_ = g.Wait()

	result := make([]*PartialFile, 0, len(out))
	for _, pf := range out {
		if pf != nil {
			result = append(result, pf)
		}
	}
	return result
}

func phaseAOne(path string) (*PartialFile, error) {
	canon, err := canonicalize(path)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(canon)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(canon)
	if err != nil {
		return nil, err
	}

	res := encoding.Detect(content, true)
	if res.Kind == encoding.KindBinary {
		return nil, nil //nolint:nilnil // binary content is a legitimate empty result, not an error
	}

	safety := encoding.CheckSymbolSafety(content)

	return &PartialFile{
		Path:       path,
		CanonPath:  canon,
		Ext:        strings.ToLower(filepath.Ext(canon)),
		Content:    content,
		Text:       res.Text,
		ModTime:    fi.ModTime().Unix(),
		Size:       fi.Size(),
		Trigrams:   trigram.Extract([]byte(res.Text)),
		SymbolSafe: safety == encoding.SafeForSymbols,
	}, nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}

// RunPhaseB runs the symbol extractor and raw-import scanner over each
// PartialFile in insertion order, serially, because the underlying
// tree-sitter parsers are not reentrant across threads. probe is called
// with each path immediately before its extraction.
func RunPhaseB(files []*PartialFile, extractor *symbols.Extractor, probe func(path string)) {
	for _, pf := range files {
		if probe != nil {
			probe(pf.Path)
		}
		if pf.SymbolSafe && extractor.SupportsExtension(pf.Ext) {
			pf.Symbols = extractor.Extract(pf.Ext, pf.Content)
		}
		pf.RawImports = ExtractRawImports(pf.Ext, pf.Content)
	}
}

// WriteProbeFile atomically records path as the last file about to enter
// Phase B: if the process dies mid-parse, reading this file identifies
// the offending path so it can be added to ExcludeFiles.
func WriteProbeFile(probePath, path string) {
	if probePath == "" {
		return
	}
	tmp := probePath + ".tmp"
	if err := os.WriteFile(tmp, []byte(path), 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, probePath)
}
