// Package symbols turns (path, content) into a sorted list of named
// definitions, using tree-sitter grammar wiring reduced to a
// definition-only query per language and a single generic walker instead
// of one parse function per node kind.
package symbols

import (
	"sort"
	"strings"
	"sync"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/codelens/codelens/internal/types"
)

// lang holds one language's parser, its definition query, and the table
// mapping that query's main capture names to a types.SymbolKind. Every
// field is guarded by mu: callers must serialize use per language, since
// go-tree-sitter parsers are not safe for concurrent Parse calls.
type lang struct {
	mu     sync.Mutex
	parser *tree_sitter.Parser
	query  *tree_sitter.Query
	kinds  map[string]types.SymbolKind
}

// Extractor holds one pooled parser per language, selected by file
// extension.
type Extractor struct {
	byExt map[string]*lang
}

// New builds an Extractor with every language the pack's grammars cover.
// A grammar that fails to load (language/query construction error) is
// simply absent from byExt; Extract then falls through to the
// "no parser for this extension" empty-result path.
func New() *Extractor {
	e := &Extractor{byExt: make(map[string]*lang)}
	e.register([]string{".go"}, tree_sitter_go.Language(), goQuery, goKinds)
	e.register([]string{".py"}, tree_sitter_python.Language(), pythonQuery, pythonKinds)
	e.register([]string{".js", ".jsx"}, tree_sitter_javascript.Language(), javascriptQuery, javascriptKinds)
	e.register([]string{".ts", ".tsx"}, tree_sitter_typescript.LanguageTypescript(), typescriptQuery, typescriptKinds)
	e.register([]string{".rs"}, tree_sitter_rust.Language(), rustQuery, rustKinds)
	e.register([]string{".java"}, tree_sitter_java.Language(), javaQuery, javaKinds)
	e.register([]string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp"}, tree_sitter_cpp.Language(), cppQuery, cppKinds)
	e.register([]string{".cs"}, tree_sitter_csharp.Language(), csharpQuery, csharpKinds)
	e.register([]string{".php", ".phtml"}, tree_sitter_php.LanguagePHP(), phpQuery, phpKinds)
	return e
}

func (e *Extractor) register(exts []string, langPtr unsafe.Pointer, queryStr string, kinds map[string]types.SymbolKind) {
	language := tree_sitter.NewLanguage(langPtr)
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	query, _ := tree_sitter.NewQuery(language, queryStr)
	// go-tree-sitter's NewQuery can return a typed-nil error on success;
	// the nil-ness of query itself is the only reliable signal.
	if query == nil {
		return
	}
	l := &lang{parser: parser, query: query, kinds: kinds}
	for _, ext := range exts {
		e.byExt[ext] = l
	}
}

// Extract returns sorted-by-line symbols for content. It never
// returns an error and never panics; any failure yields an empty result.
// ext is the file's lowercased extension including the leading dot.
func (e *Extractor) Extract(ext string, content []byte) (symbols []types.Symbol) {
	l, ok := e.byExt[ext]
	if !ok {
		return nil
	}

	defer func() {
		if recover() != nil {
			symbols = nil
		}
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Tree-sitter's C layer can mutate the buffer it's handed; content here
	// is the store's shared, possibly memory-mapped slice, so a defensive
	// copy is the only safe way to hand it over.
	buf := make([]byte, len(content))
	copy(buf, content)

	tree := l.parser.Parse(buf, nil)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(l.query, tree.RootNode(), buf)
	captureNames := l.query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		var name string
		var def *tree_sitter.Node
		var kind types.SymbolKind
		var haveKind bool

		for _, c := range match.Captures {
			capName := captureNames[c.Index]
			node := c.Node
			if strings.HasSuffix(capName, ".name") {
				name = string(buf[node.StartByte():node.EndByte()])
				continue
			}
			if k, ok := l.kinds[capName]; ok {
				kind = k
				haveKind = true
				def = &node
			}
		}

		if !haveKind || name == "" || def == nil {
			continue
		}

		pos := def.StartPosition()
		symbols = append(symbols, types.Symbol{
			Name:       name,
			Kind:       kind,
			Line:       int(pos.Row),
			Column:     int(pos.Column),
			Definition: true,
		})
	}

	sort.SliceStable(symbols, func(i, j int) bool { return symbols[i].Line < symbols[j].Line })
	return symbols
}

// SupportsExtension reports whether ext has a registered grammar, so
// callers (the indexing pipeline's Phase B) can skip the Extract call
// entirely for languages with no parser.
func (e *Extractor) SupportsExtension(ext string) bool {
	_, ok := e.byExt[ext]
	return ok
}
