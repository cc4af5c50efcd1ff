package pipeline

import "strings"

// ExtractRawImports returns the raw import specifiers a file's source text
// contains, in source order, for the dependency graph to resolve. This is
// a lightweight line scan rather than a tree-sitter query: resolution only
// ever consumes the raw string inside the quotes/brackets, so a parse tree
// buys nothing here that a prefix+quote scan doesn't already give, at a
// fraction of the per-file cost Phase B's serial section can't
// parallelize away.
func ExtractRawImports(ext string, content []byte) []string {
	scan, ok := importScanners[ext]
	if !ok {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(content), "\n") {
		if spec, ok := scan(strings.TrimSpace(line)); ok {
			out = append(out, spec)
		}
	}
	return out
}

type lineScanner func(trimmed string) (string, bool)

var importScanners = map[string]lineScanner{
	".go":   quotedAfterPrefix("import "),
	".py":   pythonImport,
	".js":   quotedAfterKeyword([]string{"import ", "from ", "require("}),
	".jsx":  quotedAfterKeyword([]string{"import ", "from ", "require("}),
	".ts":   quotedAfterKeyword([]string{"import ", "from ", "require("}),
	".tsx":  quotedAfterKeyword([]string{"import ", "from ", "require("}),
	".rs":   terminatedAfterPrefix("use ", ';'),
	".java": terminatedAfterPrefix("import ", ';'),
	".cs":   terminatedAfterPrefix("using ", ';'),
	".php":  phpImport,
	".cpp":  cppInclude,
	".cc":   cppInclude,
	".cxx":  cppInclude,
	".c":    cppInclude,
	".h":    cppInclude,
	".hpp":  cppInclude,
}

// quotedAfterPrefix matches lines starting with prefix and returns the
// content of the first quoted string that follows, e.g. Go's
// `import "net/http"`.
func quotedAfterPrefix(prefix string) lineScanner {
	return func(trimmed string) (string, bool) {
		if !strings.HasPrefix(trimmed, prefix) {
			return "", false
		}
		return firstQuoted(trimmed[len(prefix):])
	}
}

// quotedAfterKeyword is the same idea but tries several possible leading
// keywords, for languages with more than one import form (ES import vs
// CommonJS require).
func quotedAfterKeyword(keywords []string) lineScanner {
	return func(trimmed string) (string, bool) {
		for _, kw := range keywords {
			if idx := strings.Index(trimmed, kw); idx != -1 {
				if spec, ok := firstQuoted(trimmed[idx+len(kw):]); ok {
					return spec, true
				}
			}
		}
		return "", false
	}
}

// terminatedAfterPrefix matches a prefix and returns everything up to the
// first occurrence of term, trimmed — Rust's `use a::b;`, Java/C#'s
// `import/using a.b.C;`.
func terminatedAfterPrefix(prefix string, term byte) lineScanner {
	return func(trimmed string) (string, bool) {
		if !strings.HasPrefix(trimmed, prefix) {
			return "", false
		}
		rest := trimmed[len(prefix):]
		if idx := strings.IndexByte(rest, term); idx != -1 {
			rest = rest[:idx]
		}
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return "", false
		}
		return rest, true
	}
}

func pythonImport(trimmed string) (string, bool) {
	switch {
	case strings.HasPrefix(trimmed, "from "):
		rest := strings.TrimPrefix(trimmed, "from ")
		if idx := strings.Index(rest, " import"); idx != -1 {
			return strings.TrimSpace(rest[:idx]), true
		}
	case strings.HasPrefix(trimmed, "import "):
		rest := strings.TrimPrefix(trimmed, "import ")
		rest = strings.Split(rest, ",")[0]
		rest = strings.Split(rest, " as ")[0]
		return strings.TrimSpace(rest), true
	}
	return "", false
}

func phpImport(trimmed string) (string, bool) {
	if strings.HasPrefix(trimmed, "use ") {
		rest := strings.TrimPrefix(trimmed, "use ")
		if idx := strings.IndexAny(rest, ";"); idx != -1 {
			rest = rest[:idx]
		}
		return strings.TrimSpace(rest), true
	}
	for _, kw := range []string{"require_once", "require", "include_once", "include"} {
		if strings.HasPrefix(trimmed, kw) {
			return firstQuoted(trimmed[len(kw):])
		}
	}
	return "", false
}

func cppInclude(trimmed string) (string, bool) {
	if !strings.HasPrefix(trimmed, "#include") {
		return "", false
	}
	rest := strings.TrimSpace(trimmed[len("#include"):])
	if strings.HasPrefix(rest, "\"") {
		return firstQuoted(rest)
	}
	if strings.HasPrefix(rest, "<") {
		if idx := strings.IndexByte(rest, '>'); idx != -1 {
			return rest[1:idx], true
		}
	}
	return "", false
}

func firstQuoted(s string) (string, bool) {
	for _, q := range []byte{'"', '\''} {
		start := strings.IndexByte(s, q)
		if start == -1 {
			continue
		}
		end := strings.IndexByte(s[start+1:], q)
		if end == -1 {
			continue
		}
		return s[start+1 : start+1+end], true
	}
	return "", false
}
