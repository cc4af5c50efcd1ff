// Package types holds the shared identifiers and records used across every
// codelens component: file identity, symbols, and dependency edges.
package types

// FileID is a dense, process-lifetime-stable identifier assigned sequentially
// on first insertion into the File Store. Never reused within a run.
type FileID uint32

// InvalidFileID is returned by lookups that fail to find a match.
const InvalidFileID FileID = 0

// SymbolKind enumerates the syntactic definition kinds the symbol
// extractor recognizes. Languages without a concept of a given kind
// simply never emit it; the set is deliberately coarse.
type SymbolKind uint8

const (
	SymbolFunction SymbolKind = iota
	SymbolClass
	SymbolMethod
	SymbolType
	SymbolVariable
	SymbolConstant
	SymbolInterface
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolClass:
		return "class"
	case SymbolMethod:
		return "method"
	case SymbolType:
		return "type"
	case SymbolVariable:
		return "variable"
	case SymbolConstant:
		return "constant"
	case SymbolInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// Symbol is one named definition recognized in a file, ordered by Line
// within that file's symbol list.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Line       int // zero-based
	Column     int // zero-based byte column
	Definition bool
}

// FileMeta is the staleness-relevant metadata recorded per file: the
// modification time (seconds since epoch) and byte size used for
// Valid/Stale/Removed classification during snapshot reconciliation.
type FileMeta struct {
	Path       string
	ModTime    int64
	Size       int64
	SourceBase string // configured root this file was discovered under, if any
}

// Current reports whether this metadata still matches the filesystem
// state described by modTime/size.
func (m FileMeta) Current(modTime, size int64) bool {
	return m.ModTime == modTime && m.Size == size
}
