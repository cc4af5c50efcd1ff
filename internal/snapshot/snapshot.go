// Package snapshot implements the on-disk persistence format: a single
// little-endian, length-prefixed binary file holding the file store's
// metadata, the trigram index's postings, per-file symbol tables, and the
// dependency graph's edges (encoding/binary, binary.LittleEndian, explicit
// length-prefixed fields), plus golang.org/x/sys/unix advisory locking so
// a writer and a concurrent reader never observe a half-written file.
package snapshot

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sys/unix"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/indexerrors"
	"github.com/codelens/codelens/internal/trigram"
	"github.com/codelens/codelens/internal/types"
)

// Version is the on-disk format version. A stored version that doesn't
// match forces a full rebuild rather than an attempted upgrade-in-place.
const Version uint32 = 3

// Edge is a dependency edge expressed as indexes into Snapshot.Files.
type Edge struct {
	From uint32
	To   uint32
}

// Snapshot is the full persisted state of an engine.
type Snapshot struct {
	ConfigFingerprint string
	BasePaths         []string
	Files             []types.FileMeta
	Postings          map[trigram.Key]*roaring.Bitmap
	Symbols           [][]types.Symbol // position-parallel to Files
	Edges             []Edge
}

// Fingerprint computes the MD5 config fingerprint stored in a snapshot's
// ConfigFingerprint. Loading a snapshot does not compare it: the engine
// re-checks every restored file's mtime and size whatever its value.
func Fingerprint(cfg config.IndexerConfig) string {
	return cfg.Fingerprint()
}

// Save atomically writes snap to path: encode into a temp file in the same
// directory, then rename over the destination, so any reader sees either
// the old complete file or the new one, never a torn write.
func Save(path string, snap *Snapshot) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return indexerrors.NewSnapshotError("create-temp", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if err := lock(tmp, unix.LOCK_EX); err != nil {
		tmp.Close()
		return indexerrors.NewSnapshotError("lock", err)
	}

	w := bufio.NewWriter(tmp)
	if err := encode(w, snap); err != nil {
		tmp.Close()
		return indexerrors.NewSnapshotError("encode", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return indexerrors.NewSnapshotError("flush", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return indexerrors.NewSnapshotError("fsync", err)
	}
	if err := tmp.Close(); err != nil {
		return indexerrors.NewSnapshotError("close-temp", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return indexerrors.NewSnapshotError("rename", err)
	}
	return nil
}

// Load reads and decodes the snapshot at path under a shared advisory
// lock. A version mismatch is reported as a *indexerrors.SnapshotError so
// the caller can fall back to a full rebuild instead of trying to
// interpret a foreign layout.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, indexerrors.NewIOError("open", path, err)
	}
	defer f.Close()

	if err := lock(f, unix.LOCK_SH); err != nil {
		return nil, indexerrors.NewSnapshotError("lock", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	r := bufio.NewReader(f)
	return decode(r)
}

func lock(f *os.File, how int) error {
	return unix.Flock(int(f.Fd()), how)
}

// --- encoding ---

func encode(w io.Writer, snap *Snapshot) error {
	if err := writeU32(w, Version); err != nil {
		return err
	}
	if err := writeString(w, snap.ConfigFingerprint); err != nil {
		return err
	}
	if err := writeStringVec(w, snap.BasePaths); err != nil {
		return err
	}
	if err := writeFiles(w, snap.Files); err != nil {
		return err
	}
	if err := writePostings(w, snap.Postings); err != nil {
		return err
	}
	if err := writeSymbols(w, snap.Symbols); err != nil {
		return err
	}
	return writeEdges(w, snap.Edges)
}

func decode(r io.Reader) (*Snapshot, error) {
	version, err := readU32(r)
	if err != nil {
		return nil, indexerrors.NewSnapshotError("read-version", err)
	}
	if version != Version {
		return nil, indexerrors.NewSnapshotError("version-mismatch", fmt.Errorf("got %d, want %d", version, Version))
	}

	fingerprint, err := readString(r)
	if err != nil {
		return nil, indexerrors.NewSnapshotError("read-fingerprint", err)
	}
	basePaths, err := readStringVec(r)
	if err != nil {
		return nil, indexerrors.NewSnapshotError("read-base-paths", err)
	}
	files, err := readFiles(r)
	if err != nil {
		return nil, indexerrors.NewSnapshotError("read-files", err)
	}
	postings, err := readPostings(r)
	if err != nil {
		return nil, indexerrors.NewSnapshotError("read-postings", err)
	}
	symbols, err := readSymbols(r)
	if err != nil {
		return nil, indexerrors.NewSnapshotError("read-symbols", err)
	}
	edges, err := readEdges(r)
	if err != nil {
		return nil, indexerrors.NewSnapshotError("read-edges", err)
	}

	return &Snapshot{
		ConfigFingerprint: fingerprint,
		BasePaths:         basePaths,
		Files:             files,
		Postings:          postings,
		Symbols:           symbols,
		Edges:             edges,
	}, nil
}

func writeU32(w io.Writer, v uint32) error  { return binary.Write(w, binary.LittleEndian, v) }
func writeU64(w io.Writer, v uint64) error  { return binary.Write(w, binary.LittleEndian, v) }
func readU32(r io.Reader) (uint32, error)   { var v uint32; err := binary.Read(r, binary.LittleEndian, &v); return v, err }
func readU64(r io.Reader) (uint64, error)   { var v uint64; err := binary.Read(r, binary.LittleEndian, &v); return v, err }

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeStringVec(w io.Writer, vec []string) error {
	if err := writeU32(w, uint32(len(vec))); err != nil {
		return err
	}
	for _, s := range vec {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStringVec(r io.Reader) ([]string, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// optString encodes an optional string as a bool flag followed by the
// string when present.
func writeOptString(w io.Writer, s string, present bool) error {
	var flag byte
	if present {
		flag = 1
	}
	if _, err := w.Write([]byte{flag}); err != nil {
		return err
	}
	if !present {
		return nil
	}
	return writeString(w, s)
}

func readOptString(r io.Reader) (string, bool, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return "", false, err
	}
	if flag[0] == 0 {
		return "", false, nil
	}
	s, err := readString(r)
	return s, true, err
}

func writeFiles(w io.Writer, files []types.FileMeta) error {
	if err := writeU32(w, uint32(len(files))); err != nil {
		return err
	}
	for _, f := range files {
		if err := writeString(w, f.Path); err != nil {
			return err
		}
		if err := writeU64(w, uint64(f.ModTime)); err != nil {
			return err
		}
		if err := writeU64(w, uint64(f.Size)); err != nil {
			return err
		}
		if err := writeOptString(w, f.SourceBase, f.SourceBase != ""); err != nil {
			return err
		}
	}
	return nil
}

func readFiles(r io.Reader) ([]types.FileMeta, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]types.FileMeta, n)
	for i := range out {
		path, err := readString(r)
		if err != nil {
			return nil, err
		}
		mtime, err := readU64(r)
		if err != nil {
			return nil, err
		}
		size, err := readU64(r)
		if err != nil {
			return nil, err
		}
		sourceBase, _, err := readOptString(r)
		if err != nil {
			return nil, err
		}
		out[i] = types.FileMeta{Path: path, ModTime: int64(mtime), Size: int64(size), SourceBase: sourceBase}
	}
	return out, nil
}

func writePostings(w io.Writer, postings map[trigram.Key]*roaring.Bitmap) error {
	if err := writeU32(w, uint32(len(postings))); err != nil {
		return err
	}
	keys := make([]trigram.Key, 0, len(postings))
	for key := range postings {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	for _, key := range keys {
		bm := postings[key]
		if _, err := w.Write(key[:]); err != nil {
			return err
		}
		raw, err := bm.ToBytes()
		if err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(raw))); err != nil {
			return err
		}
		if _, err := w.Write(raw); err != nil {
			return err
		}
	}
	return nil
}

func readPostings(r io.Reader) (map[trigram.Key]*roaring.Bitmap, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make(map[trigram.Key]*roaring.Bitmap, n)
	for i := uint32(0); i < n; i++ {
		var key trigram.Key
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return nil, err
		}
		size, err := readU32(r)
		if err != nil {
			return nil, err
		}
		raw := make([]byte, size)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, err
		}
		bm := roaring.New()
		if _, err := bm.FromBuffer(raw); err != nil {
			return nil, err
		}
		out[key] = bm
	}
	return out, nil
}

func writeSymbols(w io.Writer, symbols [][]types.Symbol) error {
	if err := writeU32(w, uint32(len(symbols))); err != nil {
		return err
	}
	for _, syms := range symbols {
		if err := writeU32(w, uint32(len(syms))); err != nil {
			return err
		}
		for _, s := range syms {
			if err := writeString(w, s.Name); err != nil {
				return err
			}
			if _, err := w.Write([]byte{byte(s.Kind)}); err != nil {
				return err
			}
			if err := writeU32(w, uint32(s.Line)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(s.Column)); err != nil {
				return err
			}
			var def byte
			if s.Definition {
				def = 1
			}
			if _, err := w.Write([]byte{def}); err != nil {
				return err
			}
		}
	}
	return nil
}

func readSymbols(r io.Reader) ([][]types.Symbol, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([][]types.Symbol, n)
	for i := range out {
		count, err := readU32(r)
		if err != nil {
			return nil, err
		}
		syms := make([]types.Symbol, count)
		for j := range syms {
			name, err := readString(r)
			if err != nil {
				return nil, err
			}
			var kindByte [1]byte
			if _, err := io.ReadFull(r, kindByte[:]); err != nil {
				return nil, err
			}
			line, err := readU32(r)
			if err != nil {
				return nil, err
			}
			col, err := readU32(r)
			if err != nil {
				return nil, err
			}
			var defByte [1]byte
			if _, err := io.ReadFull(r, defByte[:]); err != nil {
				return nil, err
			}
			syms[j] = types.Symbol{
				Name:       name,
				Kind:       types.SymbolKind(kindByte[0]),
				Line:       int(line),
				Column:     int(col),
				Definition: defByte[0] == 1,
			}
		}
		out[i] = syms
	}
	return out, nil
}

func writeEdges(w io.Writer, edges []Edge) error {
	if err := writeU32(w, uint32(len(edges))); err != nil {
		return err
	}
	for _, e := range edges {
		if err := writeU32(w, e.From); err != nil {
			return err
		}
		if err := writeU32(w, e.To); err != nil {
			return err
		}
	}
	return nil
}

func readEdges(r io.Reader) ([]Edge, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]Edge, n)
	for i := range out {
		from, err := readU32(r)
		if err != nil {
			return nil, err
		}
		to, err := readU32(r)
		if err != nil {
			return nil, err
		}
		out[i] = Edge{From: from, To: to}
	}
	return out, nil
}

// EncodeToBytes and DecodeFromBytes are the in-memory forms used by tests
// and by any caller that wants to checksum a snapshot without touching
// the filesystem.
func EncodeToBytes(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeFromBytes(raw []byte) (*Snapshot, error) {
	return decode(bytes.NewReader(raw))
}

// checksum is used only by tests that want to assert two encodings are
// byte-identical without comparing the (potentially large) buffers directly.
func checksum(raw []byte) string {
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}
