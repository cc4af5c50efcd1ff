// Package store maintains a stable FileID<->path mapping with on-demand,
// lazily memory-mapped access to file bytes. Content is mapped (or read,
// when mapping would be unsafe) only the first time something asks for
// it, not at registration time.
package store

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	"github.com/codelens/codelens/internal/encoding"
	"github.com/codelens/codelens/internal/indexerrors"
	"github.com/codelens/codelens/internal/types"
)

// record holds one file's identity and its once-initialized mapping: the
// body is mapped exactly once, and every later read is wait-free.
type record struct {
	meta types.FileMeta

	mapOnce sync.Once
	body    []byte   // either an mmap.MMap's backing slice or a plain read fallback
	mm      mmap.MMap // non-nil when body came from an actual mmap, for Unmap
	mapErr  error

	utf8Once  sync.Once
	utf8Text  string
	utf8Err   error

	hashOnce sync.Once
	hash     uint64
}

// Store is a stable FileID<->path registry with lazy content access.
type Store struct {
	mu       sync.RWMutex
	byID     map[types.FileID]*record
	byPath   map[string]types.FileID
	nextID   atomic.Uint32
	mapped   atomic.Int64 // MappedCount
	maxMaps  int64         // OS vm.max_map_count ceiling, 0 = unknown/unbounded
	transcode bool
}

// New creates an empty Store. transcode enables the non-UTF-8 decoding
// fallback in Text.
func New(transcode bool) *Store {
	return &Store{
		byID:      make(map[types.FileID]*record),
		byPath:    make(map[string]types.FileID),
		maxMaps:   readMaxMapCount(),
		transcode: transcode,
	}
}

// Canonicalize resolves path to an absolute, symlink-resolved form when
// possible, falling back to Abs+Clean for paths that don't yet exist on
// disk.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}

// Register performs a pure metadata insertion: it stats the file for
// mtime/size but never opens or maps its content. Registering the same
// canonical path twice returns the existing id.
func (s *Store) Register(path string) (types.FileID, error) {
	canon, err := Canonicalize(path)
	if err != nil {
		return 0, indexerrors.NewIOError("register", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byPath[canon]; ok {
		return id, nil
	}

	var meta types.FileMeta
	meta.Path = canon
	if fi, statErr := os.Stat(canon); statErr == nil {
		meta.ModTime = fi.ModTime().Unix()
		meta.Size = fi.Size()
	}

	id := types.FileID(s.nextID.Add(1))
	s.byID[id] = &record{meta: meta}
	s.byPath[canon] = id
	return id, nil
}

// RegisterMeta inserts a file record from already-known metadata, for
// restoring a record from a snapshot without touching the filesystem.
func (s *Store) RegisterMeta(meta types.FileMeta) types.FileID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byPath[meta.Path]; ok {
		return id
	}
	id := types.FileID(s.nextID.Add(1))
	s.byID[id] = &record{meta: meta}
	s.byPath[meta.Path] = id
	return id
}

// AddWithContent opens, maps, and inserts a file whose bytes the caller
// intends to consume immediately.
func (s *Store) AddWithContent(path string) (types.FileID, error) {
	canon, err := Canonicalize(path)
	if err != nil {
		return 0, indexerrors.NewIOError("add_with_content", path, err)
	}

	f, err := os.Open(canon)
	if err != nil {
		return 0, indexerrors.NewIOError("open", canon, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, indexerrors.NewIOError("stat", canon, err)
	}

	body, mm, err := mapOrRead(f, fi.Size(), s.overLimit())
	if err != nil {
		return 0, indexerrors.NewIOError("map", canon, err)
	}
	if mm != nil {
		s.mapped.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, existing := s.byPath[canon]
	if !existing {
		id = types.FileID(s.nextID.Add(1))
	}
	rec := &record{meta: types.FileMeta{Path: canon, ModTime: fi.ModTime().Unix(), Size: fi.Size()}}
	rec.mapOnce.Do(func() {}) // mark as already "mapped"
	rec.body = body
	rec.mm = mm
	s.byID[id] = rec
	s.byPath[canon] = id
	return id, nil
}

// Path returns the canonical path for id without touching I/O. It always
// succeeds for valid ids.
func (s *Store) Path(id types.FileID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return "", false
	}
	return rec.meta.Path, true
}

// Meta returns the recorded staleness metadata for id.
func (s *Store) Meta(id types.FileID) (types.FileMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return types.FileMeta{}, false
	}
	return rec.meta, true
}

// LookupPath returns the FileID already registered for a canonical path.
func (s *Store) LookupPath(canonPath string) (types.FileID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPath[canonPath]
	return id, ok
}

// Bytes lazily maps the file on first call; subsequent calls are wait-free
// reads of the established mapping.
func (s *Store) Bytes(id types.FileID) ([]byte, error) {
	rec := s.getRecord(id)
	if rec == nil {
		return nil, indexerrors.NewIOError("bytes", "", os.ErrNotExist)
	}
	rec.mapOnce.Do(func() {
		if rec.body != nil {
			return // populated by AddWithContent already
		}
		f, err := os.Open(rec.meta.Path)
		if err != nil {
			rec.mapErr = indexerrors.NewIOError("open", rec.meta.Path, err)
			return
		}
		defer f.Close()
		body, mm, err := mapOrRead(f, rec.meta.Size, s.overLimit())
		if err != nil {
			rec.mapErr = indexerrors.NewIOError("map", rec.meta.Path, err)
			return
		}
		rec.body = body
		rec.mm = mm
		if mm != nil {
			s.mapped.Add(1)
		}
	})
	return rec.body, rec.mapErr
}

// Text returns the UTF-8 decoded text of the file, caching both the decode
// result and any EncodingError so retries don't re-run detection.
func (s *Store) Text(id types.FileID) (string, error) {
	rec := s.getRecord(id)
	if rec == nil {
		return "", indexerrors.NewIOError("text", "", os.ErrNotExist)
	}
	body, err := s.Bytes(id)
	if err != nil {
		return "", err
	}
	rec.utf8Once.Do(func() {
		res := encoding.Detect(body, s.transcode)
		if res.Kind == encoding.KindBinary {
			rec.utf8Err = indexerrors.NewEncodingError(rec.meta.Path, "content is not decodable text")
			return
		}
		rec.utf8Text = res.Text
	})
	return rec.utf8Text, rec.utf8Err
}

// FastHash returns a content hash (xxhash) suitable for cheap equality
// checks, computed once.
func (s *Store) FastHash(id types.FileID) (uint64, error) {
	rec := s.getRecord(id)
	if rec == nil {
		return 0, indexerrors.NewIOError("hash", "", os.ErrNotExist)
	}
	body, err := s.Bytes(id)
	if err != nil {
		return 0, err
	}
	rec.hashOnce.Do(func() {
		rec.hash = xxhash.Sum64(body)
	})
	return rec.hash, nil
}

// MappedCount reports how many files currently hold a live mmap.
func (s *Store) MappedCount() int64 {
	return s.mapped.Load()
}

// AllIDs returns every registered FileID.
func (s *Store) AllIDs() []types.FileID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]types.FileID, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	return ids
}

// Remove evicts a file record entirely, unmapping its content if mapped.
func (s *Store) Remove(id types.FileID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return
	}
	if rec.mm != nil {
		_ = rec.mm.Unmap()
		s.mapped.Add(-1)
	}
	delete(s.byID, id)
	delete(s.byPath, rec.meta.Path)
}

func (s *Store) getRecord(id types.FileID) *record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// overLimit reports whether mapping a new file would push the store past
// 85% of the OS mmap ceiling.
func (s *Store) overLimit() bool {
	if s.maxMaps <= 0 {
		return false
	}
	return float64(s.mapped.Load()) >= 0.85*float64(s.maxMaps)
}

// mapOrRead mmaps f unless overLimit forces a plain read-on-demand copy,
// so the process never refuses to index a file just because the mmap
// ceiling is close.
func mapOrRead(f *os.File, size int64, overLimit bool) ([]byte, mmap.MMap, error) {
	if size == 0 {
		return []byte{}, nil, nil
	}
	if overLimit {
		data := make([]byte, size)
		n, err := f.ReadAt(data, 0)
		if err != nil && n != int(size) {
			return nil, nil, err
		}
		return data[:n], nil, nil
	}
	mm, err := mmap.MapRegion(f, int(size), mmap.RDONLY, 0, 0)
	if err != nil {
		// mmap can fail on zero-size or special files; fall back to a copy
		// rather than failing the whole indexing operation.
		data := make([]byte, size)
		n, readErr := f.ReadAt(data, 0)
		if readErr != nil && n != int(size) {
			return nil, nil, err
		}
		return data[:n], nil, nil
	}
	return []byte(mm), mm, nil
}
