package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/codelens/codelens/internal/pipeline"
	"github.com/codelens/codelens/internal/snapshot"
	"github.com/codelens/codelens/internal/store"
	"github.com/codelens/codelens/internal/types"
)

// class is a snapshot-reconciliation verdict for one restored file.
type class int

const (
	classValid class = iota
	classStale
	classRemoved
)

// Build runs the full indexing pipeline: Stage 0 snapshot
// reconciliation (if an index path is configured and a snapshot exists),
// Stage 1 discovery, Stage 2 batched Phase A/Phase B merge, Stage 3
// import resolution, and Stage 4 snapshot persistence.
func (e *Engine) Build(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.statusMu.Lock()
	e.status = Status{State: StateLoadingIndex}
	e.statusMu.Unlock()

	validOldToNew := e.loadSnapshot()

	if err := e.runStage2(ctx, validOldToNew); err != nil {
		return err
	}

	e.setState(StateResolvingImports, "resolving pending imports")
	e.resolveImports()

	if e.cfg.IndexPath != "" && e.cfg.SaveAfterBuild && e.dirty {
		if err := e.saveSnapshot(); err != nil {
			return err
		}
	}

	e.setState(StateCompleted, "build complete")
	return nil
}

// loadSnapshot implements Stage 0: load a compatible snapshot, restore
// every Valid file's trigram postings/symbols/dependency edges without
// touching the filesystem, and return the old-position->new-FileID
// mapping so discovery can skip files that are still current. A missing,
// unreadable, version-mismatched, or fingerprint-stale-on-every-file
// snapshot simply yields an empty map: Stage 2 then indexes everything
// from scratch, which is always correct, just slower.
func (e *Engine) loadSnapshot() map[int]types.FileID {
	if e.cfg.IndexPath == "" {
		return nil
	}
	if _, err := os.Stat(e.cfg.IndexPath); err != nil {
		return nil
	}

	snap, err := snapshot.Load(e.cfg.IndexPath)
	if err != nil {
		return nil
	}

	e.setState(StateReconciling, "reconciling snapshot against the filesystem")

	oldToNew := make(map[int]types.FileID, len(snap.Files))
	for i, meta := range snap.Files {
		switch classify(meta) {
		case classValid:
			id := e.store.RegisterMeta(meta)
			oldToNew[i] = id
			e.graph.RegisterPath(id, meta.Path)
			if i < len(snap.Symbols) {
				e.symbolsByFile[id] = snap.Symbols[i]
			}
		case classStale, classRemoved:
			// Discarded: classStale files are re-read fresh in Stage 2 when
			// discovery walks past them again; classRemoved files are gone
			// from disk and simply never re-enter the index.
		}
	}

	e.trigrams.LoadPostings(remapPostings(snap.Postings, oldToNew))

	for _, edge := range snap.Edges {
		from, okFrom := oldToNew[int(edge.From)]
		to, okTo := oldToNew[int(edge.To)]
		if okFrom && okTo {
			e.graph.AddEdge(from, to)
		}
	}

	return oldToNew
}

func classify(meta types.FileMeta) class {
	fi, err := os.Stat(meta.Path)
	if err != nil {
		return classRemoved
	}
	if meta.Current(fi.ModTime().Unix(), fi.Size()) {
		return classValid
	}
	return classStale
}

// runStage2 drives discovery (Stage 1) and the batched Phase A/Phase B
// merge (Stage 2) for every configured root. Files already registered as
// Valid by loadSnapshot are skipped before Phase A ever reads their bytes.
func (e *Engine) runStage2(ctx context.Context, validOldToNew map[int]types.FileID) error {
	e.setState(StateDiscovering, "walking configured paths")

	queue := pipeline.NewQueue()
	errCh := make(chan error, 1)
	go func() {
		errCh <- pipeline.Discover(ctx, e.cfg, queue)
	}()

	e.setState(StateIndexing, "indexing discovered files")

	batch := make([]string, 0, pipeline.BatchSize)
	batchNum := 0
	for path := range queue {
		e.addDiscovered(1)
		canon, err := store.Canonicalize(path)
		if err == nil {
			if id, ok := e.store.LookupPath(canon); ok {
				if meta, ok := e.store.Meta(id); ok {
					if fi, statErr := os.Stat(canon); statErr == nil && meta.Current(fi.ModTime().Unix(), fi.Size()) {
						continue // still valid from the restored snapshot
					}
				}
			}
		}

		batch = append(batch, path)
		if len(batch) >= pipeline.BatchSize {
			batchNum++
			e.mergeBatch(batch, batchNum)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		batchNum++
		e.mergeBatch(batch, batchNum)
	}
	e.setBatch(batchNum, batchNum)

	return <-errCh
}

// mergeBatch runs Phase A (parallel) then Phase B (serial) over one batch
// of paths and merges the result into the engine's shared state.
func (e *Engine) mergeBatch(batch []string, batchNum int) {
	e.setBatch(batchNum, 0)

	partials := pipeline.RunPhaseA(batch, func(path string, err error) {
		e.addError()
	})

	pipeline.RunPhaseB(partials, e.extractor, func(path string) {
		e.setCurrentPath(path)
		pipeline.WriteProbeFile(e.cfg.ProbeFilePath(), path)
	})

	for _, pf := range partials {
		id, err := e.store.AddWithContent(pf.Path)
		if err != nil {
			e.addError()
			continue
		}
		e.trigrams.AddTrigrams(id, pf.Trigrams)
		if len(pf.Symbols) > 0 {
			e.symbolsByFile[id] = pf.Symbols
		}
		e.graph.RegisterPath(id, pf.CanonPath)

		for _, raw := range pf.RawImports {
			e.pending = append(e.pending, pendingImport{fromID: id, fromPath: pf.CanonPath, raw: raw})
		}

		e.addIndexed(1)
		e.dirty = true
	}
}

// resolveImports drains the pending raw-import queue against the
// dependency graph. Imports that don't resolve (external packages,
// not-yet-discovered files) are simply dropped: the graph only ever
// records edges it can point at a concrete FileID.
func (e *Engine) resolveImports() {
	for _, p := range e.pending {
		if to, ok := e.graph.Resolve(p.fromPath, p.raw); ok {
			e.graph.AddEdge(p.fromID, to)
		}
	}
	e.pending = e.pending[:0]
}

func (e *Engine) saveSnapshot() error {
	files := make([]types.FileMeta, 0)
	symbolsOut := make([][]types.Symbol, 0)
	posToID := make(map[types.FileID]int)
	// In memory, postings hold FileIDs; the snapshot stores file positions.
	idToPos := make(map[int]types.FileID)

	for _, id := range e.store.AllIDs() {
		if e.tombstoned[id] {
			continue
		}
		meta, ok := e.store.Meta(id)
		if !ok {
			continue
		}
		posToID[id] = len(files)
		idToPos[int(id)] = types.FileID(len(files))
		files = append(files, meta)
		symbolsOut = append(symbolsOut, e.symbolsByFile[id])
	}

	edges := make([]snapshot.Edge, 0)
	for _, id := range e.store.AllIDs() {
		from, ok := posToID[id]
		if !ok {
			continue
		}
		for _, to := range e.graph.Dependencies(id) {
			toPos, ok := posToID[to]
			if !ok {
				continue
			}
			edges = append(edges, snapshot.Edge{From: uint32(from), To: uint32(toPos)})
		}
	}

	snap := &snapshot.Snapshot{
		ConfigFingerprint: e.cfg.Fingerprint(),
		BasePaths:         append([]string(nil), e.cfg.Paths...),
		Files:             files,
		Postings:          remapPostings(e.trigrams.Postings(), idToPos),
		Symbols:           symbolsOut,
		Edges:             edges,
	}

	if dir := filepath.Dir(e.cfg.IndexPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := snapshot.Save(e.cfg.IndexPath, snap); err != nil {
		return err
	}
	e.dirty = false
	return nil
}
