// Package trigram implements an inverted index from 3-byte windows to the
// compressed bitmap of file ids whose content contains them, used to
// prune a literal or regex query's candidate set before the expensive
// verification pass runs.
//
// Posting lists are github.com/RoaringBitmap/roaring bitmaps, chosen for
// the container-level skipping and O(min(|A|,|B|)) intersection a
// high-cardinality trigram table needs.
package trigram

import (
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/codelens/codelens/internal/types"
)

// Key is a trigram: three raw bytes, treated as opaque — not characters,
// no lowercasing at index time.
type Key [3]byte

// Index is an inverted index from trigram to file-id bitmap.
type Index struct {
	mu       sync.RWMutex
	postings map[Key]*roaring.Bitmap
	all      *roaring.Bitmap
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		postings: make(map[Key]*roaring.Bitmap),
		all:      roaring.New(),
	}
}

// Extract returns the deduplicated set of trigrams in content. Exported so
// the indexing pipeline's parallel Phase A can compute trigrams off the
// hot merge path and hand the Index only the finished set.
func Extract(content []byte) map[Key]struct{} {
	if len(content) < 3 {
		return nil
	}
	set := make(map[Key]struct{}, len(content))
	for i := 0; i+3 <= len(content); i++ {
		set[Key{content[i], content[i+1], content[i+2]}] = struct{}{}
	}
	return set
}

// Add extracts content's trigrams and inserts id into each one's posting
// list. Duplicates within a single file do not increase the stored set
// (deduplication).
func (idx *Index) Add(id types.FileID, content []byte) {
	idx.AddTrigrams(id, Extract(content))
}

// AddTrigrams inserts id into the posting list for each trigram in a
// precomputed set — the form the parallel extraction phase produces.
func (idx *Index) AddTrigrams(id types.FileID, trigrams map[Key]struct{}) {
	if len(trigrams) == 0 {
		idx.mu.Lock()
		idx.all.Add(uint32(id))
		idx.mu.Unlock()
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for t := range trigrams {
		bm, ok := idx.postings[t]
		if !ok {
			bm = roaring.New()
			idx.postings[t] = bm
		}
		bm.Add(uint32(id))
	}
	idx.all.Add(uint32(id))
}

// Remove drops id from every posting list it appears in. The engine's
// incremental path does not call it: deleted files are tombstoned and
// their postings stay in memory.
func (idx *Index) Remove(id types.FileID, content []byte) {
	trigrams := Extract(content)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for t := range trigrams {
		if bm, ok := idx.postings[t]; ok {
			bm.Remove(uint32(id))
			if bm.IsEmpty() {
				delete(idx.postings, t)
			}
		}
	}
	idx.all.Remove(uint32(id))
}

// QueryCandidates returns the sound superset of files that might contain
// needle as a contiguous substring: the intersection of the posting
// lists for every trigram of needle. A needle shorter than 3 bytes
// returns the universe of indexed files.
func (idx *Index) QueryCandidates(needle []byte) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(needle) < 3 {
		return idx.all.Clone()
	}

	trigrams := Extract(needle)
	if len(trigrams) == 0 {
		return idx.all.Clone()
	}

	lists := make([]*roaring.Bitmap, 0, len(trigrams))
	for t := range trigrams {
		bm, ok := idx.postings[t]
		if !ok {
			// One needle trigram with no postings means no file can
			// possibly contain the needle.
			return roaring.New()
		}
		lists = append(lists, bm)
	}
	return roaring.FastAnd(lists...)
}

// AllIDs returns the bitmap of every FileID added to the index, including
// files too short to yield any trigram.
func (idx *Index) AllIDs() *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.all.Clone()
}

// Postings returns a snapshot of the full trigram->bitmap table, for
// serialization by the persistence layer.
func (idx *Index) Postings() map[Key]*roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[Key]*roaring.Bitmap, len(idx.postings))
	for k, v := range idx.postings {
		out[k] = v.Clone()
	}
	return out
}

// LoadPostings replaces the index's contents wholesale — the snapshot
// restore path hands over the finished map after snapshot.Load has
// deserialized every posting list one after another (not in parallel).
// The universe is recomputed from the postings alone.
func (idx *Index) LoadPostings(postings map[Key]*roaring.Bitmap) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.postings = postings
	all := roaring.New()
	for _, bm := range postings {
		all.Or(bm)
	}
	idx.all = all
}

// Clear resets the index to empty.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.postings = make(map[Key]*roaring.Bitmap)
	idx.all = roaring.New()
}
