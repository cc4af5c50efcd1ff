package engine

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/codelens/codelens/internal/trigram"
	"github.com/codelens/codelens/internal/types"
)

// remapPostings translates a restored snapshot's trigram postings from
// old snapshot-file positions to freshly assigned FileIDs, dropping any
// entry that refers to a stale or removed position (oldToNew has no
// entry for those).
func remapPostings(postings map[trigram.Key]*roaring.Bitmap, oldToNew map[int]types.FileID) map[trigram.Key]*roaring.Bitmap {
	out := make(map[trigram.Key]*roaring.Bitmap, len(postings))
	for key, bm := range postings {
		remapped := roaring.New()
		it := bm.Iterator()
		for it.HasNext() {
			oldPos := int(it.Next())
			if newID, ok := oldToNew[oldPos]; ok {
				remapped.Add(uint32(newID))
			}
		}
		if !remapped.IsEmpty() {
			out[key] = remapped
		}
	}
	return out
}
