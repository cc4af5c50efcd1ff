package trigram

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/types"
)

func TestExtract_DeduplicatesWithinFile(t *testing.T) {
	trigrams := Extract([]byte("aaaa"))
	// "aaa" repeats twice in "aaaa" but the set holds it once.
	assert.Len(t, trigrams, 1)
	_, ok := trigrams[Key{'a', 'a', 'a'}]
	assert.True(t, ok)
}

func TestExtract_ShortContentYieldsNothing(t *testing.T) {
	assert.Nil(t, Extract([]byte("ab")))
	assert.Nil(t, Extract(nil))
}

func TestIndex_AddAndQueryCandidates(t *testing.T) {
	idx := New()
	idx.Add(1, []byte("the quick brown fox"))
	idx.Add(2, []byte("lazy dog sleeps"))

	candidates := idx.QueryCandidates([]byte("quick"))
	assert.True(t, candidates.Contains(1))
	assert.False(t, candidates.Contains(2))
}

func TestIndex_QueryCandidates_NoMatchingTrigram(t *testing.T) {
	idx := New()
	idx.Add(1, []byte("hello world"))

	candidates := idx.QueryCandidates([]byte("zzz"))
	assert.True(t, candidates.IsEmpty())
}

func TestIndex_QueryCandidates_ShortNeedleReturnsUniverse(t *testing.T) {
	idx := New()
	idx.Add(1, []byte("hello"))
	idx.Add(2, []byte("world"))

	candidates := idx.QueryCandidates([]byte("ab"))
	assert.True(t, candidates.Contains(1))
	assert.True(t, candidates.Contains(2))
}

func TestIndex_Remove(t *testing.T) {
	idx := New()
	content := []byte("unique_marker_value")
	idx.Add(1, content)
	require.True(t, idx.QueryCandidates([]byte("marker")).Contains(1))

	idx.Remove(1, content)
	assert.False(t, idx.QueryCandidates([]byte("marker")).Contains(1))
	assert.False(t, idx.AllIDs().Contains(1))
}

func TestIndex_LoadPostingsReplacesContentsAndRecomputesAll(t *testing.T) {
	idx := New()
	idx.Add(99, []byte("stale entry"))

	bm := roaring.New()
	bm.Add(7)
	idx.LoadPostings(map[Key]*roaring.Bitmap{{'a', 'b', 'c'}: bm})

	assert.False(t, idx.AllIDs().Contains(99))
	assert.True(t, idx.AllIDs().Contains(7))
}

func TestIndex_Clear(t *testing.T) {
	idx := New()
	idx.Add(1, []byte("something"))
	idx.Clear()

	assert.True(t, idx.AllIDs().IsEmpty())
	assert.Empty(t, idx.Postings())
}

func TestIndex_PostingsReturnsIndependentCopies(t *testing.T) {
	idx := New()
	idx.Add(1, []byte("content"))

	postings := idx.Postings()
	for _, bm := range postings {
		bm.Add(12345)
	}

	fresh := idx.Postings()
	for _, bm := range fresh {
		assert.False(t, bm.Contains(12345))
	}
}

func TestIndex_AddTrigrams_EmptySetStillRegistersID(t *testing.T) {
	idx := New()
	idx.AddTrigrams(types.FileID(5), nil)
	assert.True(t, idx.AllIDs().Contains(5))
}
