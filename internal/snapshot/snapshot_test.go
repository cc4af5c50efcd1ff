package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/trigram"
	"github.com/codelens/codelens/internal/types"
)

func sampleSnapshot() *Snapshot {
	postings := map[trigram.Key]*roaring.Bitmap{
		{'f', 'o', 'o'}: roaring.BitmapOf(1, 2),
		{'b', 'a', 'r'}: roaring.BitmapOf(2),
	}
	return &Snapshot{
		ConfigFingerprint: "deadbeef",
		BasePaths:         []string{"/repo"},
		Files: []types.FileMeta{
			{Path: "/repo/a.go", ModTime: 100, Size: 42},
			{Path: "/repo/b.go", ModTime: 200, Size: 7, SourceBase: "/repo"},
		},
		Postings: postings,
		Symbols: [][]types.Symbol{
			{{Name: "Foo", Kind: types.SymbolFunction, Line: 3, Column: 0, Definition: true}},
			nil,
		},
		Edges: []Edge{{From: 0, To: 1}},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	snap := sampleSnapshot()

	raw, err := EncodeToBytes(snap)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := DecodeFromBytes(raw)
	require.NoError(t, err)

	assert.Equal(t, snap.ConfigFingerprint, got.ConfigFingerprint)
	assert.Equal(t, snap.BasePaths, got.BasePaths)
	assert.Equal(t, snap.Files, got.Files)
	assert.Equal(t, snap.Edges, got.Edges)
	assert.Equal(t, snap.Symbols, got.Symbols)
	require.Len(t, got.Postings, 2)
	assert.True(t, got.Postings[trigram.Key{'f', 'o', 'o'}].Contains(1))
	assert.True(t, got.Postings[trigram.Key{'b', 'a', 'r'}].Contains(2))
}

func TestEncodeDecode_Deterministic(t *testing.T) {
	snap := sampleSnapshot()
	raw1, err := EncodeToBytes(snap)
	require.NoError(t, err)
	raw2, err := EncodeToBytes(snap)
	require.NoError(t, err)
	assert.Equal(t, checksum(raw1), checksum(raw2))
}

func TestSaveLoad_RoundTripOnDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.snapshot")
	snap := sampleSnapshot()

	require.NoError(t, Save(path, snap))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap.ConfigFingerprint, got.ConfigFingerprint)
	assert.Equal(t, snap.Files, got.Files)
}

func TestLoad_VersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.snapshot")

	// Hand-craft a file whose version field doesn't match Version.
	bad := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	require.NoError(t, os.WriteFile(path, bad, 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_AtomicRenameLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.snapshot")
	require.NoError(t, Save(path, sampleSnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.snapshot", entries[0].Name())
}
