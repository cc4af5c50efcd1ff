package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults_FillsZeroValues(t *testing.T) {
	cfg := IndexerConfig{Paths: []string{"/a"}}.WithDefaults()
	assert.Equal(t, DefaultMaxFileSize, cfg.MaxFileSize)
	assert.ElementsMatch(t, DefaultExcludePatterns, cfg.ExcludePatterns)
}

func TestWithDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := IndexerConfig{Paths: []string{"/a"}, MaxFileSize: 42, ExcludePatterns: []string{"foo/"}}.WithDefaults()
	assert.Equal(t, int64(42), cfg.MaxFileSize)
	assert.Equal(t, []string{"foo/"}, cfg.ExcludePatterns)
}

func TestValidate_RequiresAtLeastOnePath(t *testing.T) {
	err := IndexerConfig{}.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsRelativePaths(t *testing.T) {
	err := IndexerConfig{Paths: []string{"relative/path"}}.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsNegativeMaxFileSize(t *testing.T) {
	err := IndexerConfig{Paths: []string{"/a"}, MaxFileSize: -1}.Validate()
	require.Error(t, err)
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	err := IndexerConfig{Paths: []string{"/a", "/b"}}.Validate()
	require.NoError(t, err)
}

func TestFingerprint_DeterministicAndOrderIndependent(t *testing.T) {
	a := IndexerConfig{Paths: []string{"/a", "/b"}, IncludeExtensions: []string{".go", ".py"}}
	b := IndexerConfig{Paths: []string{"/b", "/a"}, IncludeExtensions: []string{".py", ".go"}}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_ChangesWithIndexingRelevantFields(t *testing.T) {
	a := IndexerConfig{Paths: []string{"/a"}}
	b := IndexerConfig{Paths: []string{"/a"}, MaxFileSize: 123}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_IgnoresPersistenceCadenceFields(t *testing.T) {
	a := IndexerConfig{Paths: []string{"/a"}, SaveAfterBuild: true, SaveAfterUpdates: 10}
	b := IndexerConfig{Paths: []string{"/a"}, SaveAfterBuild: false, SaveAfterUpdates: 0}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}
