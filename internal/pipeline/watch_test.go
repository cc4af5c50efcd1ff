package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesBurstsIntoOneFlush(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var flushes [][]Event
	done := make(chan struct{}, 1)

	w, err := NewWatcher(func(events []Event) {
		mu.Lock()
		flushes = append(flushes, events)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Add(dir))
	go w.Run()

	path := filepath.Join(dir, "a.go")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))
		time.Sleep(50 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("flush never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, flushes, 1, "bursty writes within the debounce window should coalesce into a single flush")
	assert.Equal(t, path, flushes[0][0].Path)
	assert.Equal(t, EventModified, flushes[0][0].Kind)
}

func TestWatcher_RecordsDeleteAsEventDeleted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{}, 1)

	w, err := NewWatcher(func(events []Event) {
		mu.Lock()
		got = append(got, events...)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(dir))
	go w.Run()

	require.NoError(t, os.Remove(path))

	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("flush never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, EventDeleted, got[0].Kind)
	assert.Equal(t, path, got[0].Path)
}
