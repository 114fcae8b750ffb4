package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitChange(t *testing.T, w *Watcher) Change {
	t.Helper()
	select {
	case c, ok := <-w.Changes():
		require.True(t, ok, "changes channel closed")
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change")
	}
	return Change{}
}

func TestBurstIsCoalesced(t *testing.T) {
	dir := t.TempDir()
	w, err := New(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Watch(dir))

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}

	c := waitChange(t, w)
	assert.Equal(t, dir, c.Dir)

	select {
	case extra := <-w.Changes():
		t.Fatalf("burst produced a second change: %+v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchReplacesSet(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	w, err := New(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Watch(first))
	require.NoError(t, w.Watch(second))

	require.NoError(t, os.WriteFile(filepath.Join(first, "ignored"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "seen"), nil, 0644))

	assert.Equal(t, second, waitChange(t, w).Dir)
}

func TestWatchMissingDirectory(t *testing.T) {
	w, err := New(time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	ok := t.TempDir()
	err = w.Watch(ok, filepath.Join(ok, "missing"))
	assert.Error(t, err)
	assert.True(t, w.dirs[ok])
}

func TestStopClosesChanges(t *testing.T) {
	w, err := New(time.Millisecond, nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()

	_, ok := <-w.Changes()
	assert.False(t, ok)
}
