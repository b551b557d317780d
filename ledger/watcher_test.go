package ledger

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	testfiles "github.com/teranos/callsheet/internal/testing"
)

func startWatcher(t *testing.T, path string) (*Watcher, *atomic.Int32) {
	t.Helper()
	w, err := NewWatcher(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	w.debouncePeriod = 50 * time.Millisecond

	var foreign atomic.Int32
	w.OnForeignWrite(func(string) { foreign.Add(1) })
	w.Start()
	t.Cleanup(func() { w.Close() })
	return w, &foreign
}

func TestWatcherReportsForeignWrite(t *testing.T) {
	path := testfiles.WriteLedger(t, "111\n")
	_, foreign := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("111,called\n"), 0644))

	require.Eventually(t, func() bool { return foreign.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherIgnoresOwnWrite(t *testing.T) {
	path := testfiles.WriteLedger(t, "111\n")
	w, foreign := startWatcher(t, path)

	l := load(t, path, Options{BeforeWrite: w.MarkOwnWrite})
	require.NoError(t, l.MarkCompleteAt(0))

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, foreign.Load())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	path := testfiles.WriteLedger(t, "111\n")
	_, foreign := startWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("x"), 0644))

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, foreign.Load())
}

func TestWatcherCloseWithoutStart(t *testing.T) {
	w, err := NewWatcher(testfiles.WriteLedger(t, "111\n"), nil)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
