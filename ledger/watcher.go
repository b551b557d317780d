package ledger

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/logger"
)

// Watcher reports changes to a ledger file made by anyone other than the
// runner. It does not lock the file; it only makes a second writer visible.
type Watcher struct {
	path           string
	watcher        *fsnotify.Watcher
	logger         *zap.SugaredLogger
	debouncePeriod time.Duration
	ownWriteWindow time.Duration

	mu            sync.Mutex
	callbacks     []func(path string)
	debounceTimer *time.Timer
	ownWriteUntil time.Time
	started       bool
	done          chan struct{}
}

// NewWatcher watches the directory holding path. The directory is watched
// rather than the file because every persist renames a new file into place.
func NewWatcher(path string, log *zap.SugaredLogger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Watcher{
		path:           abs,
		watcher:        fw,
		logger:         log,
		debouncePeriod: 300 * time.Millisecond,
		ownWriteWindow: time.Second,
		done:           make(chan struct{}),
	}, nil
}

// OnForeignWrite registers a callback for changes the runner did not make
func (w *Watcher) OnForeignWrite(callback func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// MarkOwnWrite flags changes in the next moment as coming from us.
// Pass it as ledger Options.BeforeWrite.
func (w *Watcher) MarkOwnWrite() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ownWriteUntil = time.Now().Add(w.ownWriteWindow)
}

func (w *Watcher) isOwnWrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().Before(w.ownWriteUntil)
}

// Start begins watching in a background goroutine; Close stops it
func (w *Watcher) Start() {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.isOwnWrite() {
				w.logger.Debugw("Ledger watcher ignoring own write", logger.FieldFile, event.Name)
				continue
			}
			w.scheduleNotify()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Ledger watcher error", logger.FieldError, err)
		}
	}
}

// scheduleNotify debounces bursts of events from a single foreign save
func (w *Watcher) scheduleNotify() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, w.notify)
}

func (w *Watcher) notify() {
	w.mu.Lock()
	callbacks := make([]func(string), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Warnw("Ledger modified by another writer", logger.FieldLedger, w.path)
	for _, cb := range callbacks {
		cb(w.path)
	}
}

// Close stops watching and waits for the loop to exit
func (w *Watcher) Close() error {
	err := w.watcher.Close()

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	started := w.started
	w.mu.Unlock()

	if started {
		<-w.done
	}
	return err
}
