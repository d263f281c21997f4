package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/phisch84/domain-repository/internal/logger"
)

// DefaultSettle is how long a Watcher waits for further changes before it
// reports a burst of changes once.
const DefaultSettle = 200 * time.Millisecond

// Watcher reports changes to the record files of a directory.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	settle   time.Duration
	onChange func()

	closeOnce sync.Once
}

// NewWatcher watches dir and calls onChange after record files changed.
// Bursts of changes within settle are reported once; a settle of 0 uses
// DefaultSettle.
func NewWatcher(dir string, settle time.Duration, onChange func()) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	return &Watcher{
		watcher:  fw,
		dir:      dir,
		settle:   settle,
		onChange: onChange,
	}, nil
}

// Run delivers change notifications until ctx is done or the watcher is
// closed. onChange is called from Run's goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	// Timers stopped or reset never deliver a stale tick (Go 1.23+).
	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !isRecordEvent(ev) {
				continue
			}
			logger.Debug("watcher: %s %s", ev.Op, filepath.Base(ev.Name))
			timer.Reset(w.settle)

		case <-timer.C:
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher %s: %v", w.dir, err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.watcher.Close() })
	return err
}

// isRecordEvent reports whether ev changed a record file.
func isRecordEvent(ev fsnotify.Event) bool {
	if _, ok := recordID(filepath.Base(ev.Name)); !ok {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
