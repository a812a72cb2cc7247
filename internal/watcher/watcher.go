// Package watcher watches the snapshot directory and hands settled
// snapshot files to an import callback.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/highbeam/pulseboard/internal/snapshot"
)

// DefaultWindow is how long a file must stay quiet before it is imported.
// Exports are usually written in several chunks.
const DefaultWindow = 500 * time.Millisecond

// Handler receives one event per settled burst of directory changes.
type Handler func(Event)

// Watcher monitors a snapshot directory, filters ignored and non-snapshot
// paths, debounces bursts of changes and passes the settled result to a
// Handler.
type Watcher struct {
	dir    string
	window time.Duration
	filter *Filter
	handle Handler
	log    logrus.FieldLogger

	fsw       *fsnotify.Watcher
	debouncer *Debouncer
}

// New creates a Watcher for dir. ignore extends the default ignore patterns.
func New(dir string, ignore []string, handle Handler, log logrus.FieldLogger) *Watcher {
	return &Watcher{
		dir:    dir,
		window: DefaultWindow,
		filter: NewFilter(ignore),
		handle: handle,
		log:    log,
	}
}

// SetWindow overrides the debounce window. It must be called before Start.
func (w *Watcher) SetWindow(d time.Duration) {
	w.window = d
}

// Start begins watching. It blocks until ctx is cancelled.
// Call Stop() for ordered teardown.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.debouncer = NewDebouncer(w.window, w.handle)

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.WithField("dir", w.dir).Info("watching snapshot directory")

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("fsnotify error")
		}
	}
}

// Stop drains the debouncer (emitting pending events) and closes fsnotify.
func (w *Watcher) Stop() {
	if w.debouncer != nil {
		w.debouncer.Stop()
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !w.accepts(ev.Name) {
		return
	}

	eventType := mapEventType(ev.Op)
	if eventType == "" {
		return // chmod-only
	}

	w.debouncer.Feed(Event{
		Path:      ev.Name,
		Type:      eventType,
		Timestamp: time.Now(),
	})
}

// accepts reports whether path is a snapshot file that is not ignored.
// Patterns apply below the watched directory only.
func (w *Watcher) accepts(path string) bool {
	if !snapshot.IsSnapshotFile(path) {
		return false
	}
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return !w.filter.ShouldIgnore(rel)
}

// mapEventType converts fsnotify.Op to an event type.
func mapEventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Remove):
		return EventDelete
	case op.Has(fsnotify.Rename):
		return EventRename
	case op.Has(fsnotify.Write):
		return EventModify
	default:
		return ""
	}
}
