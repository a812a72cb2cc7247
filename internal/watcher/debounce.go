package watcher

import (
	"sync"
	"time"
)

// EventType classifies a file system change.
type EventType string

const (
	EventCreate EventType = "create"
	EventModify EventType = "modify"
	EventDelete EventType = "delete"
	EventRename EventType = "rename"
)

// Event represents a single file system change.
type Event struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Importable reports whether the file still exists after the change.
func (e Event) Importable() bool {
	return e.Type == EventCreate || e.Type == EventModify
}

// maxWaitFactor bounds how long a burst may keep extending, as a multiple
// of the quiet window.
const maxWaitFactor = 10

// Debouncer treats the snapshot directory as one unit. Events for any file
// extend the current burst; once the directory has been quiet for the
// window, a single event is emitted for the whole burst:
//
//	the newest create/modify whose file was not removed later in the burst,
//	otherwise the newest event (so deletes are still reported).
//
// A burst never extends past maxWaitFactor windows, so a file written
// continuously is still picked up. Safe for concurrent use.
type Debouncer struct {
	window  time.Duration
	maxWait time.Duration
	emit    func(Event)

	mu      sync.Mutex
	timer   *time.Timer
	started time.Time
	seq     uint64
	pending map[string]pendingEvent
	stopped bool
}

type pendingEvent struct {
	Event
	seq uint64
}

// NewDebouncer creates a Debouncer with the given quiet window.
func NewDebouncer(window time.Duration, emit func(Event)) *Debouncer {
	return &Debouncer{
		window:  window,
		maxWait: maxWaitFactor * window,
		emit:    emit,
		pending: make(map[string]pendingEvent),
	}
}

// Feed adds e to the current burst and pushes the settle time out, up to
// the burst's deadline.
func (d *Debouncer) Feed(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	now := time.Now()
	if len(d.pending) == 0 {
		d.started = now
	}
	d.seq++
	d.pending[e.Path] = pendingEvent{Event: e, seq: d.seq}

	wait := d.window
	if left := d.maxWait - now.Sub(d.started); left < wait {
		wait = max(left, 0)
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(wait, d.fire)
		return
	}
	d.timer.Reset(wait)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	ev, ok := d.take()
	d.mu.Unlock()
	if ok {
		d.emit(ev)
	}
}

// take picks the burst's representative event and starts a new burst.
// Callers hold d.mu.
func (d *Debouncer) take() (Event, bool) {
	if len(d.pending) == 0 {
		return Event{}, false
	}

	var newest, newestImportable pendingEvent
	for _, p := range d.pending {
		if p.seq > newest.seq {
			newest = p
		}
		if p.Importable() && p.seq > newestImportable.seq {
			newestImportable = p
		}
	}
	d.pending = make(map[string]pendingEvent)

	if newestImportable.seq > 0 {
		return newestImportable.Event, true
	}
	return newest.Event, true
}

// Stop cancels the pending timer and immediately emits the current burst.
// After Stop returns, subsequent Feed calls are no-ops.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	ev, ok := d.take()
	d.mu.Unlock()

	// emit may call back into the debouncer.
	if ok {
		d.emit(ev)
	}
}
