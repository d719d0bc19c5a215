package resource

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"testrig/pkg/logging"
)

// ReservationEvent reports the reservation state of a watched resource file
// after it changed on disk.
type ReservationEvent struct {
	File      string
	Reserved  *Reservation
	Err       error
	Timestamp time.Time
}

// Watcher observes a resource file and emits a ReservationEvent whenever its
// reservation changes. Bursts of writes are debounced.
type Watcher struct {
	mu sync.Mutex

	path     string
	debounce time.Duration

	watcher *fsnotify.Watcher
	timer   *time.Timer
	last    *Reservation
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for a resource file.
func NewWatcher(path string, debounce time.Duration) *Watcher {
	if debounce == 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
	}
}

// Start begins watching. The directory is watched rather than the file so
// that editors replacing the file are noticed too.
func (w *Watcher) Start(ctx context.Context, events chan<- ReservationEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}

	// Remember the current state so only changes are reported.
	if r, err := ReadReservation(w.path); err == nil {
		w.last = r
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.processEvents(ctx, fw, w.stopCh, w.doneCh, events)

	logging.Info("ResourceWatcher", "Watching %s for reservation changes", w.path)
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, fw *fsnotify.Watcher, stopCh, doneCh chan struct{}, events chan<- ReservationEvent) {
	defer close(doneCh)
	for {
		select {
		case <-ctx.Done():
			w.cancelTimer()
			return
		case <-stopCh:
			w.cancelTimer()
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(events)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Error("ResourceWatcher", err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) schedule(events chan<- ReservationEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.emit(events) })
}

func (w *Watcher) emit(events chan<- ReservationEvent) {
	r, err := ReadReservation(w.path)

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	if err == nil && sameReservation(w.last, r) {
		w.mu.Unlock()
		return
	}
	if err == nil {
		w.last = r
	}
	w.mu.Unlock()

	ev := ReservationEvent{File: w.path, Reserved: r, Err: err, Timestamp: time.Now()}
	select {
	case events <- ev:
	default:
		logging.Warn("ResourceWatcher", "Event channel full, dropping reservation event for %s", w.path)
	}
}

func (w *Watcher) cancelTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	fw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	<-doneCh
	if err := fw.Close(); err != nil {
		logging.Error("ResourceWatcher", err, "Error closing filesystem watcher")
		return err
	}
	return nil
}

func sameReservation(a, b *Reservation) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
