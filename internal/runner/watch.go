package runner

import (
	"context"
	"sync"

	"testrig/internal/resource"
)

// watch follows reservation changes of the loaded resource file.
type watch struct {
	watcher *resource.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func (r *Runner) startWatch(path, owner string) error {
	w := resource.NewWatcher(path, 0)
	events := make(chan resource.ReservationEvent, 8)
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx, events); err != nil {
		cancel()
		return err
	}

	rw := &watch{watcher: w, cancel: cancel}
	rw.wg.Add(1)
	go func() {
		defer rw.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				r.onReservation(ev, owner)
			}
		}
	}()

	r.mu.Lock()
	r.watch = rw
	r.mu.Unlock()
	return nil
}

func (r *Runner) onReservation(ev resource.ReservationEvent, owner string) {
	switch {
	case ev.Err != nil:
		r.logger.Warn("Cannot read resource reservation", "file", ev.File, "error", ev.Err)
	case ev.Reserved == nil:
		r.logger.Info("Resource file released", "file", ev.File)
	case ev.Reserved.Owner != owner:
		r.logger.Warn("Resource file reserved by another owner",
			"file", ev.File, "owner", ev.Reserved.Owner, "since", ev.Reserved.Timestamp)
	default:
		r.logger.Info("Resource file reserved", "file", ev.File, "owner", ev.Reserved.Owner)
	}
}

func (r *Runner) stopWatch() {
	r.mu.Lock()
	rw := r.watch
	r.watch = nil
	r.mu.Unlock()

	if rw == nil {
		return
	}
	rw.cancel()
	_ = rw.watcher.Stop()
	rw.wg.Wait()
}
