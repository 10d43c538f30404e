package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/marlkit/marl/pkg/core"
)

const debounceWindow = 50 * time.Millisecond

var _ core.Watchable = (*Store)(nil)

// Watch emits events for out-of-band document changes under the store
// root. Pass an empty collection to watch every collection. The channel
// closes when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan core.Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch store root: %w", err)
	}
	for _, coll := range s.collections() {
		if collection != "" && coll != collection {
			continue
		}
		if err := watcher.Add(filepath.Join(s.path, coll)); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch collection %s: %w", coll, err)
		}
	}

	events := make(chan core.Event, 16)
	deb := newDebouncer(debounceWindow)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer watcher.Close()
		defer deb.stop()

		for {
			select {
			case <-ctx.Done():
				return nil

			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				s.handleFsEvent(ctx, watcher, ev, collection, deb, events)

			case werr, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if s.config.Logger != nil {
					s.config.Logger.Error("fsnotify error", "error", werr)
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		if s.config.Logger != nil {
			s.config.Logger.Error("watcher panic", "error", err)
		}
	}))

	return events, nil
}

func (s *Store) handleFsEvent(ctx context.Context, watcher *fsnotify.Watcher, ev fsnotify.Event, collection string, deb *debouncer, out chan<- core.Event) {
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, tempFilePrefix) || strings.HasPrefix(base, ".") {
		return
	}

	// A created directory is a new collection: start watching it.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if collection == "" || base == collection {
				_ = watcher.Add(ev.Name)
			}
			return
		}
	}

	if !strings.HasSuffix(base, docExt) {
		return
	}
	coll := filepath.Base(filepath.Dir(ev.Name))
	if collection != "" && coll != collection {
		return
	}

	var etype core.EventType
	switch {
	case ev.Has(fsnotify.Create):
		etype = core.EventCreate
	case ev.Has(fsnotify.Write):
		etype = core.EventModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		etype = core.EventDelete
	default:
		return
	}

	key := strings.TrimSuffix(base, docExt)
	deb.add(core.Event{
		Type:       etype,
		Collection: coll,
		Key:        key,
		Timestamp:  time.Now().Unix(),
	}, func(e core.Event) {
		select {
		case out <- e:
		case <-ctx.Done():
		}
	})
}

// debouncer coalesces bursts of events for the same document, since an
// atomic write shows up as several filesystem events.
type debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	id := e.Collection + "/" + e.Key
	if t, ok := d.timers[id]; ok {
		t.Stop()
	}
	d.timers[id] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, id)
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			emit(e)
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
}
