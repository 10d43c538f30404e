package fsstore

import (
	"context"
	"testing"
	"time"

	"github.com/marlkit/marl/pkg/core"
)

func waitForEvent(t *testing.T, events <-chan core.Event) core.Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a store event")
		return core.Event{}
	}
}

func TestWatchSeesNewDocument(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create the collection first so the watcher covers it from the start.
	if _, err := s.Insert(ctx, "people", map[string]any{"name": "Ada"}); err != nil {
		t.Fatal(err)
	}

	events, err := s.Watch(ctx, "people")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	key, err := s.Insert(ctx, "people", map[string]any{"name": "Grace"})
	if err != nil {
		t.Fatal(err)
	}

	e := waitForEvent(t, events)
	if e.Collection != "people" || e.Key != key {
		t.Errorf("event = %+v, want people/%s", e, key)
	}
	if e.Type != core.EventCreate {
		t.Errorf("event type = %s, want CREATE", e.Type)
	}
}

func TestWatchSeesDelete(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key, err := s.Insert(ctx, "people", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatal(err)
	}

	events, err := s.Watch(ctx, "people")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := s.Delete(ctx, "people", key); err != nil {
		t.Fatal(err)
	}

	e := waitForEvent(t, events)
	if e.Type != core.EventDelete || e.Key != key {
		t.Errorf("event = %+v, want DELETE of %s", e, key)
	}
}

func TestWatchFiltersByCollection(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := s.Insert(ctx, "people", map[string]any{"name": "Ada"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, "posts", map[string]any{"title": "hello"}); err != nil {
		t.Fatal(err)
	}

	events, err := s.Watch(ctx, "people")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if _, err := s.Insert(ctx, "posts", map[string]any{"title": "noise"}); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-events:
		t.Errorf("unexpected event for another collection: %+v", e)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchChannelClosesOnCancel(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := s.Watch(ctx, "")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			// Drain any in-flight event; the channel must close eventually.
			for range events {
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatal("event channel did not close after cancel")
	}
}
