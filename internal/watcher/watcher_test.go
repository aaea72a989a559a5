package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFiresOnCreate(t *testing.T) {
	dir := t.TempDir()
	fired := make(chan struct{}, 1)

	w := New([]string{dir}, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, nil).WithDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Give the watcher a moment to register before creating the node
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "card0"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire on create event")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch returned %v, want context.Canceled", err)
	}
}

func TestWatchDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	calls := make(chan int, 100)

	w := New([]string{dir}, func() { calls <- 1 }, nil).WithDebounce(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "renderD12"+string(rune('0'+i)))
		if err := os.WriteFile(name, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	// The burst should collapse into a single callback
	time.Sleep(400 * time.Millisecond)
	if got := len(calls); got != 1 {
		t.Errorf("callback fired %d times for one burst, want 1", got)
	}
}

func TestWatchNothingToWatch(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing")}, func() {}, nil)
	err := w.Watch(context.Background())
	if !errors.Is(err, ErrNothingToWatch) {
		t.Errorf("err = %v, want ErrNothingToWatch", err)
	}
}
