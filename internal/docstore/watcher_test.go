package docstore

import (
	"context"
	"errors"
	"testing"
)

type scriptedSubscriber struct {
	errs  []error
	calls int
}

func (s *scriptedSubscriber) Subscribe(_ context.Context, path string, fn func(Snapshot)) error {
	i := s.calls
	s.calls++
	fn(Snapshot{Path: path, Exists: true})
	if i < len(s.errs) {
		return s.errs[i]
	}
	return errors.New("unexpected call")
}

func TestWatcherRetriesOnceOnPermissionDenied(t *testing.T) {
	sub := &scriptedSubscriber{errs: []error{ErrPermissionDenied, ErrPermissionDenied}}
	refreshed := 0

	w := NewWatcher(sub, "user_powerups/u1", WithRefresh(func(context.Context) error {
		refreshed++
		return nil
	}))

	snapshots := 0
	err := w.Run(context.Background(), func(Snapshot) { snapshots++ })

	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}
	if sub.calls != 2 {
		t.Errorf("Expected 2 subscribe calls, got %d", sub.calls)
	}
	if refreshed != 1 {
		t.Errorf("Expected 1 refresh, got %d", refreshed)
	}
	if snapshots != 2 {
		t.Errorf("Expected 2 snapshots, got %d", snapshots)
	}
	if w.State() != WatchFailed {
		t.Errorf("Expected state failed, got %s", w.State())
	}
}

func TestWatcherDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	sub := &scriptedSubscriber{errs: []error{boom}}

	w := NewWatcher(sub, "users/u1", WithRefresh(func(context.Context) error {
		t.Error("refresh must not be called")
		return nil
	}))

	if err := w.Run(context.Background(), func(Snapshot) {}); !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped boom, got %v", err)
	}
	if sub.calls != 1 {
		t.Errorf("Expected a single subscribe call, got %d", sub.calls)
	}
}

func TestWatcherStopsWhenRefreshFails(t *testing.T) {
	sub := &scriptedSubscriber{errs: []error{ErrPermissionDenied}}
	refreshErr := errors.New("token expired")

	w := NewWatcher(sub, "users/u1", WithRefresh(func(context.Context) error { return refreshErr }))

	if err := w.Run(context.Background(), func(Snapshot) {}); !errors.Is(err, refreshErr) {
		t.Fatalf("Expected refresh error, got %v", err)
	}
	if w.State() != WatchFailed {
		t.Errorf("Expected state failed, got %s", w.State())
	}
}

type blockingSubscriber struct{}

func (blockingSubscriber) Subscribe(ctx context.Context, path string, fn func(Snapshot)) error {
	fn(Snapshot{Path: path})
	<-ctx.Done()
	return ctx.Err()
}

func TestWatcherReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(blockingSubscriber{}, "users/u1")

	err := w.Run(ctx, func(Snapshot) { cancel() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if w.State() != WatchIdle {
		t.Errorf("Expected state idle, got %s", w.State())
	}
}
