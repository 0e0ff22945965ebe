package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// WatchState is the lifecycle state of a Watcher.
type WatchState int32

const (
	WatchIdle WatchState = iota
	WatchSubscribed
	WatchRetrying
	WatchFailed
)

func (s WatchState) String() string {
	switch s {
	case WatchIdle:
		return "idle"
	case WatchSubscribed:
		return "subscribed"
	case WatchRetrying:
		return "retrying"
	case WatchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RefreshFunc renews whatever credentials the subscription runs under.
type RefreshFunc func(ctx context.Context) error

// Watcher keeps a live subscription to one document. When the backend
// rejects the subscription with ErrPermissionDenied it refreshes credentials
// and resubscribes, at most MaxRetries times over its lifetime.
type Watcher struct {
	sub        Subscriber
	path       string
	refresh    RefreshFunc
	maxRetries int
	logger     *zap.Logger
	state      atomic.Int32
}

type WatcherOption func(*Watcher)

func WithRefresh(fn RefreshFunc) WatcherOption {
	return func(w *Watcher) { w.refresh = fn }
}

func WithMaxRetries(n int) WatcherOption {
	return func(w *Watcher) { w.maxRetries = n }
}

func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

func NewWatcher(sub Subscriber, path string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		sub:        sub,
		path:       path,
		maxRetries: 1,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current lifecycle state.
func (w *Watcher) State() WatchState {
	return WatchState(w.state.Load())
}

// Run subscribes and calls fn for every snapshot until ctx is done or the
// subscription fails for good.
func (w *Watcher) Run(ctx context.Context, fn func(Snapshot)) error {
	retries := 0
	for {
		w.setState(WatchSubscribed)
		err := w.sub.Subscribe(ctx, w.path, fn)
		if ctx.Err() != nil {
			w.setState(WatchIdle)
			return ctx.Err()
		}

		if !errors.Is(err, ErrPermissionDenied) || retries >= w.maxRetries {
			w.setState(WatchFailed)
			w.logger.Error("live subscription failed",
				zap.String("path", w.path),
				zap.Int("retries", retries),
				zap.Error(err),
			)
			if err == nil {
				err = errors.New("subscription closed")
			}
			return fmt.Errorf("watch %s: %w", w.path, err)
		}

		retries++
		w.setState(WatchRetrying)
		w.logger.Warn("subscription denied, refreshing credentials",
			zap.String("path", w.path),
			zap.Int("attempt", retries),
		)

		if w.refresh != nil {
			if rerr := w.refresh(ctx); rerr != nil {
				w.setState(WatchFailed)
				return fmt.Errorf("refresh credentials for %s: %w", w.path, rerr)
			}
		}
	}
}

func (w *Watcher) setState(s WatchState) {
	w.state.Store(int32(s))
}
