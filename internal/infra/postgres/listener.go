package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const unlistenTimeout = 5 * time.Second

// listenFunc holds one LISTEN until ctx ends or the connection fails. It
// calls ready once notifications are being received and notify for every
// payload.
type listenFunc func(ctx context.Context, ready func(), notify func(path string)) error

// poolListen listens on the change channel with one connection taken from
// the pool for as long as the listen runs.
func poolListen(pool *pgxpool.Pool, logger *zap.Logger) listenFunc {
	return func(ctx context.Context, ready func(), notify func(path string)) error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire listener: %w", mapError(err))
		}
		defer conn.Release()

		if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
			return fmt.Errorf("listen: %w", mapError(err))
		}
		defer func() {
			uctx, cancel := context.WithTimeout(context.Background(), unlistenTimeout)
			defer cancel()
			if _, err := conn.Exec(uctx, "UNLISTEN "+notifyChannel); err != nil {
				logger.Warn("unlisten failed, dropping connection", zap.Error(err))
				_ = conn.Conn().Close(uctx)
			}
		}()

		ready()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("wait for notification: %w", mapError(err))
			}
			notify(n.Payload)
		}
	}
}

type subscription struct {
	wake chan struct{}
	fail chan error
}

// listenSession is one run of the shared LISTEN and the subscriptions it serves.
type listenSession struct {
	cancel context.CancelFunc
	ready  chan struct{}
	subs   map[string]map[int]*subscription
	count  int
}

// listener fans the notifications of a single LISTEN out to every
// subscription of a store. The LISTEN starts with the first subscription
// and stops when the last one ends.
type listener struct {
	listen listenFunc
	logger *zap.Logger

	mu     sync.Mutex
	cur    *listenSession
	nextID int
}

func newListener(listen listenFunc, logger *zap.Logger) *listener {
	return &listener{listen: listen, logger: logger}
}

// subscribe calls emit once the LISTEN is active and again for every
// notification of path. It returns when ctx ends or the LISTEN fails.
func (l *listener) subscribe(ctx context.Context, path string, emit func(ctx context.Context) error) error {
	sess, id, sub := l.register(path)
	defer l.unregister(sess, path, id)

	select {
	case <-sess.ready:
	case err := <-sub.fail:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := emit(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.fail:
			return err
		case <-sub.wake:
			if err := emit(ctx); err != nil {
				return err
			}
		}
	}
}

func (l *listener) register(path string) (*listenSession, int, *subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cur == nil {
		ctx, cancel := context.WithCancel(context.Background())
		l.cur = &listenSession{
			cancel: cancel,
			ready:  make(chan struct{}),
			subs:   make(map[string]map[int]*subscription),
		}
		go l.run(ctx, l.cur)
	}

	sess := l.cur
	id := l.nextID
	l.nextID++
	sub := &subscription{
		wake: make(chan struct{}, 1),
		fail: make(chan error, 1),
	}
	if sess.subs[path] == nil {
		sess.subs[path] = make(map[int]*subscription)
	}
	sess.subs[path][id] = sub
	sess.count++

	return sess, id, sub
}

func (l *listener) unregister(sess *listenSession, path string, id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := sess.subs[path][id]; !ok {
		return
	}
	delete(sess.subs[path], id)
	if len(sess.subs[path]) == 0 {
		delete(sess.subs, path)
	}
	sess.count--

	if sess.count == 0 && l.cur == sess {
		sess.cancel()
		l.cur = nil
	}
}

func (l *listener) run(ctx context.Context, sess *listenSession) {
	var once sync.Once
	ready := func() { once.Do(func() { close(sess.ready) }) }

	err := l.listen(ctx, ready, func(path string) { l.notify(sess, path) })
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = errors.New("listener stopped")
	}
	l.logger.Warn("document listener failed", zap.Error(err))
	l.fail(sess, err)
}

// notify wakes the subscriptions of path. Wake-ups coalesce: a subscription
// that is behind reads the latest state once.
func (l *listener) notify(sess *listenSession, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, sub := range sess.subs[path] {
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

// fail ends every subscription of sess with err. The next subscription
// starts a new LISTEN.
func (l *listener) fail(sess *listenSession, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cur == sess {
		l.cur = nil
	}
	sess.cancel()
	for _, subs := range sess.subs {
		for _, sub := range subs {
			select {
			case sub.fail <- err:
			default:
			}
		}
	}
}
