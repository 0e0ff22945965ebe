// Package memory is an in-process document store used for local runs and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
)

// Store keeps documents in a map. Transactions hold the write lock for their
// whole duration, so fn passed to RunTransaction must only use the given tx.
type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string]any

	subMu   sync.Mutex
	subs    map[string]map[int]chan struct{}
	nextSub int
}

func NewStore() *Store {
	return &Store{
		docs: make(map[string]map[string]any),
		subs: make(map[string]map[int]chan struct{}),
	}
}

func (s *Store) Get(_ context.Context, path string) (map[string]any, error) {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[path]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return cloneMap(d), nil
}

func (s *Store) List(_ context.Context, collection string) ([]docstore.Document, error) {
	if err := docstore.ValidateCollectionPath(collection); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []docstore.Document
	for path, d := range s.docs {
		if c, _ := docstore.Split(path); c == collection {
			out = append(out, docstore.Document{Path: path, Data: cloneMap(d)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out, nil
}

func (s *Store) Set(_ context.Context, path string, data map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.docs[path] = cloneMap(data)
	s.mu.Unlock()

	s.notify(path)
	return nil
}

func (s *Store) Update(_ context.Context, path string, fields map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	s.mu.Lock()
	d, ok := s.docs[path]
	if !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	for k, v := range fields {
		d[k] = cloneValue(v)
	}
	s.mu.Unlock()

	s.notify(path)
	return nil
}

func (s *Store) Increment(_ context.Context, path, field string, delta int64) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	s.mu.Lock()
	d, ok := s.docs[path]
	if !ok {
		d = make(map[string]any)
		s.docs[path] = d
	}
	cur, _ := docstore.Int64(d[field])
	d[field] = cur + delta
	s.mu.Unlock()

	s.notify(path)
	return nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.docs, path)
	s.mu.Unlock()

	s.notify(path)
	return nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	s.mu.Lock()

	tx := &memTx{
		docs:    s.docs,
		staged:  make(map[string]map[string]any),
		deleted: make(map[string]bool),
	}
	if err := fn(ctx, tx); err != nil {
		s.mu.Unlock()
		return err
	}

	changed := make([]string, 0, len(tx.staged)+len(tx.deleted))
	for path, d := range tx.staged {
		s.docs[path] = d
		changed = append(changed, path)
	}
	for path := range tx.deleted {
		delete(s.docs, path)
		changed = append(changed, path)
	}
	s.mu.Unlock()

	for _, path := range changed {
		s.notify(path)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, path string, fn func(docstore.Snapshot)) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[path] == nil {
		s.subs[path] = make(map[int]chan struct{})
	}
	s.subs[path][id] = ch
	s.subMu.Unlock()

	defer func() {
		s.subMu.Lock()
		delete(s.subs[path], id)
		if len(s.subs[path]) == 0 {
			delete(s.subs, path)
		}
		s.subMu.Unlock()
	}()

	s.emit(ctx, path, fn)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			s.emit(ctx, path, fn)
		}
	}
}

func (s *Store) emit(ctx context.Context, path string, fn func(docstore.Snapshot)) {
	data, err := s.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		fn(docstore.Snapshot{Path: path})
		return
	}
	fn(docstore.Snapshot{Path: path, Data: data, Exists: true})
}

// notify wakes subscribers of path. Wake-ups coalesce: a subscriber that is
// behind reads the latest state once.
func (s *Store) notify(path string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs[path] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type memTx struct {
	docs    map[string]map[string]any
	staged  map[string]map[string]any
	deleted map[string]bool
}

func (t *memTx) Get(_ context.Context, path string) (map[string]any, error) {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	d, ok := t.current(path)
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return cloneMap(d), nil
}

func (t *memTx) Set(_ context.Context, path string, data map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	t.staged[path] = cloneMap(data)
	delete(t.deleted, path)
	return nil
}

func (t *memTx) Update(_ context.Context, path string, fields map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	d, ok := t.current(path)
	if !ok {
		return docstore.ErrNotFound
	}
	next := cloneMap(d)
	for k, v := range fields {
		next[k] = cloneValue(v)
	}
	t.staged[path] = next
	return nil
}

func (t *memTx) Increment(_ context.Context, path, field string, delta int64) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	d, ok := t.current(path)
	next := make(map[string]any)
	if ok {
		next = cloneMap(d)
	}
	cur, _ := docstore.Int64(next[field])
	next[field] = cur + delta
	t.staged[path] = next
	delete(t.deleted, path)
	return nil
}

func (t *memTx) Delete(_ context.Context, path string) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	delete(t.staged, path)
	t.deleted[path] = true
	return nil
}

func (t *memTx) current(path string) (map[string]any, bool) {
	if t.deleted[path] {
		return nil, false
	}
	if d, ok := t.staged[path]; ok {
		return d, true
	}
	d, ok := t.docs[path]
	return d, ok
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}
