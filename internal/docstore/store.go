// Package docstore defines the document store contract the repositories are
// written against. Backends live under internal/infra.
package docstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidPath      = errors.New("invalid document path")
)

// Document is a stored document together with its path.
type Document struct {
	Path string
	Data map[string]any
}

// ID returns the last segment of the document path.
func (d Document) ID() string {
	_, id := Split(d.Path)
	return id
}

// Snapshot is the state of a document delivered to a live subscription.
type Snapshot struct {
	Path   string
	Data   map[string]any
	Exists bool
}

// Reader reads single documents.
type Reader interface {
	Get(ctx context.Context, path string) (map[string]any, error)
}

// Writer mutates single documents. Field names are top-level keys.
type Writer interface {
	// Set creates or replaces the whole document.
	Set(ctx context.Context, path string, data map[string]any) error
	// Update merges fields into an existing document; ErrNotFound if it is missing.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Increment atomically adds delta to a numeric field, creating the
	// document and the field when they are missing.
	Increment(ctx context.Context, path, field string, delta int64) error
	Delete(ctx context.Context, path string) error
}

// Tx is the view of the store available to repositories, both inside and
// outside a transaction.
type Tx interface {
	Reader
	Writer
}

// Lister returns every document of a collection ordered by path.
type Lister interface {
	List(ctx context.Context, collection string) ([]Document, error)
}

// Subscriber streams changes of one document. Subscribe delivers the current
// state first, then one snapshot per change, and blocks until ctx is done or
// the backend fails.
type Subscriber interface {
	Subscribe(ctx context.Context, path string, fn func(Snapshot)) error
}

// Transactor runs fn atomically: either every write made through tx is
// applied or none is.
type Transactor interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Store is the full document store contract.
type Store interface {
	Tx
	Lister
	Subscriber
	Transactor
}
