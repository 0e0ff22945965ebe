package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
)

const notifyChannel = "document_changes"

// insufficient_privilege
const codeInsufficientPrivilege = "42501"

//go:embed schema.sql
var schema string

// Migrate creates the documents table and its change trigger.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Store keeps every document as a JSONB row keyed by its path.
type Store struct {
	queries
	pool       *pgxpool.Pool
	transactor *Transactor
	listener   *listener
	logger     *zap.Logger
}

func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{
		queries:    queries{db: pool},
		pool:       pool,
		transactor: NewTransactor(pool),
		listener:   newListener(poolListen(pool, logger), logger),
		logger:     logger,
	}
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	if err := docstore.ValidateCollectionPath(collection); err != nil {
		return nil, err
	}

	query := `
		SELECT path, data
		FROM documents
		WHERE collection = $1
		ORDER BY path
	`

	rows, err := s.pool.Query(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, mapError(err))
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var d docstore.Document
		if err := rows.Scan(&d.Path, &d.Data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, mapError(err))
	}

	return docs, nil
}

// RunTransaction runs fn in a read-committed transaction. Reads inside the
// transaction lock the rows they return.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.transactor.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &queries{db: tx, forUpdate: true})
	})
}

// Subscribe re-reads the document whenever its path is notified on the
// change channel. Every subscription of the store shares one listening
// connection.
func (s *Store) Subscribe(ctx context.Context, path string, fn func(docstore.Snapshot)) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	return s.listener.subscribe(ctx, path, func(ctx context.Context) error {
		return s.emit(ctx, path, fn)
	})
}

func (s *Store) emit(ctx context.Context, path string, fn func(docstore.Snapshot)) error {
	data, err := s.Get(ctx, path)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		fn(docstore.Snapshot{Path: path})
	case err != nil:
		return err
	default:
		fn(docstore.Snapshot{Path: path, Data: data, Exists: true})
	}
	return nil
}

// queries implements docstore.Tx over the pool or over a pgx.Tx.
type queries struct {
	db        DBTX
	forUpdate bool
}

func (q *queries) Get(ctx context.Context, path string) (map[string]any, error) {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	query := "SELECT data FROM documents WHERE path = $1"
	if q.forUpdate {
		query += " FOR UPDATE"
	}

	var data map[string]any
	err := q.db.QueryRow(ctx, query, path).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", path, mapError(err))
	}

	return data, nil
}

func (q *queries) Set(ctx context.Context, path string, data map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}

	query := `
		INSERT INTO documents (path, collection, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = now()
	`

	collection, _ := docstore.Split(path)
	if _, err := q.db.Exec(ctx, query, path, collection, data); err != nil {
		return fmt.Errorf("set %s: %w", path, mapError(err))
	}

	return nil
}

func (q *queries) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET data = data || $2::jsonb,
		    updated_at = now()
		WHERE path = $1
	`

	tag, err := q.db.Exec(ctx, query, path, fields)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}

	return nil
}

func (q *queries) Increment(ctx context.Context, path, field string, delta int64) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	query := `
		INSERT INTO documents (path, collection, data)
		VALUES ($1, $2, jsonb_build_object($3::text, $4::bigint))
		ON CONFLICT (path) DO UPDATE SET
			data = documents.data || jsonb_build_object(
				$3::text,
				COALESCE((documents.data ->> $3::text)::bigint, 0) + $4::bigint
			),
			updated_at = now()
	`

	collection, _ := docstore.Split(path)
	if _, err := q.db.Exec(ctx, query, path, collection, field, delta); err != nil {
		return fmt.Errorf("increment %s.%s: %w", path, field, mapError(err))
	}

	return nil
}

func (q *queries) Delete(ctx context.Context, path string) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	if _, err := q.db.Exec(ctx, "DELETE FROM documents WHERE path = $1", path); err != nil {
		return fmt.Errorf("delete %s: %w", path, mapError(err))
	}

	return nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeInsufficientPrivilege {
		return fmt.Errorf("%w: %s", docstore.ErrPermissionDenied, pgErr.Message)
	}
	return err
}
