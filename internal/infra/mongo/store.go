// Package mongo implements the document store on a single MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
)

const (
	collectionName = "documents"
	// Unauthorized
	codeUnauthorized = 13
)

type document struct {
	Path       string    `bson:"_id"`
	Collection string    `bson:"collection"`
	Data       bson.M    `bson:"data"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

// Store keeps every document under its full path as _id.
type Store struct {
	client *mongo.Client
	col    *mongo.Collection
	logger *zap.Logger
}

func NewStore(client *mongo.Client, database string, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		col:    client.Database(database).Collection(collectionName),
		logger: logger,
	}
}

// EnsureIndexes creates the collection index used by List.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "collection", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create collection index: %w", mapError(err))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path string) (map[string]any, error) {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	var doc document
	err := s.col.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", path, mapError(err))
	}

	return toMap(doc.Data), nil
}

func (s *Store) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	if err := docstore.ValidateCollectionPath(collection); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{"collection": collection}, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, mapError(err))
	}
	defer cursor.Close(ctx)

	var raw []document
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, mapError(err))
	}

	docs := make([]docstore.Document, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, docstore.Document{Path: d.Path, Data: toMap(d.Data)})
	}

	return docs, nil
}

func (s *Store) Set(ctx context.Context, path string, data map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}

	collection, _ := docstore.Split(path)
	doc := document{
		Path:       path,
		Collection: collection,
		Data:       bson.M(data),
		UpdatedAt:  time.Now().UTC(),
	}

	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": path}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set %s: %w", path, mapError(err))
	}

	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set["data."+k] = v
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": path}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s: %w", path, mapError(err))
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}

	return nil
}

func (s *Store) Increment(ctx context.Context, path, field string, delta int64) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	collection, _ := docstore.Split(path)
	update := bson.M{
		"$inc":         bson.M{"data." + field: delta},
		"$set":         bson.M{"updatedAt": time.Now().UTC()},
		"$setOnInsert": bson.M{"collection": collection},
	}

	_, err := s.col.UpdateOne(ctx, bson.M{"_id": path}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("increment %s.%s: %w", path, field, mapError(err))
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": path}); err != nil {
		return fmt.Errorf("delete %s: %w", path, mapError(err))
	}

	return nil
}

// RunTransaction runs fn inside a session transaction. Operations made with
// the ctx handed to fn join the transaction.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", mapError(err))
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		return nil, fn(sc, s)
	})
	return err
}

// Subscribe opens a change stream filtered on the document path.
func (s *Store) Subscribe(ctx context.Context, path string, fn func(docstore.Snapshot)) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: path}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := s.col.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, mapError(err))
	}
	defer stream.Close(context.WithoutCancel(ctx))

	data, err := s.Get(ctx, path)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		fn(docstore.Snapshot{Path: path})
	case err != nil:
		return err
	default:
		fn(docstore.Snapshot{Path: path, Data: data, Exists: true})
	}

	for stream.Next(ctx) {
		var ev struct {
			OperationType string    `bson:"operationType"`
			FullDocument  *document `bson:"fullDocument"`
		}
		if err := stream.Decode(&ev); err != nil {
			s.logger.Warn("skip undecodable change event", zap.String("path", path), zap.Error(err))
			continue
		}

		if ev.OperationType == "delete" || ev.FullDocument == nil {
			fn(docstore.Snapshot{Path: path})
			continue
		}
		fn(docstore.Snapshot{Path: path, Data: toMap(ev.FullDocument.Data), Exists: true})
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("change stream %s: %w", path, mapError(err))
	}
	return nil
}

func toMap(m bson.M) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

// normalize turns nested bson containers into plain maps and slices.
func normalize(v any) any {
	switch x := v.(type) {
	case bson.M:
		return toMap(x)
	case bson.D:
		m := make(bson.M, len(x))
		for _, e := range x {
			m[e.Key] = e.Value
		}
		return toMap(m)
	case bson.A:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalize(x[i])
		}
		return out
	default:
		return v
	}
}

func mapError(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeUnauthorized) {
		return fmt.Errorf("%w: %v", docstore.ErrPermissionDenied, err)
	}
	return err
}
