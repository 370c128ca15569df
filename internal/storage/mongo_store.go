package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one Mongo document per store document:
//
//	{ _id: "<path>", parent: "<collection path>", data: { ... } }
//
// Merge-writes become $set/$unset on dotted paths under data, so field
// names must not contain dots.
type MongoStore struct {
	subscriptions

	client *mongo.Client
	col    *mongo.Collection
}

// MongoOptions configures NewMongoStore.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	TLS        bool
}

func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.TLS {
		clientOpts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	name := opts.Collection
	if name == "" {
		name = "documents"
	}
	col := client.Database(opts.Database).Collection(name)

	// Best-effort index for collection listing.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "parent", Value: 1}},
	})

	return &MongoStore{client: client, col: col}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoDocument struct {
	ID     string `bson:"_id"`
	Parent string `bson:"parent"`
	Data   bson.M `bson:"data"`
}

func (d mongoDocument) snapshot() Snapshot {
	data, _ := normalizeBSON(d.Data).(map[string]any)
	if data == nil {
		data = map[string]any{}
	}
	return Snapshot{Path: d.ID, Exists: true, Data: data}
}

func (s *MongoStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if !IsDocumentPath(path) {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	var doc mongoDocument
	err := s.col.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Missing(path), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("mongo get %s: %w", path, err)
	}
	return doc.snapshot(), nil
}

func (s *MongoStore) Set(ctx context.Context, path string, fields ...Field) error {
	if !IsDocumentPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	set := bson.M{"parent": Parent(path)}
	unset := bson.M{}
	for _, f := range fields {
		if len(f.Path) == 0 {
			continue
		}
		key := "data." + strings.Join(f.Path, ".")
		if IsDelete(f.Value) {
			unset[key] = ""
			continue
		}
		set[key] = f.Value
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	before := Missing(path)
	var prev mongoDocument
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": path}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)).Decode(&prev)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return fmt.Errorf("mongo set %s: %w", path, err)
	default:
		before = prev.snapshot()
	}

	if !s.watched() {
		return nil
	}
	after, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	s.notify(ctx, []pendingWrite{{path: path, before: before, after: after}})
	return nil
}

func (s *MongoStore) ListIDs(ctx context.Context, collection string) ([]string, error) {
	if !IsCollectionPath(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}
	cur, err := s.col.Find(ctx, bson.M{"parent": collection}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("mongo list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	ids := make([]string, 0)
	for cur.Next(ctx) {
		var d struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		ids = append(ids, ID(d.ID))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MongoStore) DeleteRecursive(ctx context.Context, path string) error {
	if !IsDocumentPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	filter := bson.M{"_id": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(path) + "(/|$)"}}

	var removed []pendingWrite
	if s.watched() {
		cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return fmt.Errorf("mongo find below %s: %w", path, err)
		}
		for cur.Next(ctx) {
			var d mongoDocument
			if err := cur.Decode(&d); err != nil {
				cur.Close(ctx)
				return err
			}
			removed = append(removed, pendingWrite{path: d.ID, before: d.snapshot(), after: Missing(d.ID)})
		}
		err = cur.Err()
		cur.Close(ctx)
		if err != nil {
			return err
		}
	}

	if _, err := s.col.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("mongo delete below %s: %w", path, err)
	}
	s.notify(ctx, removed)
	return nil
}

// normalizeBSON turns decoded BSON values into the plain Go shapes the
// other backends produce: map[string]any, []any, int64 and time.Time.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case int32:
		return int64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}
