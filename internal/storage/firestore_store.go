package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore through the Firebase
// Admin SDK client, which bypasses the client-side security rules.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (Snapshot, error) {
	ref := s.client.Doc(path)
	if ref == nil {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Missing(path), nil
		}
		return Snapshot{}, fmt.Errorf("firestore get %s: %w", path, err)
	}
	return Snapshot{Path: path, Exists: snap.Exists(), Data: snap.Data()}, nil
}

// Set issues a single Set with Merge on exactly the given field paths, so
// each field is replaced whole while the rest of the document is kept.
func (s *FirestoreStore) Set(ctx context.Context, path string, fields ...Field) error {
	ref := s.client.Doc(path)
	if ref == nil {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if len(fields) == 0 {
		return nil
	}

	paths := make([]firestore.FieldPath, 0, len(fields))
	for _, f := range fields {
		paths = append(paths, firestore.FieldPath(f.Path))
	}
	if _, err := ref.Set(ctx, nest(fields, firestore.Delete), firestore.Merge(paths...)); err != nil {
		return fmt.Errorf("firestore set %s: %w", path, err)
	}
	return nil
}

func (s *FirestoreStore) ListIDs(ctx context.Context, collection string) ([]string, error) {
	col := s.client.Collection(collection)
	if col == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}

	ids := make([]string, 0)
	it := col.DocumentRefs(ctx)
	for {
		ref, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore list %s: %w", collection, err)
		}
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

// DeleteRecursive walks every subcollection below path and deletes the
// documents through a BulkWriter.
func (s *FirestoreStore) DeleteRecursive(ctx context.Context, path string) error {
	ref := s.client.Doc(path)
	if ref == nil {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	bw := s.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	walkErr := s.enqueueDeletes(ctx, bw, ref, &jobs)
	bw.End()
	if walkErr != nil {
		return walkErr
	}

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("firestore delete below %s: %w", path, err)
		}
	}
	return nil
}

func (s *FirestoreStore) enqueueDeletes(ctx context.Context, bw *firestore.BulkWriter, ref *firestore.DocumentRef, jobs *[]*firestore.BulkWriterJob) error {
	cols := ref.Collections(ctx)
	for {
		col, err := cols.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("firestore collections of %s: %w", ref.Path, err)
		}

		docs := col.DocumentRefs(ctx)
		for {
			child, err := docs.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return fmt.Errorf("firestore list %s: %w", col.Path, err)
			}
			if err := s.enqueueDeletes(ctx, bw, child, jobs); err != nil {
				return err
			}
		}
	}

	job, err := bw.Delete(ref)
	if err != nil {
		return fmt.Errorf("firestore enqueue delete %s: %w", ref.Path, err)
	}
	*jobs = append(*jobs, job)
	return nil
}
