package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ObjectPurger removes stored files below a prefix.
type ObjectPurger interface {
	PurgePrefix(ctx context.Context, prefix string) (int, error)
}

// GCSPurger deletes Cloud Storage objects in one bucket.
type GCSPurger struct {
	gcs    *gcs.Client
	bucket string
	log    *zap.Logger
}

// NewGCSPurger creates the storage client once at startup.
func NewGCSPurger(ctx context.Context, bucket string, logger *zap.Logger, opts ...option.ClientOption) (*GCSPurger, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("purger: storage client: %w", err)
	}
	return &GCSPurger{gcs: client, bucket: bucket, log: nopIfNil(logger)}, nil
}

func (p *GCSPurger) Close() error {
	return p.gcs.Close()
}

// PurgePrefix deletes every object whose name starts with prefix and returns
// how many were removed. Objects already gone are not errors.
func (p *GCSPurger) PurgePrefix(ctx context.Context, prefix string) (int, error) {
	if strings.Trim(prefix, "/") == "" {
		return 0, errors.New("purger: refusing to purge the whole bucket")
	}
	b := p.gcs.Bucket(p.bucket)
	it := b.Objects(ctx, &gcs.Query{Prefix: prefix})

	deleted := 0
	var errs []error
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("purger: list %s: %w", prefix, err)
		}
		if err := b.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			p.log.Warn("delete object failed", zap.String("object", attrs.Name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}
