package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	docsysSvc "blockdocs/internal/domain/services/docsystem"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// deleteTimeout bounds a single object delete
const deleteTimeout = 30 * time.Second

// reclaimConcurrency caps parallel object deletes per purge
const reclaimConcurrency = 8

// GCSFileStore deletes uploaded image/file objects from a Google Cloud Storage bucket.
// STORAGE_EMULATOR_HOST is honoured by the client library for local runs.
type GCSFileStore struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

// NewGCSFileStore creates a file store for bucket using application default credentials
func NewGCSFileStore(ctx context.Context, bucket string, logger *slog.Logger) (*GCSFileStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &GCSFileStore{client: client, bucket: bucket, logger: logger}, nil
}

// Delete removes an object. A missing object counts as deleted.
func (s *GCSFileStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		s.logger.Debug("object already gone", "bucket", s.bucket, "key", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, s.bucket, err)
	}
	return nil
}

// Close releases the underlying client
func (s *GCSFileStore) Close() error {
	return s.client.Close()
}

// NoopFileStore is used when no bucket is configured; purged keys are only logged
type NoopFileStore struct {
	logger *slog.Logger
}

// NewNoopFileStore creates a file store that deletes nothing
func NewNoopFileStore(logger *slog.Logger) *NoopFileStore {
	return &NoopFileStore{logger: logger}
}

// Delete implements FileStore
func (s *NoopFileStore) Delete(ctx context.Context, key string) error {
	s.logger.Debug("file store disabled, skipping delete", "key", key)
	return nil
}

// Reclaim deletes every key and returns how many deletes failed.
// Deletes run concurrently; failures are logged and the remaining keys are still attempted.
func Reclaim(ctx context.Context, store docsysSvc.FileStore, keys []string, logger *slog.Logger) int {
	var failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(reclaimConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			if err := store.Delete(ctx, key); err != nil {
				failed.Add(1)
				logger.Warn("failed to reclaim purged file",
					"key", key,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(keys) > 0 {
		logger.Info("purged files reclaimed",
			"keys", len(keys),
			"failed", failed.Load(),
		)
	}
	return int(failed.Load())
}
