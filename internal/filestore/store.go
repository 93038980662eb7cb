// Package filestore defines the object storage contract used to fetch
// rules catalogs kept in a bucket instead of on local disk.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	catalog, err := rules.LoadFromStore(ctx, store, "config", "rules.yaml")
package filestore

import "context"

// Store is the read-only interface all object storage providers implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns metadata for the object without downloading it.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)
}
