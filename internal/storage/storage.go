// Package storage defines the blob-store contract used by the media service.
// Swap implementations by changing the concrete type injected at startup:
// the MinIO backend works with any S3-compatible provider, the S3 backend
// talks to AWS directly, and the in-memory backend serves tests and dry runs.
package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
)

// ObjectInfo describes one object returned by a listing.
type ObjectInfo struct {
	Key       string
	SizeBytes int64
}

// BucketInfo describes one bucket visible to the configured credentials.
type BucketInfo struct {
	Name string
}

// Store is the interface for writing, removing and enumerating objects.
// Implementations hold a single client handle and are safe for concurrent use.
type Store interface {
	// Put writes size bytes from body under bucket/key with the given content
	// type. An existing object at the same key is overwritten.
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	// Delete removes the object at bucket/key. A missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// List enumerates the objects currently in bucket.
	List(ctx context.Context, bucket string) ObjectIterator
	// Buckets lists the buckets owned by the configured account.
	Buckets(ctx context.Context) ([]BucketInfo, error)
	// URL returns the retrieval URL for bucket/key. It performs no I/O.
	URL(bucket, key string) string
}

// ObjectURL builds a path-style URL <base>/<bucket>/<key>, escaping each key
// segment so characters such as '#' survive the round trip.
func ObjectURL(base, bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
