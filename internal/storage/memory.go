package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

var (
	errNoSuchBucket = errors.New("no such bucket")
	errSizeMismatch = errors.New("body length does not match declared size")
)

type memoryObject struct {
	data        []byte
	contentType string
}

// Memory is an in-process Store. It behaves like a strict S3 bucket set:
// writes to unknown buckets are rejected and declared sizes are checked.
type Memory struct {
	mu         sync.Mutex
	buckets    map[string]map[string]memoryObject
	publicBase string
}

// NewMemory creates a store with the given buckets. publicBase is the origin
// used to build object URLs.
func NewMemory(publicBase string, buckets ...string) *Memory {
	m := &Memory{buckets: make(map[string]map[string]memoryObject), publicBase: publicBase}
	for _, b := range buckets {
		m.buckets[b] = make(map[string]memoryObject)
	}
	return m
}

// Put stores a copy of body under bucket/key.
func (m *Memory) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return classify("put object", bucket, key, err, false)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return classify("put object", bucket, key, err, false)
	}
	if size >= 0 && int64(len(data)) != size {
		return classify("put object", bucket, key, fmt.Errorf("%w: got %d, want %d", errSizeMismatch, len(data), size), true)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return classify("put object", bucket, key, errNoSuchBucket, true)
	}
	objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

// Delete removes bucket/key if present.
func (m *Memory) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return classify("delete object", bucket, key, err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return classify("delete object", bucket, key, errNoSuchBucket, true)
	}
	delete(objects, key)
	return nil
}

// List returns a snapshot of bucket ordered by key.
func (m *Memory) List(ctx context.Context, bucket string) ObjectIterator {
	if err := ctx.Err(); err != nil {
		return newErrIterator(classify("list objects", bucket, "", err, false))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return newErrIterator(classify("list objects", bucket, "", errNoSuchBucket, true))
	}

	out := make([]ObjectInfo, 0, len(objects))
	for key, obj := range objects {
		out = append(out, ObjectInfo{Key: key, SizeBytes: int64(len(obj.data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return NewSliceIterator(out)
}

// Buckets returns the configured buckets ordered by name.
func (m *Memory) Buckets(ctx context.Context) ([]BucketInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("list buckets", "", "", err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BucketInfo, 0, len(m.buckets))
	for name := range m.buckets {
		out = append(out, BucketInfo{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// URL returns the path-style URL for bucket/key.
func (m *Memory) URL(bucket, key string) string {
	return ObjectURL(m.publicBase, bucket, key)
}

// Object returns a copy of the stored payload and its content type, for
// assertions.
func (m *Memory) Object(bucket, key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), obj.data...), obj.contentType, true
}

var _ Store = (*Memory)(nil)
