package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures a MinIO (or any S3-compatible) backend.
type MinioConfig struct {
	Endpoint  string // host[:port], no scheme
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// PublicBase is the browser-facing origin used to build URLs, e.g.
	// "https://s3.us-east-2.amazonaws.com". Defaults to the endpoint.
	PublicBase string

	// Timeout bounds waiting for response headers. Zero means no limit.
	Timeout time.Duration

	// EnsureBuckets are created with a public-read policy if missing.
	// Meant for local development against a fresh MinIO.
	EnsureBuckets []string
}

// Minio implements Store on top of minio-go.
type Minio struct {
	client     *minio.Client
	publicBase string
}

// NewMinio creates a MinIO client and, if asked, bootstraps buckets.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	transport, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("create minio transport: %w", err)
	}
	if cfg.Timeout > 0 {
		transport.ResponseHeaderTimeout = cfg.Timeout
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		Transport:    transport,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	base := cfg.PublicBase
	if base == "" {
		base = client.EndpointURL().String()
	}
	s := &Minio{client: client, publicBase: strings.TrimRight(base, "/")}

	for _, bucket := range cfg.EnsureBuckets {
		if err := s.ensureBucket(ctx, bucket, cfg.Region); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Minio) ensureBucket(ctx context.Context, bucket, region string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return minioError("check bucket", bucket, "", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return minioError("create bucket", bucket, "", err)
		}
		slog.Info("storage: created bucket", "bucket", bucket)
	}

	if err := s.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return minioError("set bucket policy", bucket, "", err)
	}
	return nil
}

// Put uploads body under bucket/key. size must be the exact byte count.
func (s *Minio) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return minioError("put object", bucket, key, err)
	}
	return nil
}

// Delete removes the object at bucket/key.
func (s *Minio) Delete(ctx context.Context, bucket, key string) error {
	err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return minioError("delete object", bucket, key, err)
	}
	return nil
}

// List enumerates every object in bucket. The listing runs in a goroutine
// owned by minio-go; Close cancels it.
func (s *Minio) List(ctx context.Context, bucket string) ObjectIterator {
	ctx, cancel := context.WithCancel(ctx)
	ch := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true})
	return &minioIterator{bucket: bucket, ch: ch, cancel: cancel}
}

// Buckets lists the buckets visible to the configured credentials.
func (s *Minio) Buckets(ctx context.Context) ([]BucketInfo, error) {
	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, minioError("list buckets", "", "", err)
	}
	out := make([]BucketInfo, len(buckets))
	for i, b := range buckets {
		out[i] = BucketInfo{Name: b.Name}
	}
	return out, nil
}

// URL returns the path-style URL for bucket/key under the public base.
func (s *Minio) URL(bucket, key string) string {
	return ObjectURL(s.publicBase, bucket, key)
}

var _ Store = (*Minio)(nil)

type minioIterator struct {
	bucket  string
	ch      <-chan minio.ObjectInfo
	cancel  context.CancelFunc
	current ObjectInfo
	err     error
	done    bool
}

func (it *minioIterator) Next() bool {
	if it.done {
		return false
	}
	obj, ok := <-it.ch
	if !ok {
		it.finish()
		return false
	}
	if obj.Err != nil {
		it.err = minioError("list objects", it.bucket, "", obj.Err)
		it.finish()
		return false
	}
	it.current = ObjectInfo{Key: obj.Key, SizeBytes: obj.Size}
	return true
}

func (it *minioIterator) Object() ObjectInfo { return it.current }

func (it *minioIterator) Err() error { return it.err }

func (it *minioIterator) Close() error {
	if it.done {
		return nil
	}
	it.finish()
	// Drain so the producer goroutine can observe the cancellation and exit.
	for range it.ch {
	}
	return nil
}

func (it *minioIterator) finish() {
	it.done = true
	it.cancel()
}

// minioError classifies err. An S3 error response below 500 means the
// backend answered and refused; 5xx and transport failures are unavailable.
func minioError(op, bucket, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode >= http.StatusInternalServerError {
		return classify(op, bucket, key, err, false)
	}
	return classify(op, bucket, key, err, resp.Code != "" || resp.StatusCode != 0)
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}

