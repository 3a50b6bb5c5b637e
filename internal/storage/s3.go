package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the AWS S3 client used by S3.
type S3API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// S3Config configures the AWS S3 backend.
type S3Config struct {
	Region    string
	AccessKey string // empty falls back to the default credential chain
	SecretKey string

	// Endpoint overrides the service endpoint for S3-compatible services
	// (LocalStack, MinIO), e.g. "http://localhost:4566".
	Endpoint string

	// PublicBase is the origin used to build URLs. Defaults to
	// "https://s3.<region>.amazonaws.com".
	PublicBase string

	// Timeout bounds each HTTP request. Zero means no limit.
	Timeout time.Duration
}

// S3 implements Store on top of aws-sdk-go-v2.
type S3 struct {
	client     S3API
	publicBase string
}

// NewS3 loads AWS configuration and builds a path-style S3 client.
//
// Client construction is otherwise the caller's responsibility; use
// NewS3FromClient to supply a preconfigured client or a test double.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	base := cfg.PublicBase
	if base == "" {
		base = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}
	return NewS3FromClient(client, base), nil
}

// NewS3FromClient wraps an existing client. publicBase is the origin used to
// build object URLs.
func NewS3FromClient(client S3API, publicBase string) *S3 {
	return &S3{client: client, publicBase: strings.TrimRight(publicBase, "/")}
}

// Put uploads body under bucket/key with explicit length and content type;
// S3 cannot infer either from a plain reader.
func (s *S3) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return s3Error("put object", bucket, key, err)
	}
	return nil
}

// Delete removes the object at bucket/key.
func (s *S3) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}
		return s3Error("delete object", bucket, key, err)
	}
	return nil
}

// List enumerates every object in bucket, fetching pages on demand.
func (s *S3) List(ctx context.Context, bucket string) ObjectIterator {
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	return &s3Iterator{ctx: ctx, bucket: bucket, pager: pager}
}

// Buckets lists the buckets owned by the account.
func (s *S3) Buckets(ctx context.Context) ([]BucketInfo, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, s3Error("list buckets", "", "", err)
	}
	buckets := make([]BucketInfo, len(out.Buckets))
	for i, b := range out.Buckets {
		buckets[i] = BucketInfo{Name: aws.ToString(b.Name)}
	}
	return buckets, nil
}

// URL returns the path-style URL for bucket/key.
func (s *S3) URL(bucket, key string) string {
	return ObjectURL(s.publicBase, bucket, key)
}

var _ Store = (*S3)(nil)

type s3Iterator struct {
	ctx     context.Context
	bucket  string
	pager   *s3.ListObjectsV2Paginator
	page    []types.Object
	index   int
	current ObjectInfo
	err     error
	done    bool
}

func (it *s3Iterator) Next() bool {
	if it.done {
		return false
	}
	for it.index >= len(it.page) {
		if !it.pager.HasMorePages() {
			it.release()
			return false
		}
		out, err := it.pager.NextPage(it.ctx)
		if err != nil {
			it.err = s3Error("list objects", it.bucket, "", err)
			it.release()
			return false
		}
		it.page = out.Contents
		it.index = 0
	}

	obj := it.page[it.index]
	it.index++
	it.current = ObjectInfo{Key: aws.ToString(obj.Key), SizeBytes: aws.ToInt64(obj.Size)}
	return true
}

func (it *s3Iterator) Object() ObjectInfo { return it.current }

func (it *s3Iterator) Err() error { return it.err }

func (it *s3Iterator) Close() error {
	it.release()
	return nil
}

func (it *s3Iterator) release() {
	it.done = true
	it.page = nil
	it.pager = nil
}

// s3Error classifies err. Server-side 5xx responses are treated like an
// unreachable backend; any other service response is a rejection.
func s3Error(op, bucket, key string, err error) error {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= http.StatusInternalServerError {
		return classify(op, bucket, key, err, false)
	}
	var apiErr smithy.APIError
	rejected := errors.As(err, &apiErr) || respErr != nil
	return classify(op, bucket, key, err, rejected)
}
