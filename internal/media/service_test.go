package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gathr/service/internal/storage"
)

const (
	testBucket = "media.gathr"
	testBase   = "https://s3.us-east-2.amazonaws.com"
)

// spyStore counts calls into a wrapped store and can inject failures.
type spyStore struct {
	storage.Store

	mu        sync.Mutex
	puts      int
	deletes   []string
	putErr    error
	deleteErr error
}

func (s *spyStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	s.puts++
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Put(ctx, bucket, key, body, size, contentType)
}

func (s *spyStore) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, key)
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Delete(ctx, bucket, key)
}

func newTestService(t *testing.T) (*Service, *spyStore, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory(testBase, testBucket, "other")
	spy := &spyStore{Store: mem}
	mapper, err := NewKeyMapper(testBucket, "")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(spy, mapper, WithLogger(logger)), spy, mem
}

func listKeys(t *testing.T, svc *Service, bucket string) []string {
	t.Helper()
	objects, err := storage.Collect(svc.ListBucket(context.Background(), bucket))
	require.NoError(t, err)
	keys := make([]string, len(objects))
	for i, o := range objects {
		keys[i] = o.Key
	}
	return keys
}

func TestUploadAndDeleteRoundTrip(t *testing.T) {
	svc, _, mem := newTestService(t)
	ctx := context.Background()
	const key = "users/pictures/USR#alice123/profile"

	url, err := svc.UploadImage(ctx, bytes.NewReader([]byte("jpeg bytes")), "image/jpeg", "USR#alice123")
	require.NoError(t, err)
	assert.Equal(t, testBase+"/"+testBucket+"/users/pictures/USR%23alice123/profile", url)
	assert.Contains(t, url, "users/pictures/USR%23alice123/profile")

	data, contentType, ok := mem.Object(testBucket, key)
	require.True(t, ok)
	assert.Equal(t, []byte("jpeg bytes"), data)
	assert.Equal(t, "image/jpeg", contentType)

	mapped, err := svc.KeyFromURL(url)
	require.NoError(t, err)
	assert.Equal(t, key, mapped)

	require.NoError(t, svc.DeleteImage(ctx, url))
	assert.NotContains(t, listKeys(t, svc, testBucket), key)
}

func TestDeleteRemovesOnlyAddressedObject(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	alice, err := svc.UploadImage(ctx, strings.NewReader("a"), "image/png", "USR#alice")
	require.NoError(t, err)
	_, err = svc.UploadImage(ctx, strings.NewReader("b"), "image/png", "USR#bob")
	require.NoError(t, err)
	_, err = svc.UploadImage(ctx, strings.NewReader("g"), "image/gif", "GRP#hikers")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteImage(ctx, alice))

	assert.Equal(t, []string{
		"groups/pictures/GRP#hikers/profile",
		"users/pictures/USR#bob/profile",
	}, listKeys(t, svc, testBucket))
}

func TestUploadOverwritesSameKey(t *testing.T) {
	svc, _, mem := newTestService(t)
	ctx := context.Background()

	first, err := svc.UploadImage(ctx, strings.NewReader("first"), "image/png", "EVT#launch")
	require.NoError(t, err)
	second, err := svc.UploadImage(ctx, strings.NewReader("second version"), "image/jpeg", "EVT#launch")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"events/pictures/EVT#launch/profile"}, listKeys(t, svc, testBucket))

	data, contentType, ok := mem.Object(testBucket, "events/pictures/EVT#launch/profile")
	require.True(t, ok)
	assert.Equal(t, []byte("second version"), data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestDeleteMissingImageIsNoError(t *testing.T) {
	svc, spy, _ := newTestService(t)

	url := testBase + "/" + testBucket + "/users/pictures/USR%23ghost/profile"
	require.NoError(t, svc.DeleteImage(context.Background(), url))
	require.NoError(t, svc.DeleteImage(context.Background(), url))
	assert.Len(t, spy.deletes, 2)
}

func TestUploadRejectsBeforeAnyWrite(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		id       string
	}{
		{"mime not allowed", "application/pdf", "USR#alice"},
		{"svg", "image/svg+xml", "USR#alice"},
		{"malformed id", "image/png", "alice"},
		{"unsupported entity type", "image/png", "ABC#x"},
		{"unicode space in id", "image/png", "USR#a\u00a0b"},
		{"invalid utf-8 id", "image/png", "USR#\xff\xfe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, spy, _ := newTestService(t)
			r := &countingReader{r: strings.NewReader("payload")}

			_, err := svc.UploadImage(context.Background(), r, tt.mimeType, tt.id)
			assert.ErrorIs(t, err, ErrMalformedInput)
			assert.Zero(t, spy.puts)
			assert.Zero(t, r.reads, "stream must not be read")
			assert.Empty(t, listKeys(t, svc, testBucket))
		})
	}
}

type countingReader struct {
	r     io.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestUploadStreamFailureIsProcessingError(t *testing.T) {
	svc, spy, _ := newTestService(t)

	_, err := svc.UploadImage(context.Background(), failingReader{}, "image/png", "USR#alice")
	assert.ErrorIs(t, err, ErrProcessing)
	assert.False(t, IsMalformed(err))
	assert.Zero(t, spy.puts)
}

func TestUploadPropagatesStorageFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"unavailable", ErrStorageUnavailable, true},
		{"rejected", ErrStorageRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, spy, _ := newTestService(t)
			spy.putErr = tt.err

			url, err := svc.UploadImage(context.Background(), strings.NewReader("x"), "image/png", "USR#alice")
			assert.Empty(t, url)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Empty(t, listKeys(t, svc, testBucket))
		})
	}
}

func TestDeleteRejectsForeignURLs(t *testing.T) {
	svc, spy, _ := newTestService(t)
	ctx := context.Background()

	urls := []string{
		"https://example.com/not-a-bucket/x",
		testBase + "/other/users/pictures/USR%23alice/profile",
		testBase + "/" + testBucket + "/backups/db.tar",
		testBase + "/" + testBucket + "/groups/pictures/USR%23alice/profile",
	}
	for _, u := range urls {
		err := svc.DeleteImage(ctx, u)
		assert.ErrorIs(t, err, ErrMalformedInput, u)
	}
	assert.Empty(t, spy.deletes)
}

func TestDeletePropagatesStorageFailure(t *testing.T) {
	svc, spy, _ := newTestService(t)
	spy.deleteErr = ErrStorageUnavailable

	err := svc.DeleteImage(context.Background(), testBase+"/"+testBucket+"/users/pictures/USR%23a/profile")
	assert.True(t, IsRetryable(err))
}

func TestListBuckets(t *testing.T) {
	svc, _, _ := newTestService(t)

	buckets, err := svc.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []storage.BucketInfo{{Name: testBucket}, {Name: "other"}}, buckets)
}

func TestCreateFolder(t *testing.T) {
	svc, _, mem := newTestService(t)

	require.NoError(t, svc.CreateFolder(context.Background(), "other", "/test/"))

	data, contentType, ok := mem.Object("other", "test/")
	require.True(t, ok)
	assert.Empty(t, data)
	assert.Equal(t, folderContentType, contentType)

	err := svc.CreateFolder(context.Background(), "other", "/")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestConcurrentUploads(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ids := []string{"USR#a", "USR#b", "GRP#c", "EVT#d", "USR#a", "GRP#c"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.UploadImage(ctx, strings.NewReader(id), "image/png", id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Len(t, listKeys(t, svc, testBucket), 4)
}
