package media

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserverRecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	observer, err := NewPrometheusObserver("gathr_media", reg)
	require.NoError(t, err)

	svc, spy, _ := newTestService(t)
	svc.observer = observer
	ctx := context.Background()

	url, err := svc.UploadImage(ctx, strings.NewReader("12345"), "image/png", "USR#alice")
	require.NoError(t, err)
	_, err = svc.UploadImage(ctx, strings.NewReader("x"), "text/plain", "USR#alice")
	require.Error(t, err)
	spy.putErr = fmt.Errorf("wrapped: %w", ErrStorageUnavailable)
	_, err = svc.UploadImage(ctx, strings.NewReader("x"), "image/png", "USR#alice")
	require.Error(t, err)
	require.NoError(t, svc.DeleteImage(ctx, url))

	assert.Equal(t, 5.0, testutil.ToFloat64(observer.uploadedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(observer.failures.WithLabelValues("upload", "malformed_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(observer.failures.WithLabelValues("upload", "storage_unavailable")))
	assert.Equal(t, 0.0, testutil.ToFloat64(observer.failures.WithLabelValues("delete", "malformed_input")))
	assert.Equal(t, 2, testutil.CollectAndCount(observer.duration))
}

func TestPrometheusObserverReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewPrometheusObserver("gathr_media", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("gathr_media", reg)
	require.NoError(t, err)

	first.RecordUpload(time.Millisecond, 10, nil)
	second.RecordUpload(time.Millisecond, 5, nil)

	assert.Equal(t, 15.0, testutil.ToFloat64(second.uploadedBytes))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "malformed_input", errorKind(fmt.Errorf("x: %w", ErrMalformedInput)))
	assert.Equal(t, "processing", errorKind(ErrProcessing))
	assert.Equal(t, "storage_rejected", errorKind(ErrStorageRejected))
	assert.Equal(t, "unknown", errorKind(fmt.Errorf("other")))
}
