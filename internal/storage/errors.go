package storage

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the backend could not be reached or did
// not answer. Callers may retry with backoff.
var ErrUnavailable = errors.New("storage unavailable")

// ErrRejected is returned when the backend answered but refused the request
// (permissions, missing bucket, malformed request). Retrying will not help.
var ErrRejected = errors.New("storage rejected request")

// IsUnavailable returns true when err was classified as a transport failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsRejected returns true when err was classified as a backend refusal.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// classify wraps a backend error with the matching sentinel while keeping the
// original in the chain for errors.As.
func classify(op, bucket, key string, err error, rejected bool) error {
	kind := ErrUnavailable
	if rejected {
		kind = ErrRejected
	}
	if key == "" {
		return fmt.Errorf("%w: %s %q: %w", kind, op, bucket, err)
	}
	return fmt.Errorf("%w: %s %q/%q: %w", kind, op, bucket, key, err)
}
