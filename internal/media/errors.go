package media

import (
	"errors"

	"github.com/gathr/service/internal/storage"
)

// ErrMalformedInput is returned when caller-supplied data violates the
// contract: bad MIME type, bad identifier, unsupported entity type or an
// unparsable URL. It is always detected before any I/O.
var ErrMalformedInput = errors.New("malformed input")

// ErrProcessing is returned when the image stream could not be read.
var ErrProcessing = errors.New("processing failure")

// Backend failures, as classified by the storage package.
var (
	ErrStorageUnavailable = storage.ErrUnavailable
	ErrStorageRejected    = storage.ErrRejected
)

// IsMalformed returns true when err was caused by invalid caller input.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

// IsRetryable returns true when the backend could not be reached. Retry
// policy is the caller's.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
