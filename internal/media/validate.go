// Package media stores entity profile images in a blob store: it validates
// uploads, derives storage keys from entity identifiers and maps issued URLs
// back to keys for deletion.
package media

import (
	"fmt"
	"strings"

	"github.com/gathr/service/internal/entity"
)

// acceptableImageTypes is the MIME allow-list for profile images.
var acceptableImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
}

// AcceptableImageType reports whether mimeType may be uploaded.
func AcceptableImageType(mimeType string) bool {
	return acceptableImageTypes[mimeType]
}

// ValidateImage checks the MIME type and the entity identifier of an upload
// and returns the image subtype ("jpeg" for "image/jpeg").
func ValidateImage(mimeType, id string) (string, error) {
	if !AcceptableImageType(mimeType) {
		return "", fmt.Errorf("%w: invalid image MIME type %q for entity %q", ErrMalformedInput, mimeType, id)
	}
	if !entity.Valid(id) {
		return "", fmt.Errorf("%w: invalid entity id %q", ErrMalformedInput, id)
	}
	_, subtype, _ := strings.Cut(mimeType, "/")
	return subtype, nil
}
