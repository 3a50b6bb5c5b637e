package media

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultHostPattern matches AWS S3 hosts such as s3.us-east-2.amazonaws.com.
const DefaultHostPattern = `^([a-z0-9-]+\.)*amazonaws\.com$`

// KeyMapper recovers storage keys from URLs issued for a single bucket.
type KeyMapper struct {
	bucket string
	host   *regexp.Regexp
}

// NewKeyMapper builds a mapper for bucket. hostPattern is matched against
// the URL host (port included); empty means DefaultHostPattern.
func NewKeyMapper(bucket, hostPattern string) (*KeyMapper, error) {
	if bucket == "" {
		return nil, fmt.Errorf("key mapper: bucket is required")
	}
	if hostPattern == "" {
		hostPattern = DefaultHostPattern
	}
	re, err := regexp.Compile(hostPattern)
	if err != nil {
		return nil, fmt.Errorf("key mapper: compile host pattern: %w", err)
	}
	return &KeyMapper{bucket: bucket, host: re}, nil
}

// Bucket returns the bucket the mapper accepts.
func (m *KeyMapper) Bucket() string {
	return m.bucket
}

// KeyFromURL returns the storage key addressed by a path-style URL
// <scheme>://<host>/<bucket>/<key>. The match is exact: a URL for another
// host or bucket, with a query or fragment, with "." or ".." segments, or
// without a key fails with ErrMalformedInput.
func (m *KeyMapper) KeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid storage url %q: %v", ErrMalformedInput, raw, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("%w: storage url %q is not http(s)", ErrMalformedInput, raw)
	}
	// An unescaped '#' or '?' inside the key would otherwise truncate it.
	if u.RawQuery != "" || u.Fragment != "" || u.ForceQuery || strings.Contains(raw, "#") {
		return "", fmt.Errorf("%w: storage url %q has a query or fragment", ErrMalformedInput, raw)
	}
	if u.User != nil || !m.host.MatchString(strings.ToLower(u.Host)) {
		return "", fmt.Errorf("%w: storage url %q has an unexpected host", ErrMalformedInput, raw)
	}

	path := strings.TrimPrefix(u.Path, "/")
	// Servers resolve dot segments before routing, so "/b/../other/k" is
	// not in bucket b.
	if hasDotSegment(path) {
		return "", fmt.Errorf("%w: storage url %q has a dot segment", ErrMalformedInput, raw)
	}
	bucket, key, ok := strings.Cut(path, "/")
	if !ok || bucket != m.bucket || key == "" {
		return "", fmt.Errorf("%w: storage url %q is not in bucket %q", ErrMalformedInput, raw, m.bucket)
	}
	return key, nil
}

func hasDotSegment(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}
