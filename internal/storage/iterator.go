package storage

// ObjectIterator provides sequential, single-pass access to a bucket listing.
//
// Contract:
//   - Ordering is whatever the backend returns
//   - Next() returns false after exhaustion, after an error, or after Close()
//   - A finished iterator cannot be restarted; list again instead
//   - Close() is idempotent and releases any backend resources
//   - Err() may be called at any time
type ObjectIterator interface {
	// Next advances to the next object.
	Next() bool

	// Object returns the current object. Only valid after Next() returns true.
	Object() ObjectInfo

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases resources held by the iterator.
	Close() error
}

// SliceIterator iterates over an already materialized listing.
type SliceIterator struct {
	objects []ObjectInfo
	index   int
	current ObjectInfo
	err     error
	closed  bool
}

// NewSliceIterator creates an iterator over objects. The iterator takes
// ownership of the slice and will not modify it.
func NewSliceIterator(objects []ObjectInfo) *SliceIterator {
	return &SliceIterator{objects: objects, index: -1}
}

// newErrIterator yields nothing and reports err.
func newErrIterator(err error) *SliceIterator {
	return &SliceIterator{index: -1, err: err}
}

// Next advances to the next object.
func (it *SliceIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}

	it.index++
	if it.index >= len(it.objects) {
		// Drop the slice so a later Next cannot rewind.
		it.objects = nil
		return false
	}

	it.current = it.objects[it.index]
	return true
}

// Object returns the current object.
func (it *SliceIterator) Object() ObjectInfo {
	return it.current
}

// Err returns the error that stopped iteration.
func (it *SliceIterator) Err() error {
	return it.err
}

// Close marks the iterator as closed. Idempotent.
func (it *SliceIterator) Close() error {
	it.closed = true
	it.objects = nil
	return nil
}

var _ ObjectIterator = (*SliceIterator)(nil)

// Collect drains it into a slice and closes it.
func Collect(it ObjectIterator) ([]ObjectInfo, error) {
	defer func() { _ = it.Close() }()

	var out []ObjectInfo
	for it.Next() {
		out = append(out, it.Object())
	}
	return out, it.Err()
}
