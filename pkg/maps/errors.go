package maps

import "errors"

// Configuration errors, returned by constructors.
var (
	ErrInvalidCapacity   = errors.New("illegal initial capacity")
	ErrInvalidLoadFactor = errors.New("illegal load factor")
	ErrUnsortedInput     = errors.New("bulk input is not strictly increasing")
)

// Ordering errors.
var (
	// ErrIncomparableKey is reported when a key has no natural order and no comparator was given.
	ErrIncomparableKey = errors.New("key is not comparable")
	// ErrNilKey is reported when a nil key reaches an ordering that cannot handle it.
	ErrNilKey = errors.New("nil key not permitted by natural ordering")
)

// Iteration errors.
var (
	// ErrConcurrentModification is reported when the map changed structurally behind an iterator.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrNoCurrentEntry is reported by Remove and SetValue when the iterator is not positioned on an entry.
	ErrNoCurrentEntry = errors.New("iterator has no current entry")
)
