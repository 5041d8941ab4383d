package hashmap

import (
	"fmt"

	"github.com/Sumatoshi-tech/assoc/pkg/maps"
)

// Iterator walks a hash map bucket by bucket and fails fast on interference.
type Iterator[K comparable, V any] struct {
	m *Map[K, V]

	current    position[K, V]
	next       position[K, V]
	hasCurrent bool

	expectedModCount int
	err              error
}

var _ maps.Iterator[string, int] = (*Iterator[string, int])(nil)

// Iterator returns an iterator over the entries in bucket order.
func (m *Map[K, V]) Iterator() maps.Iterator[K, V] {
	return m.Entries()
}

// Entries returns an iterator over the entries in bucket order.
func (m *Map[K, V]) Entries() *Iterator[K, V] {
	return &Iterator[K, V]{m: m, next: m.first(), expectedModCount: m.modCount}
}

func (it *Iterator[K, V]) check() error {
	if it.err != nil {
		return it.err
	}

	if it.m.modCount != it.expectedModCount {
		it.err = fmt.Errorf("hashmap iterator: %w", maps.ErrConcurrentModification)
		it.hasCurrent = false

		return it.err
	}

	return nil
}

// Next advances to the following entry.
func (it *Iterator[K, V]) Next() bool {
	if it.check() != nil {
		return false
	}

	if !it.next.valid() {
		it.hasCurrent = false

		return false
	}

	it.current = it.next
	it.hasCurrent = true
	it.next = it.m.advance(it.current)

	return true
}

// Key returns the current key, or the zero value when there is no current entry.
func (it *Iterator[K, V]) Key() K {
	if !it.hasCurrent {
		var zero K

		return zero
	}

	return it.current.key()
}

// Value returns the current value, or the zero value when there is no current entry.
func (it *Iterator[K, V]) Value() V {
	if !it.hasCurrent {
		var zero V

		return zero
	}

	return it.current.value()
}

// SetValue replaces the value of the current entry.
func (it *Iterator[K, V]) SetValue(value V) (V, error) {
	var zero V

	err := it.check()
	if err != nil {
		return zero, err
	}

	if !it.hasCurrent {
		return zero, maps.ErrNoCurrentEntry
	}

	return it.current.setValue(value), nil
}

// Remove deletes the current entry.
func (it *Iterator[K, V]) Remove() error {
	err := it.check()
	if err != nil {
		return err
	}

	if !it.hasCurrent {
		return maps.ErrNoCurrentEntry
	}

	// Deleting from a tree may move nodes between slots or turn the bucket into
	// a chain, so a pending position in the same tree is looked up again by key.
	relocate := it.next.valid() && it.next.chain == nil && it.next.index == it.current.index

	var nextHash uint32

	var nextKey K

	if relocate {
		nextHash, nextKey = it.next.hash(), it.next.key()
	}

	it.m.removeAt(it.current)

	if relocate {
		it.next = it.m.locate(it.next.index, nextHash, nextKey)
	}

	it.hasCurrent = false
	it.expectedModCount = it.m.modCount

	return nil
}

// Err returns the error that stopped the traversal, if any.
func (it *Iterator[K, V]) Err() error {
	return it.err
}
