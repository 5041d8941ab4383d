package treemap

import (
	"fmt"

	"github.com/Sumatoshi-tech/assoc/pkg/maps"
	"github.com/Sumatoshi-tech/assoc/pkg/rbtree"
)

// Iterator walks a tree map in key order and fails fast on interference.
type Iterator[K, V any] struct {
	m *Map[K, V]

	current    rbtree.Iterator[K, V]
	next       rbtree.Iterator[K, V]
	hasCurrent bool
	descending bool

	expectedModCount int
	err              error
}

var _ maps.Iterator[int, int] = (*Iterator[int, int])(nil)

// Iterator returns an iterator in ascending key order.
func (m *Map[K, V]) Iterator() maps.Iterator[K, V] {
	return m.Ascending()
}

// Ascending returns an iterator in ascending key order.
func (m *Map[K, V]) Ascending() *Iterator[K, V] {
	return &Iterator[K, V]{m: m, next: m.tree.Min(), expectedModCount: m.modCount}
}

// DescendingIterator returns an iterator in descending key order.
func (m *Map[K, V]) DescendingIterator() *Iterator[K, V] {
	return &Iterator[K, V]{m: m, next: m.tree.Max(), descending: true, expectedModCount: m.modCount}
}

func (it *Iterator[K, V]) check() error {
	if it.err != nil {
		return it.err
	}

	if it.m.modCount != it.expectedModCount {
		it.err = fmt.Errorf("treemap iterator: %w", maps.ErrConcurrentModification)
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

	if !it.next.Valid() {
		it.hasCurrent = false

		return false
	}

	it.current = it.next
	it.hasCurrent = true

	if it.descending {
		it.next = it.next.Prev()
	} else {
		it.next = it.next.Next()
	}

	return true
}

// Key returns the current key, or the zero value when there is no current entry.
func (it *Iterator[K, V]) Key() K {
	if !it.hasCurrent {
		var zero K

		return zero
	}

	return it.current.Key()
}

// Value returns the current value, or the zero value when there is no current entry.
func (it *Iterator[K, V]) Value() V {
	if !it.hasCurrent {
		var zero V

		return zero
	}

	return it.current.Value()
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

	return it.current.SetValue(value), nil
}

// Remove deletes the current entry. Iteration continues with the entry that
// followed it.
func (it *Iterator[K, V]) Remove() error {
	err := it.check()
	if err != nil {
		return err
	}

	if !it.hasCurrent {
		return maps.ErrNoCurrentEntry
	}

	// A node with two children inherits its successor's contents on deletion,
	// so an ascending walk resumes on the slot it just removed. The predecessor
	// used by a descending walk never moves.
	succ := it.m.tree.DeleteAt(it.current)
	if !it.descending {
		it.next = succ
	}

	it.hasCurrent = false
	it.m.modCount++
	it.expectedModCount = it.m.modCount

	return nil
}

// Err returns the error that stopped the traversal, if any.
func (it *Iterator[K, V]) Err() error {
	return it.err
}
