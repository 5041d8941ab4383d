// Package maps defines the map contract shared by the hash and tree implementations,
// along with the sentinel errors, ordering strategies and helper operations built on it.
//
// Neither implementation is safe for concurrent use. Iterators detect structural
// changes made behind their back and report [ErrConcurrentModification] instead of
// walking a corrupted structure.
package maps

import "fmt"

// Entry is a snapshot of one key-value association.
type Entry[K, V any] struct {
	Key   K `json:"key"   yaml:"key"`
	Value V `json:"value" yaml:"value"`
}

// String renders the entry as key=value.
func (e Entry[K, V]) String() string {
	return fmt.Sprintf("%v=%v", e.Key, e.Value)
}

// Iterator walks the entries of a live map.
//
// Typical use:
//
//	it := m.Iterator()
//	for it.Next() {
//		use(it.Key(), it.Value())
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
//
// Next returns false at the end of the traversal and also when the map was changed
// structurally by anything other than this iterator; Err distinguishes the two.
type Iterator[K, V any] interface {
	// Next advances to the following entry.
	Next() bool
	// Key returns the key of the current entry.
	Key() K
	// Value returns the value of the current entry.
	Value() V
	// SetValue replaces the value of the current entry in place and returns the old one.
	SetValue(value V) (V, error)
	// Remove deletes the current entry from the map.
	Remove() error
	// Err returns the error that stopped the traversal, if any.
	Err() error
}

// Map is the contract implemented by both the hash map and the tree map.
type Map[K, V any] interface {
	// Len returns the number of entries.
	Len() int
	// IsEmpty reports whether the map holds no entries.
	IsEmpty() bool
	// Get returns the value stored under key.
	Get(key K) (V, bool)
	// ContainsKey reports whether key is present.
	ContainsKey(key K) bool
	// Put stores value under key and returns the value it replaced, if any.
	Put(key K, value V) (V, bool)
	// Remove deletes key and returns the value it held, if any.
	Remove(key K) (V, bool)
	// Clear removes every entry.
	Clear()
	// Iterator returns a fail-fast iterator over the entries.
	Iterator() Iterator[K, V]
	// Range calls fn for each entry until fn returns false.
	Range(fn func(key K, value V) bool) error
	// Keys returns the keys in traversal order.
	Keys() []K
	// Values returns the values in traversal order.
	Values() []V
}

// NavigableMap is a Map ordered by a comparator.
type NavigableMap[K, V any] interface {
	Map[K, V]

	// Comparator returns the user supplied comparator, or nil for natural ordering.
	Comparator() Compare[K]
	// First returns the entry with the lowest key.
	First() (Entry[K, V], bool)
	// Last returns the entry with the highest key.
	Last() (Entry[K, V], bool)
	// Floor returns the entry with the greatest key less than or equal to key.
	Floor(key K) (Entry[K, V], bool)
	// Ceiling returns the entry with the least key greater than or equal to key.
	Ceiling(key K) (Entry[K, V], bool)
	// Lower returns the entry with the greatest key strictly less than key.
	Lower(key K) (Entry[K, V], bool)
	// Higher returns the entry with the least key strictly greater than key.
	Higher(key K) (Entry[K, V], bool)
	// PollFirst removes and returns the entry with the lowest key.
	PollFirst() (Entry[K, V], bool)
	// PollLast removes and returns the entry with the highest key.
	PollLast() (Entry[K, V], bool)
}
