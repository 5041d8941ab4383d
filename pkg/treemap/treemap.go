// Package treemap implements a navigable map ordered by a comparator on top of the
// arena red-black tree in pkg/rbtree.
package treemap

import (
	"cmp"
	"fmt"

	"github.com/Sumatoshi-tech/assoc/pkg/maps"
	"github.com/Sumatoshi-tech/assoc/pkg/rbtree"
)

// Map is a red-black tree map. The zero value is not usable; use a constructor.
type Map[K, V any] struct {
	tree *rbtree.Tree[K, V]

	// comparator is what the caller supplied; nil means natural ordering.
	comparator maps.Compare[K]
	compare    maps.Compare[K]

	// modCount counts structural modifications and drives fail-fast iteration.
	modCount int
}

var _ maps.NavigableMap[int, int] = (*Map[int, int])(nil)

// New creates an empty map ordered by the natural order of K.
func New[K cmp.Ordered, V any]() *Map[K, V] {
	return newMap[K, V](nil, maps.Ordered[K]())
}

// NewWithComparator creates an empty map ordered by compare.
// A nil comparator selects the natural ordering of K, which is resolved once here;
// ErrIncomparableKey is returned when K has none.
func NewWithComparator[K, V any](compare maps.Compare[K]) (*Map[K, V], error) {
	resolved, err := resolve(compare)
	if err != nil {
		return nil, err
	}

	return newMap[K, V](compare, resolved), nil
}

// NewFromSorted builds a map from entries sorted in strictly increasing key order
// under compare (nil for natural ordering) in linear time.
func NewFromSorted[K, V any](compare maps.Compare[K], entries []maps.Entry[K, V]) (*Map[K, V], error) {
	resolved, err := resolve(compare)
	if err != nil {
		return nil, err
	}

	for idx := 1; idx < len(entries); idx++ {
		if resolved(entries[idx-1].Key, entries[idx].Key) >= 0 {
			return nil, fmt.Errorf("%w: entry %d (%v) does not follow %v",
				maps.ErrUnsortedInput, idx, entries[idx].Key, entries[idx-1].Key)
		}
	}

	m := newMap[K, V](compare, resolved)

	next := 0
	m.tree = rbtree.BuildFromSorted(rbtree.NewAllocator[K, V](), resolved, len(entries), func() (K, V) {
		entry := entries[next]
		next++

		return entry.Key, entry.Value
	})

	return m, nil
}

// Clone returns a map with the same ordering and entries, built in linear time.
// Keys and values are copied shallowly.
func (m *Map[K, V]) Clone() *Map[K, V] {
	clone := newMap[K, V](m.comparator, m.compare)

	iter := m.tree.Min()
	clone.tree = rbtree.BuildFromSorted(rbtree.NewAllocator[K, V](), m.compare, m.Len(), func() (K, V) {
		key, value := iter.Key(), iter.Value()
		iter = iter.Next()

		return key, value
	})

	return clone
}

func resolve[K any](compare maps.Compare[K]) (maps.Compare[K], error) {
	if compare != nil {
		return compare, nil
	}

	natural, err := maps.Natural[K]()
	if err != nil {
		return nil, fmt.Errorf("natural ordering: %w", err)
	}

	return natural, nil
}

func newMap[K, V any](comparator, compare maps.Compare[K]) *Map[K, V] {
	return &Map[K, V]{
		tree:       rbtree.New(rbtree.NewAllocator[K, V](), compare),
		comparator: comparator,
		compare:    compare,
	}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.tree.Len()
}

// IsEmpty reports whether the map holds no entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.tree.Len() == 0
}

// Comparator returns the comparator given at construction, or nil for natural ordering.
func (m *Map[K, V]) Comparator() maps.Compare[K] {
	return m.comparator
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.tree.Get(key)
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	return m.tree.Find(key).Valid()
}

// Put stores value under key. An existing entry keeps its position and only has its
// value replaced, which is not a structural modification.
func (m *Map[K, V]) Put(key K, value V) (V, bool) {
	old, replaced := m.tree.Put(key, value)
	if !replaced {
		m.modCount++
	}

	return old, replaced
}

// Remove deletes key and returns the value it held.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	value, ok := m.tree.Delete(key)
	if ok {
		m.modCount++
	}

	return value, ok
}

// PutAll copies every entry of src. An empty map receiving a navigable map whose
// entries are strictly increasing under this map's ordering is bulk-built in
// linear time; otherwise the entries are put one by one.
func (m *Map[K, V]) PutAll(src maps.Map[K, V]) error {
	nav, ok := src.(maps.NavigableMap[K, V])
	if !ok || !m.IsEmpty() {
		return m.putEach(src)
	}

	entries := make([]maps.Entry[K, V], 0, src.Len())

	err := nav.Range(func(key K, value V) bool {
		entries = append(entries, maps.Entry[K, V]{Key: key, Value: value})

		return true
	})
	if err != nil {
		return fmt.Errorf("put all: %w", err)
	}

	if !m.sorted(entries) {
		for _, entry := range entries {
			m.Put(entry.Key, entry.Value)
		}

		return nil
	}

	next := 0
	m.tree = rbtree.BuildFromSorted(rbtree.NewAllocator[K, V](), m.compare, len(entries), func() (K, V) {
		entry := entries[next]
		next++

		return entry.Key, entry.Value
	})
	m.modCount++

	return nil
}

func (m *Map[K, V]) putEach(src maps.Map[K, V]) error {
	err := src.Range(func(key K, value V) bool {
		m.Put(key, value)

		return true
	})
	if err != nil {
		return fmt.Errorf("put all: %w", err)
	}

	return nil
}

func (m *Map[K, V]) sorted(entries []maps.Entry[K, V]) bool {
	for idx := 1; idx < len(entries); idx++ {
		if m.compare(entries[idx-1].Key, entries[idx].Key) >= 0 {
			return false
		}
	}

	return true
}

// Clear removes every entry and releases the arena.
func (m *Map[K, V]) Clear() {
	m.modCount++
	m.tree = rbtree.New(rbtree.NewAllocator[K, V](), m.compare)
}

// First returns the entry with the lowest key.
func (m *Map[K, V]) First() (maps.Entry[K, V], bool) {
	return entryAt(m.tree.Min())
}

// Last returns the entry with the highest key.
func (m *Map[K, V]) Last() (maps.Entry[K, V], bool) {
	return entryAt(m.tree.Max())
}

// Floor returns the entry with the greatest key <= key.
func (m *Map[K, V]) Floor(key K) (maps.Entry[K, V], bool) {
	return entryAt(m.tree.Floor(key))
}

// Ceiling returns the entry with the least key >= key.
func (m *Map[K, V]) Ceiling(key K) (maps.Entry[K, V], bool) {
	return entryAt(m.tree.Ceiling(key))
}

// Lower returns the entry with the greatest key < key.
func (m *Map[K, V]) Lower(key K) (maps.Entry[K, V], bool) {
	return entryAt(m.tree.Lower(key))
}

// Higher returns the entry with the least key > key.
func (m *Map[K, V]) Higher(key K) (maps.Entry[K, V], bool) {
	return entryAt(m.tree.Higher(key))
}

// FirstKey returns the lowest key.
func (m *Map[K, V]) FirstKey() (K, bool) {
	return keyOf(m.First())
}

// LastKey returns the highest key.
func (m *Map[K, V]) LastKey() (K, bool) {
	return keyOf(m.Last())
}

// FloorKey returns the greatest key <= key.
func (m *Map[K, V]) FloorKey(key K) (K, bool) {
	return keyOf(m.Floor(key))
}

// CeilingKey returns the least key >= key.
func (m *Map[K, V]) CeilingKey(key K) (K, bool) {
	return keyOf(m.Ceiling(key))
}

// LowerKey returns the greatest key < key.
func (m *Map[K, V]) LowerKey(key K) (K, bool) {
	return keyOf(m.Lower(key))
}

// HigherKey returns the least key > key.
func (m *Map[K, V]) HigherKey(key K) (K, bool) {
	return keyOf(m.Higher(key))
}

// PollFirst removes and returns the entry with the lowest key.
func (m *Map[K, V]) PollFirst() (maps.Entry[K, V], bool) {
	return m.poll(m.tree.Min())
}

// PollLast removes and returns the entry with the highest key.
func (m *Map[K, V]) PollLast() (maps.Entry[K, V], bool) {
	return m.poll(m.tree.Max())
}

func (m *Map[K, V]) poll(iter rbtree.Iterator[K, V]) (maps.Entry[K, V], bool) {
	entry, ok := entryAt(iter)
	if !ok {
		return entry, false
	}

	m.tree.DeleteAt(iter)
	m.modCount++

	return entry, true
}

// Range calls fn for each entry in ascending key order until fn returns false.
// It returns ErrConcurrentModification if fn changes the map structurally.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) error {
	expected := m.modCount

	for iter := m.tree.Min(); iter.Valid(); iter = iter.Next() {
		more := fn(iter.Key(), iter.Value())

		if m.modCount != expected {
			return fmt.Errorf("range: %w", maps.ErrConcurrentModification)
		}

		if !more {
			return nil
		}
	}

	return nil
}

// Keys returns the keys in ascending order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())

	for iter := m.tree.Min(); iter.Valid(); iter = iter.Next() {
		keys = append(keys, iter.Key())
	}

	return keys
}

// Values returns the values in ascending key order.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.Len())

	for iter := m.tree.Min(); iter.Valid(); iter = iter.Next() {
		values = append(values, iter.Value())
	}

	return values
}

// Entries returns snapshots of every entry in ascending key order.
func (m *Map[K, V]) Entries() []maps.Entry[K, V] {
	entries := make([]maps.Entry[K, V], 0, m.Len())

	for iter := m.tree.Min(); iter.Valid(); iter = iter.Next() {
		entries = append(entries, maps.Entry[K, V]{Key: iter.Key(), Value: iter.Value()})
	}

	return entries
}

// Verify checks the red-black invariants of the underlying tree.
func (m *Map[K, V]) Verify() error {
	err := m.tree.Verify()
	if err != nil {
		return fmt.Errorf("treemap: %w", err)
	}

	return nil
}

// String renders the map as {k1=v1, k2=v2} in ascending key order.
func (m *Map[K, V]) String() string {
	return maps.String[K, V](m)
}

func entryAt[K, V any](iter rbtree.Iterator[K, V]) (maps.Entry[K, V], bool) {
	if !iter.Valid() {
		return maps.Entry[K, V]{}, false
	}

	return maps.Entry[K, V]{Key: iter.Key(), Value: iter.Value()}, true
}

func keyOf[K, V any](entry maps.Entry[K, V], ok bool) (K, bool) {
	return entry.Key, ok
}
