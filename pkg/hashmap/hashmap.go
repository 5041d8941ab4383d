// Package hashmap provides a hash table map with adaptive collision handling.
//
// Each bucket is empty, a singly linked chain, or a red-black tree. A chain that
// grows past TreeifyThreshold entries is promoted to a tree once the table holds at
// least MinTreeifyCapacity buckets, which bounds lookups in heavily colliding
// buckets to O(log n). Trees that shrink back to UntreeifyThreshold entries or
// fewer are demoted to chains. All tree buckets of one map share a single node arena.
package hashmap

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/bits"

	"github.com/Sumatoshi-tech/assoc/pkg/hashing"
	"github.com/Sumatoshi-tech/assoc/pkg/maps"
	"github.com/Sumatoshi-tech/assoc/pkg/rbtree"
)

const (
	// DefaultInitialCapacity is the bucket count used when none is requested.
	DefaultInitialCapacity = 16

	// MaximumCapacity is the largest bucket count; the table never grows beyond it.
	MaximumCapacity = 1 << 30

	// DefaultLoadFactor is the ratio of entries to buckets that triggers a resize.
	DefaultLoadFactor = 0.75

	// TreeifyThreshold is the chain length at which the next insertion into the
	// bucket converts it to a tree.
	TreeifyThreshold = 8

	// UntreeifyThreshold is the entry count at or below which a tree bucket
	// reverts to a chain.
	UntreeifyThreshold = 6

	// MinTreeifyCapacity is the smallest table for which buckets may be treeified.
	// Smaller tables are resized instead.
	MinTreeifyCapacity = 64
)

// Map is a hash table map. It is not safe for concurrent use.
type Map[K comparable, V any] struct {
	table []bucket[K, V]

	// arena holds the nodes of every tree bucket.
	arena *rbtree.Allocator[binKey[K], V]

	size      int
	threshold int
	modCount  int

	// seq hands out tie-break numbers to entries inserted into tree buckets.
	seq uint64

	initialCapacity int
	expectedSize    int
	loadFactor      float64
	hasher          hashing.Hasher[K]
	keyOrder        maps.Compare[K]

	observers []Observer
	logger    *slog.Logger

	resizes     int
	treeifies   int
	untreeifies int
}

var _ maps.Map[string, int] = (*Map[string, int])(nil)

// Option configures a Map.
type Option[K comparable, V any] func(*Map[K, V])

// WithInitialCapacity sets the requested bucket count. It is rounded up to a
// power of two when the table is first allocated.
func WithInitialCapacity[K comparable, V any](capacity int) Option[K, V] {
	return func(m *Map[K, V]) {
		m.initialCapacity = capacity
	}
}

// WithExpectedSize sizes the first table so that size entries fit without a
// resize. It takes precedence over a smaller WithInitialCapacity.
func WithExpectedSize[K comparable, V any](size int) Option[K, V] {
	return func(m *Map[K, V]) {
		m.expectedSize = size
	}
}

// WithLoadFactor sets the entries-per-bucket ratio that triggers a resize.
func WithLoadFactor[K comparable, V any](loadFactor float64) Option[K, V] {
	return func(m *Map[K, V]) {
		m.loadFactor = loadFactor
	}
}

// WithHasher replaces the native hash function of keys.
func WithHasher[K comparable, V any](hasher hashing.Hasher[K]) Option[K, V] {
	return func(m *Map[K, V]) {
		m.hasher = hasher
	}
}

// WithKeyOrder orders entries sharing a hash inside tree buckets.
// The order must agree with ==: compare(a, b) == 0 exactly when a == b.
// Without it, colliding entries are ordered by insertion.
func WithKeyOrder[K comparable, V any](order maps.Compare[K]) Option[K, V] {
	return func(m *Map[K, V]) {
		m.keyOrder = order
	}
}

// WithObserver registers an observer of resize and bucket conversion events.
func WithObserver[K comparable, V any](observer Observer) Option[K, V] {
	return func(m *Map[K, V]) {
		m.observers = append(m.observers, observer)
	}
}

// WithLogger sets the logger receiving debug records of table restructuring.
func WithLogger[K comparable, V any](logger *slog.Logger) Option[K, V] {
	return func(m *Map[K, V]) {
		m.logger = logger
	}
}

// New creates an empty map. The table is allocated on first insertion.
func New[K comparable, V any](opts ...Option[K, V]) (*Map[K, V], error) {
	m := &Map[K, V]{
		initialCapacity: DefaultInitialCapacity,
		loadFactor:      DefaultLoadFactor,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.initialCapacity < 0 || m.initialCapacity > MaximumCapacity {
		return nil, fmt.Errorf("%w: %d", maps.ErrInvalidCapacity, m.initialCapacity)
	}

	if m.loadFactor <= 0 || math.IsNaN(m.loadFactor) {
		return nil, fmt.Errorf("%w: %v", maps.ErrInvalidLoadFactor, m.loadFactor)
	}

	if m.expectedSize < 0 {
		return nil, fmt.Errorf("%w: expected size %d", maps.ErrInvalidCapacity, m.expectedSize)
	}

	if m.hasher == nil {
		m.hasher = hashing.Comparable[K]()
	}

	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if m.expectedSize > 0 {
		needed := float64(m.expectedSize)/m.loadFactor + 1
		if needed > float64(m.initialCapacity) {
			m.initialCapacity = int(min(needed, MaximumCapacity))
		}
	}

	m.initialCapacity = tableSizeFor(m.initialCapacity)
	m.threshold = thresholdFor(m.initialCapacity, m.loadFactor)
	m.arena = rbtree.NewAllocator[binKey[K], V]()

	return m, nil
}

// NewFrom creates a map holding every entry of src. The table is sized up front
// so that copying never resizes it.
func NewFrom[K comparable, V any](src maps.Map[K, V], opts ...Option[K, V]) (*Map[K, V], error) {
	m, err := New(append([]Option[K, V]{WithExpectedSize[K, V](src.Len())}, opts...)...)
	if err != nil {
		return nil, err
	}

	err = src.Range(func(key K, value V) bool {
		m.Put(key, value)

		return true
	})
	if err != nil {
		return nil, fmt.Errorf("copy: %w", err)
	}

	return m, nil
}

// Clone returns a map with the same entries, hasher, key order, load factor and
// logger. Observers are not carried over. Keys and values are copied shallowly.
func (m *Map[K, V]) Clone() *Map[K, V] {
	clone, err := NewFrom[K, V](m,
		WithLoadFactor[K, V](m.loadFactor),
		WithHasher[K, V](m.hasher),
		WithKeyOrder[K, V](m.keyOrder),
		WithLogger[K, V](m.logger),
	)
	if err != nil {
		// The settings were validated when m was built and m is not modified here.
		panic(err)
	}

	return clone
}

// NewOrdered creates an empty map whose colliding entries are ordered by the
// natural order of K inside tree buckets.
func NewOrdered[K cmp.Ordered, V any](opts ...Option[K, V]) (*Map[K, V], error) {
	return New(append([]Option[K, V]{WithKeyOrder[K, V](maps.Ordered[K]())}, opts...)...)
}

// tableSizeFor returns the smallest power of two >= capacity, within [1, MaximumCapacity].
func tableSizeFor(capacity int) int {
	if capacity <= 1 {
		return 1
	}

	if capacity >= MaximumCapacity {
		return MaximumCapacity
	}

	return 1 << bits.Len(uint(capacity-1))
}

func thresholdFor(capacity int, loadFactor float64) int {
	limit := float64(capacity) * loadFactor
	if capacity < MaximumCapacity && limit < float64(MaximumCapacity) {
		return int(limit)
	}

	return math.MaxInt
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.size
}

// IsEmpty reports whether the map holds no entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.size == 0
}

// Capacity returns the number of buckets, or the number the table will start
// with when it is not allocated yet.
func (m *Map[K, V]) Capacity() int {
	if m.table == nil {
		return m.initialCapacity
	}

	return len(m.table)
}

// Threshold returns the size above which the next insertion resizes the table.
func (m *Map[K, V]) Threshold() int {
	return m.threshold
}

// LoadFactor returns the configured load factor.
func (m *Map[K, V]) LoadFactor() float64 {
	return m.loadFactor
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	pos := m.find(key)
	if !pos.valid() {
		var zero V

		return zero, false
	}

	return pos.value(), true
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	return m.find(key).valid()
}

// Put stores value under key and returns the value it replaced.
func (m *Map[K, V]) Put(key K, value V) (V, bool) {
	return m.putVal(key, value, false)
}

// PutIfAbsent stores value only when key is absent. It returns the value now
// associated with key and whether key was already present.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (V, bool) {
	current, present := m.putVal(key, value, true)
	if present {
		return current, true
	}

	return value, false
}

// Remove deletes key and returns the value it held. The table never shrinks.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	pos := m.find(key)
	if !pos.valid() {
		var zero V

		return zero, false
	}

	value := pos.value()
	m.removeAt(pos)

	return value, true
}

// Clear removes every entry. The capacity is retained.
func (m *Map[K, V]) Clear() {
	m.modCount++

	if m.size == 0 {
		return
	}

	clear(m.table)
	m.arena.Reset()
	m.size = 0
}

// Range calls fn for each entry until fn returns false. The order is unspecified.
// It returns ErrConcurrentModification if fn changes the map structurally.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) error {
	expected := m.modCount

	for pos := m.first(); pos.valid(); pos = m.advance(pos) {
		more := fn(pos.key(), pos.value())

		if m.modCount != expected {
			return fmt.Errorf("range: %w", maps.ErrConcurrentModification)
		}

		if !more {
			return nil
		}
	}

	return nil
}

// Keys returns every key in traversal order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.size)

	for pos := m.first(); pos.valid(); pos = m.advance(pos) {
		keys = append(keys, pos.key())
	}

	return keys
}

// Values returns every value in traversal order.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.size)

	for pos := m.first(); pos.valid(); pos = m.advance(pos) {
		values = append(values, pos.value())
	}

	return values
}

// String renders the map as {k1=v1, k2=v2} in traversal order.
func (m *Map[K, V]) String() string {
	return maps.String[K, V](m)
}
