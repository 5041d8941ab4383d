package maps

import (
	"fmt"
	"strings"
)

// GetOrDefault returns the value stored under key, or def when the key is absent.
func GetOrDefault[K, V any](m Map[K, V], key K, def V) V {
	if value, ok := m.Get(key); ok {
		return value
	}

	return def
}

// PutIfAbsent stores value only when key is absent. It returns the value now
// associated with key and whether it was already present.
func PutIfAbsent[K, V any](m Map[K, V], key K, value V) (V, bool) {
	if current, ok := m.Get(key); ok {
		return current, true
	}

	m.Put(key, value)

	return value, false
}

// RemoveIf deletes key only when it is currently mapped to value.
func RemoveIf[K any, V comparable](m Map[K, V], key K, value V) bool {
	current, ok := m.Get(key)
	if !ok || current != value {
		return false
	}

	m.Remove(key)

	return true
}

// Replace stores value only when key is present and returns the previous value.
func Replace[K, V any](m Map[K, V], key K, value V) (V, bool) {
	if !m.ContainsKey(key) {
		var zero V

		return zero, false
	}

	return m.Put(key, value)
}

// ReplaceIf stores newValue only when key is currently mapped to oldValue.
func ReplaceIf[K any, V comparable](m Map[K, V], key K, oldValue, newValue V) bool {
	current, ok := m.Get(key)
	if !ok || current != oldValue {
		return false
	}

	m.Put(key, newValue)

	return true
}

// ComputeIfAbsent stores fn(key) when key is absent and fn reports ok.
// It returns the value associated with key afterwards.
func ComputeIfAbsent[K, V any](m Map[K, V], key K, fn func(key K) (V, bool)) (V, bool) {
	if current, ok := m.Get(key); ok {
		return current, true
	}

	value, ok := fn(key)
	if !ok {
		return value, false
	}

	m.Put(key, value)

	return value, true
}

// ComputeIfPresent remaps the value of a present key. When fn reports !ok the key is removed.
func ComputeIfPresent[K, V any](m Map[K, V], key K, fn func(key K, value V) (V, bool)) (V, bool) {
	current, ok := m.Get(key)
	if !ok {
		return current, false
	}

	value, keep := fn(key, current)
	if !keep {
		m.Remove(key)

		var zero V

		return zero, false
	}

	m.Put(key, value)

	return value, true
}

// Compute remaps key whether or not it is present; present reports the prior state.
// When fn reports !ok the key is removed (or left absent).
func Compute[K, V any](m Map[K, V], key K, fn func(key K, value V, present bool) (V, bool)) (V, bool) {
	current, present := m.Get(key)

	value, keep := fn(key, current, present)
	if !keep {
		if present {
			m.Remove(key)
		}

		var zero V

		return zero, false
	}

	m.Put(key, value)

	return value, true
}

// Merge stores value when key is absent, otherwise stores fn(old, value).
// When fn reports !ok the key is removed.
func Merge[K, V any](m Map[K, V], key K, value V, fn func(old, value V) (V, bool)) (V, bool) {
	current, present := m.Get(key)
	if !present {
		m.Put(key, value)

		return value, true
	}

	merged, keep := fn(current, value)
	if !keep {
		m.Remove(key)

		var zero V

		return zero, false
	}

	m.Put(key, merged)

	return merged, true
}

// BulkLoader is implemented by maps that copy another map faster than one Put
// per entry.
type BulkLoader[K, V any] interface {
	PutAll(src Map[K, V]) error
}

// PutAll copies every entry of src into dst, through dst's own PutAll when it
// implements BulkLoader.
func PutAll[K, V any](dst, src Map[K, V]) error {
	if loader, ok := dst.(BulkLoader[K, V]); ok {
		return loader.PutAll(src)
	}

	err := src.Range(func(key K, value V) bool {
		dst.Put(key, value)

		return true
	})
	if err != nil {
		return fmt.Errorf("put all: %w", err)
	}

	return nil
}

// ReplaceAll replaces every value with fn(key, value) through the map's iterator.
func ReplaceAll[K, V any](m Map[K, V], fn func(key K, value V) V) error {
	it := m.Iterator()

	for it.Next() {
		_, err := it.SetValue(fn(it.Key(), it.Value()))
		if err != nil {
			return fmt.Errorf("replace all: %w", err)
		}
	}

	return it.Err()
}

// ContainsValue reports whether any key maps to value.
func ContainsValue[K any, V comparable](m Map[K, V], value V) bool {
	found := false

	// The callback never mutates the map, so Range cannot fail.
	_ = m.Range(func(_ K, v V) bool {
		found = v == value

		return !found
	})

	return found
}

// Equal reports whether a and b hold the same set of associations.
func Equal[K any, V comparable](a, b Map[K, V]) bool {
	if a.Len() != b.Len() {
		return false
	}

	equal := true

	_ = a.Range(func(key K, value V) bool {
		other, ok := b.Get(key)
		equal = ok && other == value

		return equal
	})

	return equal
}

// String renders m as {k1=v1, k2=v2} in traversal order.
func String[K, V any](m Map[K, V]) string {
	var sb strings.Builder

	sb.WriteByte('{')

	first := true

	// The callback never mutates the map, so Range cannot fail.
	_ = m.Range(func(key K, value V) bool {
		if !first {
			sb.WriteString(", ")
		}

		first = false

		fmt.Fprintf(&sb, "%v=%v", key, value)

		return true
	})

	sb.WriteByte('}')

	return sb.String()
}
