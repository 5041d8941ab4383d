package persist

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/assoc/pkg/hashmap"
	"github.com/Sumatoshi-tech/assoc/pkg/maps"
	"github.com/Sumatoshi-tech/assoc/pkg/treemap"
)

// Snapshot kinds.
const (
	KindHash = "hash"
	KindTree = "tree"
)

// Snapshot is the serialized form of a map: its entries in traversal order.
// Tree map snapshots are therefore sorted and restore in linear time.
type Snapshot[K, V any] struct {
	Kind    string             `json:"kind"    yaml:"kind"`
	Entries []maps.Entry[K, V] `json:"entries" yaml:"entries"`
}

// SnapshotOf captures the entries of m. Navigable maps are recorded as KindTree.
func SnapshotOf[K, V any](m maps.Map[K, V]) (Snapshot[K, V], error) {
	snapshot := Snapshot[K, V]{
		Kind:    KindHash,
		Entries: make([]maps.Entry[K, V], 0, m.Len()),
	}

	if _, ok := m.(maps.NavigableMap[K, V]); ok {
		snapshot.Kind = KindTree
	}

	err := m.Range(func(key K, value V) bool {
		snapshot.Entries = append(snapshot.Entries, maps.Entry[K, V]{Key: key, Value: value})

		return true
	})
	if err != nil {
		return Snapshot[K, V]{}, fmt.Errorf("snapshot: %w", err)
	}

	return snapshot, nil
}

// RestoreHashMap rebuilds a hash map by putting every entry, presizing the table
// so that no resize happens along the way.
func RestoreHashMap[K comparable, V any](snapshot Snapshot[K, V], opts ...hashmap.Option[K, V]) (*hashmap.Map[K, V], error) {
	presized := append([]hashmap.Option[K, V]{hashmap.WithExpectedSize[K, V](len(snapshot.Entries))}, opts...)

	m, err := hashmap.New(presized...)
	if err != nil {
		return nil, fmt.Errorf("restore hash map: %w", err)
	}

	for _, entry := range snapshot.Entries {
		m.Put(entry.Key, entry.Value)
	}

	return m, nil
}

// RestoreTreeMap rebuilds a tree map ordered by compare (nil for natural ordering).
// Sorted snapshots are bulk-built in linear time; others are inserted one by one.
func RestoreTreeMap[K, V any](snapshot Snapshot[K, V], compare maps.Compare[K]) (*treemap.Map[K, V], error) {
	m, err := treemap.NewFromSorted(compare, snapshot.Entries)
	if err == nil {
		return m, nil
	}

	if !errors.Is(err, maps.ErrUnsortedInput) {
		return nil, fmt.Errorf("restore tree map: %w", err)
	}

	m, err = treemap.NewWithComparator[K, V](compare)
	if err != nil {
		return nil, fmt.Errorf("restore tree map: %w", err)
	}

	for _, entry := range snapshot.Entries {
		m.Put(entry.Key, entry.Value)
	}

	return m, nil
}

// SaveMap snapshots m and writes it to dir under basename.
func SaveMap[K, V any](dir, basename string, codec Codec, m maps.Map[K, V]) error {
	snapshot, err := SnapshotOf(m)
	if err != nil {
		return err
	}

	return SaveState(dir, basename, codec, snapshot)
}

// LoadSnapshot reads a snapshot written by SaveMap.
func LoadSnapshot[K, V any](dir, basename string, codec Codec) (Snapshot[K, V], error) {
	return NewPersister[Snapshot[K, V]](basename, codec).Load(dir)
}
