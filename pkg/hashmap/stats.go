package hashmap

import (
	"errors"
	"fmt"
)

// ErrInvariant is returned by Verify when the table is inconsistent.
var ErrInvariant = errors.New("hashmap invariant violated")

// Observer receives table restructuring events.
type Observer interface {
	// OnResize is called after the table grew from oldCapacity to newCapacity buckets.
	// The first allocation of the table reports an oldCapacity of 0.
	OnResize(oldCapacity, newCapacity int)
	// OnTreeify is called after the bucket at index became a tree of size entries.
	OnTreeify(index, size int)
	// OnUntreeify is called after the bucket at index reverted to a chain of size entries.
	OnUntreeify(index, size int)
}

// Stats holds the shape of the table and its restructuring history.
type Stats struct {
	Size        int
	Capacity    int
	Threshold   int
	Resizes     int
	Treeifies   int
	Untreeifies int

	EmptyBuckets int
	ChainBuckets int
	TreeBuckets  int
	LongestChain int
	LargestTree  int
}

// Occupancy returns the fraction of buckets holding at least one entry.
func (s Stats) Occupancy() float64 {
	if s.Capacity == 0 {
		return 0
	}

	return float64(s.ChainBuckets+s.TreeBuckets) / float64(s.Capacity)
}

// BucketShape describes one bucket.
type BucketShape struct {
	Kind BucketKind
	Size int
}

// Stats returns current table statistics. It walks every bucket.
func (m *Map[K, V]) Stats() Stats {
	stats := Stats{
		Size:        m.size,
		Capacity:    m.Capacity(),
		Threshold:   m.threshold,
		Resizes:     m.resizes,
		Treeifies:   m.treeifies,
		Untreeifies: m.untreeifies,
	}

	if m.table == nil {
		stats.EmptyBuckets = stats.Capacity

		return stats
	}

	for _, shape := range m.BucketShapes() {
		switch shape.Kind {
		case BucketEmpty:
			stats.EmptyBuckets++
		case BucketChain:
			stats.ChainBuckets++
			stats.LongestChain = max(stats.LongestChain, shape.Size)
		case BucketTree:
			stats.TreeBuckets++
			stats.LargestTree = max(stats.LargestTree, shape.Size)
		}
	}

	return stats
}

// BucketShapes returns the kind and entry count of every bucket in index order.
// It returns nil before the table is allocated.
func (m *Map[K, V]) BucketShapes() []BucketShape {
	if m.table == nil {
		return nil
	}

	shapes := make([]BucketShape, len(m.table))

	for index := range m.table {
		b := &m.table[index]
		shapes[index].Kind = b.kind

		switch b.kind {
		case BucketChain:
			for node := b.chain; node != nil; node = node.next {
				shapes[index].Size++
			}
		case BucketTree:
			shapes[index].Size = b.tree.Len()
		case BucketEmpty:
		}
	}

	return shapes
}

// Verify checks that every entry sits in the bucket its hash selects, that tree
// buckets are valid red-black trees above the untreeify threshold, and that the
// cached size matches.
func (m *Map[K, V]) Verify() error {
	if m.table == nil {
		if m.size != 0 {
			return fmt.Errorf("%w: size %d without a table", ErrInvariant, m.size)
		}

		return nil
	}

	count := 0

	for index := range m.table {
		b := &m.table[index]

		switch b.kind {
		case BucketChain:
			if b.chain == nil {
				return fmt.Errorf("%w: empty chain at bucket %d", ErrInvariant, index)
			}

			for node := b.chain; node != nil; node = node.next {
				if m.indexFor(node.hash) != index {
					return fmt.Errorf("%w: hash %#x in bucket %d", ErrInvariant, node.hash, index)
				}

				count++
			}
		case BucketTree:
			err := b.tree.Verify()
			if err != nil {
				return fmt.Errorf("bucket %d: %w", index, err)
			}

			if b.tree.Len() <= UntreeifyThreshold {
				return fmt.Errorf("%w: tree bucket %d holds only %d entries", ErrInvariant, index, b.tree.Len())
			}

			for iter := b.tree.Min(); iter.Valid(); iter = iter.Next() {
				if m.indexFor(iter.Key().hash) != index {
					return fmt.Errorf("%w: hash %#x in tree bucket %d", ErrInvariant, iter.Key().hash, index)
				}
			}

			count += b.tree.Len()
		case BucketEmpty:
			if b.chain != nil || b.tree != nil {
				return fmt.Errorf("%w: empty bucket %d holds nodes", ErrInvariant, index)
			}
		}
	}

	if count != m.size {
		return fmt.Errorf("%w: counted %d entries, size %d", ErrInvariant, count, m.size)
	}

	if used := m.arena.Used(); used > count {
		return fmt.Errorf("%w: arena holds %d nodes for %d entries", ErrInvariant, used, count)
	}

	return nil
}
