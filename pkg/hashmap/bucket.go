package hashmap

import (
	"cmp"
	"math"

	"github.com/Sumatoshi-tech/assoc/pkg/hashing"
	"github.com/Sumatoshi-tech/assoc/pkg/rbtree"
	"github.com/Sumatoshi-tech/assoc/pkg/safeconv"
)

// BucketKind tags the representation of a bucket.
type BucketKind uint8

// Bucket kinds.
const (
	BucketEmpty BucketKind = iota
	BucketChain
	BucketTree
)

// String returns the lowercase name of the kind.
func (k BucketKind) String() string {
	switch k {
	case BucketEmpty:
		return "empty"
	case BucketChain:
		return "chain"
	case BucketTree:
		return "tree"
	default:
		return "unknown"
	}
}

type chainNode[K comparable, V any] struct {
	hash  uint32
	key   K
	value V
	next  *chainNode[K, V]
}

// binKey orders entries inside a tree bucket: by hash, then by key order or
// insertion sequence.
type binKey[K comparable] struct {
	hash uint32
	seq  uint64
	key  K
}

type bucket[K comparable, V any] struct {
	kind  BucketKind
	chain *chainNode[K, V]
	tree  *rbtree.Tree[binKey[K], V]
}

type binEntry[K comparable, V any] struct {
	key   binKey[K]
	value V
}

func (m *Map[K, V]) compareBin(a, b binKey[K]) int {
	if c := cmp.Compare(a.hash, b.hash); c != 0 {
		return c
	}

	if m.keyOrder != nil {
		return m.keyOrder(a.key, b.key)
	}

	return cmp.Compare(a.seq, b.seq)
}

func (m *Map[K, V]) hash(key K) uint32 {
	return hashing.Spread(m.hasher(key))
}

func (m *Map[K, V]) indexFor(hash uint32) int {
	return int(hash & safeconv.MustIntToUint32(len(m.table)-1))
}

// position addresses one entry: a chain node, or a node of a tree bucket.
type position[K comparable, V any] struct {
	index int
	chain *chainNode[K, V]
	tree  rbtree.Iterator[binKey[K], V]
}

func (p position[K, V]) valid() bool {
	return p.chain != nil || p.tree.Valid()
}

func (p position[K, V]) hash() uint32 {
	if p.chain != nil {
		return p.chain.hash
	}

	return p.tree.Key().hash
}

func (p position[K, V]) key() K {
	if p.chain != nil {
		return p.chain.key
	}

	return p.tree.Key().key
}

func (p position[K, V]) value() V {
	if p.chain != nil {
		return p.chain.value
	}

	return p.tree.Value()
}

func (p position[K, V]) setValue(value V) V {
	if p.chain != nil {
		old := p.chain.value
		p.chain.value = value

		return old
	}

	return p.tree.SetValue(value)
}

func (m *Map[K, V]) find(key K) position[K, V] {
	if m.size == 0 {
		return position[K, V]{}
	}

	hash := m.hash(key)

	return m.locate(m.indexFor(hash), hash, key)
}

// locate finds key in the bucket at index.
func (m *Map[K, V]) locate(index int, hash uint32, key K) position[K, V] {
	b := &m.table[index]

	switch b.kind {
	case BucketChain:
		for node := b.chain; node != nil; node = node.next {
			if node.hash == hash && node.key == key {
				return position[K, V]{index: index, chain: node}
			}
		}
	case BucketTree:
		if iter := m.findInTree(b.tree, hash, key); iter.Valid() {
			return position[K, V]{index: index, tree: iter}
		}
	case BucketEmpty:
	}

	return position[K, V]{}
}

func (m *Map[K, V]) findInTree(tree *rbtree.Tree[binKey[K], V], hash uint32, key K) rbtree.Iterator[binKey[K], V] {
	if m.keyOrder != nil {
		return tree.Find(binKey[K]{hash: hash, key: key})
	}

	// Without a key order, scan the run of nodes sharing the hash.
	iter := tree.Seek(func(k binKey[K]) int { return cmp.Compare(k.hash, hash) })
	for ; iter.Valid() && iter.Key().hash == hash; iter = iter.Next() {
		if iter.Key().key == key {
			return iter
		}
	}

	return tree.Limit()
}

// first returns the first entry in traversal order.
func (m *Map[K, V]) first() position[K, V] {
	return m.scanFrom(0)
}

// advance returns the entry following pos in traversal order.
func (m *Map[K, V]) advance(pos position[K, V]) position[K, V] {
	if pos.chain != nil {
		if pos.chain.next != nil {
			return position[K, V]{index: pos.index, chain: pos.chain.next}
		}
	} else if next := pos.tree.Next(); next.Valid() {
		return position[K, V]{index: pos.index, tree: next}
	}

	return m.scanFrom(pos.index + 1)
}

func (m *Map[K, V]) scanFrom(index int) position[K, V] {
	for ; index < len(m.table); index++ {
		b := &m.table[index]

		switch b.kind {
		case BucketChain:
			return position[K, V]{index: index, chain: b.chain}
		case BucketTree:
			return position[K, V]{index: index, tree: b.tree.Min()}
		case BucketEmpty:
		}
	}

	return position[K, V]{index: len(m.table)}
}

func (m *Map[K, V]) putVal(key K, value V, onlyIfAbsent bool) (V, bool) {
	hash := m.hash(key)

	if m.table == nil {
		m.resize()
	}

	index := m.indexFor(hash)
	b := &m.table[index]

	switch b.kind {
	case BucketEmpty:
		b.kind = BucketChain
		b.chain = &chainNode[K, V]{hash: hash, key: key, value: value}
	case BucketTree:
		if iter := m.findInTree(b.tree, hash, key); iter.Valid() {
			if onlyIfAbsent {
				return iter.Value(), true
			}

			return iter.SetValue(value), true
		}

		m.seq++
		b.tree.Insert(binKey[K]{hash: hash, seq: m.seq, key: key}, value)
	case BucketChain:
		var tail *chainNode[K, V]

		length := 0

		for node := b.chain; node != nil; node = node.next {
			if node.hash == hash && node.key == key {
				old := node.value
				if !onlyIfAbsent {
					node.value = value
				}

				return old, true
			}

			tail = node
			length++
		}

		tail.next = &chainNode[K, V]{hash: hash, key: key, value: value}

		if length >= TreeifyThreshold {
			m.treeifyBucket(index)
		}
	}

	m.modCount++
	m.size++

	if m.size > m.threshold {
		m.resize()
	}

	var zero V

	return zero, false
}

func (m *Map[K, V]) removeAt(pos position[K, V]) {
	b := &m.table[pos.index]

	if pos.chain != nil {
		if b.chain == pos.chain {
			b.chain = pos.chain.next
			if b.chain == nil {
				b.kind = BucketEmpty
			}
		} else {
			prev := b.chain
			for prev.next != pos.chain {
				prev = prev.next
			}

			prev.next = pos.chain.next
		}
	} else {
		b.tree.DeleteAt(pos.tree)

		if b.tree.Len() <= UntreeifyThreshold {
			m.untreeifyBucket(pos.index)
		}
	}

	m.size--
	m.modCount++
}

// treeifyBucket converts the chain at index into a tree, or grows the table
// while it is smaller than MinTreeifyCapacity.
func (m *Map[K, V]) treeifyBucket(index int) {
	if len(m.table) < MinTreeifyCapacity {
		m.resize()

		return
	}

	b := &m.table[index]
	tree := rbtree.New(m.arena, m.compareBin)

	for node := b.chain; node != nil; node = node.next {
		m.seq++
		tree.Insert(binKey[K]{hash: node.hash, seq: m.seq, key: node.key}, node.value)
	}

	*b = bucket[K, V]{kind: BucketTree, tree: tree}

	m.treeifies++
	m.logger.Debug("hashmap bucket treeified", "bucket", index, "entries", tree.Len())

	for _, observer := range m.observers {
		observer.OnTreeify(index, tree.Len())
	}
}

// untreeifyBucket converts the tree at index back into a chain in tree order.
func (m *Map[K, V]) untreeifyBucket(index int) {
	b := &m.table[index]

	entries := make([]binEntry[K, V], 0, b.tree.Len())
	for iter := b.tree.Min(); iter.Valid(); iter = iter.Next() {
		entries = append(entries, binEntry[K, V]{key: iter.Key(), value: iter.Value()})
	}

	b.tree.Erase()
	*b = m.chainOf(entries)

	m.untreeifies++
	m.logger.Debug("hashmap bucket untreeified", "bucket", index, "entries", len(entries))

	for _, observer := range m.observers {
		observer.OnUntreeify(index, len(entries))
	}
}

func (m *Map[K, V]) chainOf(entries []binEntry[K, V]) bucket[K, V] {
	if len(entries) == 0 {
		return bucket[K, V]{}
	}

	var head, tail *chainNode[K, V]

	for _, entry := range entries {
		node := &chainNode[K, V]{hash: entry.key.hash, key: entry.key.key, value: entry.value}
		if head == nil {
			head = node
		} else {
			tail.next = node
		}

		tail = node
	}

	return bucket[K, V]{kind: BucketChain, chain: head}
}

// resize allocates the initial table or doubles it, redistributing every entry.
func (m *Map[K, V]) resize() {
	oldTable := m.table
	oldCap := len(oldTable)

	var newCap int

	switch {
	case oldCap >= MaximumCapacity:
		m.threshold = math.MaxInt

		return
	case oldCap > 0:
		newCap = oldCap << 1
	default:
		newCap = m.initialCapacity
	}

	m.threshold = thresholdFor(newCap, m.loadFactor)
	m.table = make([]bucket[K, V], newCap)

	if oldCap == 0 {
		m.logger.Debug("hashmap table allocated", "capacity", newCap, "threshold", m.threshold)

		for _, observer := range m.observers {
			observer.OnResize(0, newCap)
		}

		return
	}

	// Entries of bucket j move to j or j+oldCap depending on this hash bit.
	bit := safeconv.MustIntToUint32(oldCap)

	for index := range oldTable {
		b := &oldTable[index]

		switch b.kind {
		case BucketChain:
			m.splitChain(b.chain, index, oldCap, bit)
		case BucketTree:
			m.splitTree(b.tree, index, oldCap, bit)
		case BucketEmpty:
		}
	}

	m.resizes++
	m.logger.Debug("hashmap resized", "old_capacity", oldCap, "new_capacity", newCap, "threshold", m.threshold)

	for _, observer := range m.observers {
		observer.OnResize(oldCap, newCap)
	}
}

// splitChain distributes a chain into a low and a high chain preserving relative order.
func (m *Map[K, V]) splitChain(head *chainNode[K, V], index, oldCap int, bit uint32) {
	var loHead, loTail, hiHead, hiTail *chainNode[K, V]

	for node := head; node != nil; {
		next := node.next
		node.next = nil

		if node.hash&bit == 0 {
			if loTail == nil {
				loHead = node
			} else {
				loTail.next = node
			}

			loTail = node
		} else {
			if hiTail == nil {
				hiHead = node
			} else {
				hiTail.next = node
			}

			hiTail = node
		}

		node = next
	}

	if loHead != nil {
		m.table[index] = bucket[K, V]{kind: BucketChain, chain: loHead}
	}

	if hiHead != nil {
		m.table[index+oldCap] = bucket[K, V]{kind: BucketChain, chain: hiHead}
	}
}

// splitTree distributes a tree bucket by the same bit. Each half becomes a chain
// when small enough, otherwise a tree rebuilt from its sorted entries in linear time.
func (m *Map[K, V]) splitTree(tree *rbtree.Tree[binKey[K], V], index, oldCap int, bit uint32) {
	var lo, hi []binEntry[K, V]

	for iter := tree.Min(); iter.Valid(); iter = iter.Next() {
		entry := binEntry[K, V]{key: iter.Key(), value: iter.Value()}
		if entry.key.hash&bit == 0 {
			lo = append(lo, entry)
		} else {
			hi = append(hi, entry)
		}
	}

	// Everything stays together: keep the tree as is.
	switch {
	case len(hi) == 0:
		m.table[index] = bucket[K, V]{kind: BucketTree, tree: tree}

		return
	case len(lo) == 0:
		m.table[index+oldCap] = bucket[K, V]{kind: BucketTree, tree: tree}

		return
	}

	tree.Erase()

	m.table[index] = m.bucketOf(lo, index)
	m.table[index+oldCap] = m.bucketOf(hi, index+oldCap)
}

func (m *Map[K, V]) bucketOf(entries []binEntry[K, V], index int) bucket[K, V] {
	if len(entries) > UntreeifyThreshold {
		next := 0
		tree := rbtree.BuildFromSorted(m.arena, m.compareBin, len(entries), func() (binKey[K], V) {
			entry := entries[next]
			next++

			return entry.key, entry.value
		})

		return bucket[K, V]{kind: BucketTree, tree: tree}
	}

	m.untreeifies++
	m.logger.Debug("hashmap bucket untreeified", "bucket", index, "entries", len(entries))

	for _, observer := range m.observers {
		observer.OnUntreeify(index, len(entries))
	}

	return m.chainOf(entries)
}
