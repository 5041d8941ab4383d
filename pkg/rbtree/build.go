package rbtree

// BuildFromSorted creates a tree from size elements produced by next in strictly
// increasing order, in linear time and without comparisons.
//
// The result is a complete binary tree with every node black except those on the
// deepest level, which are red when the bottom level is partial. Ordering is not
// checked; callers validate their input first.
func BuildFromSorted[K, V any](
	allocator *Allocator[K, V], compare func(a, b K) int, size int, next func() (K, V),
) *Tree[K, V] {
	tree := New(allocator, compare)
	if size <= 0 {
		return tree
	}

	tree.root = tree.buildFromSorted(0, 0, size-1, redLevel(size), next)
	tree.count = size
	tree.recomputeMinNode()
	tree.recomputeMaxNode()

	return tree
}

func (tree *Tree[K, V]) buildFromSorted(level, lo, hi, red int, next func() (K, V)) uint32 {
	if hi < lo {
		return 0
	}

	mid := int(uint(lo+hi) >> 1)

	var left uint32
	if lo < mid {
		left = tree.buildFromSorted(level+1, lo, mid-1, red, next)
	}

	key, value := next()
	nodeIdx := tree.allocator.malloc()

	// The storage may move on every malloc, so never hold on to it across recursion.
	nd := &tree.storage()[nodeIdx]
	nd.key = key
	nd.value = value
	nd.color = level != red

	if left != 0 {
		nd.left = left
		tree.storage()[left].parent = nodeIdx
	}

	if mid < hi {
		right := tree.buildFromSorted(level+1, mid+1, hi, red, next)
		alloc := tree.storage()
		alloc[nodeIdx].right = right
		alloc[right].parent = nodeIdx
	}

	return nodeIdx
}

// redLevel finds the level down to which a complete tree of size nodes is full.
// Nodes below it (only one partial level at most) are colored red.
func redLevel(size int) int {
	level := 0

	for m := size - 1; m >= 0; m = m/2 - 1 {
		level++
	}

	return level
}
