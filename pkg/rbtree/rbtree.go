// Package rbtree provides a red-black tree whose nodes live in an arena and are
// linked by uint32 indices rather than pointers.
//
// Several trees may share one Allocator; the hash map does exactly that for its
// treeified buckets. Rotations only reassign indices, so a node keeps its slot for
// as long as it is in the tree, except that deleting a node with two children moves
// the in-order successor's key and value into the deleted node's slot.
package rbtree

import (
	"errors"
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/assoc/pkg/safeconv"
)

// ErrInvariant is returned by Verify when the tree violates a red-black or ordering invariant.
var ErrInvariant = errors.New("rbtree invariant violated")

const (
	red   = false
	black = true

	// negativeLimitNode marks the position before the minimum element.
	negativeLimitNode = math.MaxUint32
)

type node[K, V any] struct {
	key                 K
	value               V
	parent, left, right uint32
	color               bool // Black or red.
}

// Allocator is the arena holding the nodes of one or more trees.
// Slot 0 is reserved and stands for an absent link.
type Allocator[K, V any] struct {
	storage []node[K, V]
	gaps    []uint32
}

// NewAllocator creates an empty arena.
func NewAllocator[K, V any]() *Allocator[K, V] {
	return &Allocator[K, V]{}
}

// Size returns the number of allocated slots, including free and reserved ones.
func (allocator *Allocator[K, V]) Size() int {
	return len(allocator.storage)
}

// Used returns the number of slots currently holding tree nodes.
func (allocator *Allocator[K, V]) Used() int {
	if len(allocator.storage) == 0 {
		return 0
	}

	return len(allocator.storage) - 1 - len(allocator.gaps)
}

// Reset drops every node. Trees bound to the allocator must not be used afterwards.
func (allocator *Allocator[K, V]) Reset() {
	allocator.storage = nil
	allocator.gaps = nil
}

func (allocator *Allocator[K, V]) malloc() uint32 {
	if gapCount := len(allocator.gaps); gapCount > 0 {
		nodeIdx := allocator.gaps[gapCount-1]
		allocator.gaps = allocator.gaps[:gapCount-1]

		return nodeIdx
	}

	if len(allocator.storage) == 0 {
		// Zero is reserved.
		allocator.storage = append(allocator.storage, node[K, V]{color: black})
	}

	nodeLen := len(allocator.storage)
	if nodeLen >= negativeLimitNode-1 {
		panic("rbtree: allocator has reached the maximum value for uint32")
	}

	allocator.storage = append(allocator.storage, node[K, V]{})

	return safeconv.MustIntToUint32(nodeLen)
}

func (allocator *Allocator[K, V]) free(nodeIdx uint32) {
	if nodeIdx == 0 {
		panic("rbtree: node #0 is special and cannot be deallocated")
	}

	// Drop references so the garbage collector can reclaim keys and values.
	allocator.storage[nodeIdx] = node[K, V]{}
	allocator.gaps = append(allocator.gaps, nodeIdx)
}

// Tree is a red-black tree ordered by a comparator.
type Tree[K, V any] struct {
	allocator *Allocator[K, V]
	compare   func(a, b K) int

	// Root of the tree.
	root uint32

	// The minimum and maximum nodes under the tree.
	minNode, maxNode uint32

	// Number of nodes under root, including the root.
	count int
}

// New creates an empty tree bound to allocator and ordered by compare.
func New[K, V any](allocator *Allocator[K, V], compare func(a, b K) int) *Tree[K, V] {
	return &Tree[K, V]{allocator: allocator, compare: compare}
}

func (tree *Tree[K, V]) storage() []node[K, V] {
	return tree.allocator.storage
}

// Allocator returns the bound nodes allocator.
func (tree *Tree[K, V]) Allocator() *Allocator[K, V] {
	return tree.allocator
}

// Compare returns the comparator ordering the tree.
func (tree *Tree[K, V]) Compare() func(a, b K) int {
	return tree.compare
}

// Len returns the number of elements in the tree.
func (tree *Tree[K, V]) Len() int {
	return tree.count
}

// Get returns the value stored under key.
func (tree *Tree[K, V]) Get(key K) (V, bool) {
	nodeIdx := tree.find(key)
	if nodeIdx == 0 {
		var zero V

		return zero, false
	}

	return tree.storage()[nodeIdx].value, true
}

// Find returns an iterator positioned on key, or Limit() when key is absent.
func (tree *Tree[K, V]) Find(key K) Iterator[K, V] {
	return Iterator[K, V]{tree, tree.find(key)}
}

// Put inserts key or, when it is already present, replaces its value in place.
// It returns the replaced value and whether a replacement happened.
func (tree *Tree[K, V]) Put(key K, value V) (V, bool) {
	nodeIdx, inserted := tree.doInsert(key, value)
	if inserted {
		var zero V

		return zero, false
	}

	nd := &tree.storage()[nodeIdx]
	old := nd.value
	nd.value = value

	return old, true
}

// Insert adds key only when it is absent. It returns false and an iterator on the
// existing element otherwise.
func (tree *Tree[K, V]) Insert(key K, value V) (bool, Iterator[K, V]) {
	nodeIdx, inserted := tree.doInsert(key, value)

	return inserted, Iterator[K, V]{tree, nodeIdx}
}

// Delete removes key and returns its value.
func (tree *Tree[K, V]) Delete(key K) (V, bool) {
	nodeIdx := tree.find(key)
	if nodeIdx == 0 {
		var zero V

		return zero, false
	}

	value := tree.storage()[nodeIdx].value
	tree.doDelete(nodeIdx)

	return value, true
}

// DeleteAt removes the element under iter and returns an iterator on its in-order
// successor, which is where a forward traversal continues.
//
// REQUIRES: iter.Valid().
func (tree *Tree[K, V]) DeleteAt(iter Iterator[K, V]) Iterator[K, V] {
	doAssert(iter.Valid())

	alloc := tree.storage()

	// A node with two children takes over its successor's contents, so the
	// traversal resumes on the same slot.
	next := iter.node
	if alloc[next].left == 0 || alloc[next].right == 0 {
		next = doNext(next, alloc)
	}

	tree.doDelete(iter.node)

	return Iterator[K, V]{tree, next}
}

// Erase removes every node from the tree and returns the slots to the allocator.
func (tree *Tree[K, V]) Erase() {
	nodes := make([]uint32, 0, tree.count)

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		nodes = append(nodes, iter.node)
	}

	for _, nd := range nodes {
		tree.allocator.free(nd)
	}

	tree.root = 0
	tree.minNode = 0
	tree.maxNode = 0
	tree.count = 0
}

// Min creates an iterator that points to the minimum item in the tree.
// If the tree is empty, returns Limit().
func (tree *Tree[K, V]) Min() Iterator[K, V] {
	return Iterator[K, V]{tree, tree.minNode}
}

// Max creates an iterator that points at the maximum item in the tree.
// If the tree is empty, returns NegativeLimit().
func (tree *Tree[K, V]) Max() Iterator[K, V] {
	if tree.maxNode == 0 {
		return Iterator[K, V]{tree, negativeLimitNode}
	}

	return Iterator[K, V]{tree, tree.maxNode}
}

// Limit creates an iterator that points beyond the maximum item in the tree.
func (tree *Tree[K, V]) Limit() Iterator[K, V] {
	return Iterator[K, V]{tree, 0}
}

// NegativeLimit creates an iterator that points before the minimum item in the tree.
func (tree *Tree[K, V]) NegativeLimit() Iterator[K, V] {
	return Iterator[K, V]{tree, negativeLimitNode}
}

// Ceiling returns the least element >= key, or Limit().
func (tree *Tree[K, V]) Ceiling(key K) Iterator[K, V] {
	return tree.descendUp(key, true)
}

// Higher returns the least element > key, or Limit().
func (tree *Tree[K, V]) Higher(key K) Iterator[K, V] {
	return tree.descendUp(key, false)
}

// Floor returns the greatest element <= key, or NegativeLimit().
func (tree *Tree[K, V]) Floor(key K) Iterator[K, V] {
	return tree.descendDown(key, true)
}

// Lower returns the greatest element < key, or NegativeLimit().
func (tree *Tree[K, V]) Lower(key K) Iterator[K, V] {
	return tree.descendDown(key, false)
}

// Seek returns the first element whose key satisfies bound(key) >= 0, or Limit().
// bound must be non-decreasing along the tree order; it reports where a node's
// key lies relative to the sought position.
func (tree *Tree[K, V]) Seek(bound func(key K) int) Iterator[K, V] {
	alloc := tree.storage()
	best := uint32(0)

	for nodeIdx := tree.root; nodeIdx != 0; {
		if bound(alloc[nodeIdx].key) >= 0 {
			best = nodeIdx
			nodeIdx = alloc[nodeIdx].left
		} else {
			nodeIdx = alloc[nodeIdx].right
		}
	}

	return Iterator[K, V]{tree, best}
}

// Single descent tracking the best candidate above key.
func (tree *Tree[K, V]) descendUp(key K, inclusive bool) Iterator[K, V] {
	tree.checkKey(key)

	alloc := tree.storage()
	best := uint32(0)

	for nodeIdx := tree.root; nodeIdx != 0; {
		comp := tree.compare(key, alloc[nodeIdx].key)

		switch {
		case comp == 0 && inclusive:
			return Iterator[K, V]{tree, nodeIdx}
		case comp < 0:
			best = nodeIdx
			nodeIdx = alloc[nodeIdx].left
		default:
			nodeIdx = alloc[nodeIdx].right
		}
	}

	return Iterator[K, V]{tree, best}
}

// Single descent tracking the best candidate below key.
func (tree *Tree[K, V]) descendDown(key K, inclusive bool) Iterator[K, V] {
	tree.checkKey(key)

	alloc := tree.storage()
	best := uint32(negativeLimitNode)

	for nodeIdx := tree.root; nodeIdx != 0; {
		comp := tree.compare(key, alloc[nodeIdx].key)

		switch {
		case comp == 0 && inclusive:
			return Iterator[K, V]{tree, nodeIdx}
		case comp > 0:
			best = nodeIdx
			nodeIdx = alloc[nodeIdx].right
		default:
			nodeIdx = alloc[nodeIdx].left
		}
	}

	return Iterator[K, V]{tree, best}
}

// Iterator allows scanning tree elements in sort order.
//
// Deleting the element an iterator points to invalidates it, except through
// DeleteAt which hands back the iterator to continue with. Other operations
// leave iterators valid.
type Iterator[K, V any] struct {
	tree *Tree[K, V]
	node uint32
}

// Equal checks for the underlying nodes equality.
func (iter Iterator[K, V]) Equal(other Iterator[K, V]) bool {
	return iter.node == other.node
}

// Limit checks if the iterator points beyond the max element in the tree.
func (iter Iterator[K, V]) Limit() bool {
	return iter.node == 0
}

// NegativeLimit checks if the iterator points before the minimum element in the tree.
func (iter Iterator[K, V]) NegativeLimit() bool {
	return iter.node == negativeLimitNode
}

// Valid reports whether the iterator points at an element.
func (iter Iterator[K, V]) Valid() bool {
	return !iter.Limit() && !iter.NegativeLimit()
}

// Min checks if the iterator points to the minimum element in the tree.
func (iter Iterator[K, V]) Min() bool {
	return iter.node == iter.tree.minNode
}

// Max checks if the iterator points to the maximum element in the tree.
func (iter Iterator[K, V]) Max() bool {
	return iter.node == iter.tree.maxNode
}

// Key returns the key of the current element.
//
// REQUIRES: iter.Valid().
func (iter Iterator[K, V]) Key() K {
	doAssert(iter.Valid())

	return iter.tree.storage()[iter.node].key
}

// Value returns the value of the current element.
//
// REQUIRES: iter.Valid().
func (iter Iterator[K, V]) Value() V {
	doAssert(iter.Valid())

	return iter.tree.storage()[iter.node].value
}

// SetValue replaces the value of the current element and returns the old one.
//
// REQUIRES: iter.Valid().
func (iter Iterator[K, V]) SetValue(value V) V {
	doAssert(iter.Valid())

	nd := &iter.tree.storage()[iter.node]
	old := nd.value
	nd.value = value

	return old
}

// Next creates a new iterator that points to the successor of the current element.
//
// REQUIRES: !iter.Limit().
func (iter Iterator[K, V]) Next() Iterator[K, V] {
	doAssert(!iter.Limit())

	if iter.NegativeLimit() {
		return Iterator[K, V]{iter.tree, iter.tree.minNode}
	}

	return Iterator[K, V]{iter.tree, doNext(iter.node, iter.tree.storage())}
}

// Prev creates a new iterator that points to the predecessor of the current
// node.
//
// REQUIRES: !iter.NegativeLimit().
func (iter Iterator[K, V]) Prev() Iterator[K, V] {
	doAssert(!iter.NegativeLimit())

	if !iter.Limit() {
		return Iterator[K, V]{iter.tree, doPrev(iter.node, iter.tree.storage())}
	}

	if iter.tree.maxNode == 0 {
		return Iterator[K, V]{iter.tree, negativeLimitNode}
	}

	return Iterator[K, V]{iter.tree, iter.tree.maxNode}
}

func doAssert(condition bool) {
	if !condition {
		panic("rbtree internal assertion failed")
	}
}

// Internal node attribute accessors.
func getColor[K, V any](nodeIdx uint32, alloc []node[K, V]) bool {
	if nodeIdx == 0 {
		return black
	}

	return alloc[nodeIdx].color
}

func setColor[K, V any](nodeIdx uint32, color bool, alloc []node[K, V]) {
	if nodeIdx != 0 {
		alloc[nodeIdx].color = color
	}
}

func isLeftChild[K, V any](nodeIdx uint32, alloc []node[K, V]) bool {
	return nodeIdx == alloc[alloc[nodeIdx].parent].left
}

func isRightChild[K, V any](nodeIdx uint32, alloc []node[K, V]) bool {
	return nodeIdx == alloc[alloc[nodeIdx].parent].right
}

// Return the minimum node that's larger than N. Return 0 if no such
// node is found.
func doNext[K, V any](nodeIdx uint32, alloc []node[K, V]) uint32 {
	if alloc[nodeIdx].right != 0 {
		cursor := alloc[nodeIdx].right

		for alloc[cursor].left != 0 {
			cursor = alloc[cursor].left
		}

		return cursor
	}

	for nodeIdx != 0 {
		parentIdx := alloc[nodeIdx].parent
		if parentIdx == 0 {
			return 0
		}

		if isLeftChild(nodeIdx, alloc) {
			return parentIdx
		}

		nodeIdx = parentIdx
	}

	return 0
}

// Return the maximum node that's smaller than N. Return negativeLimitNode
// if no such node is found.
func doPrev[K, V any](nodeIdx uint32, alloc []node[K, V]) uint32 {
	if alloc[nodeIdx].left != 0 {
		cursor := alloc[nodeIdx].left

		for alloc[cursor].right != 0 {
			cursor = alloc[cursor].right
		}

		return cursor
	}

	for nodeIdx != 0 {
		parentIdx := alloc[nodeIdx].parent
		if parentIdx == 0 {
			break
		}

		if isRightChild(nodeIdx, alloc) {
			return parentIdx
		}

		nodeIdx = parentIdx
	}

	return negativeLimitNode
}

// Private methods.

// checkKey runs the comparator on key when no node would. Nil or incomparable keys
// then fail on an empty tree exactly as they do on a populated one.
func (tree *Tree[K, V]) checkKey(key K) {
	if tree.root == 0 {
		tree.compare(key, key)
	}
}

func (tree *Tree[K, V]) find(key K) uint32 {
	tree.checkKey(key)

	alloc := tree.storage()
	nodeIdx := tree.root

	for nodeIdx != 0 {
		comp := tree.compare(key, alloc[nodeIdx].key)

		switch {
		case comp == 0:
			return nodeIdx
		case comp < 0:
			nodeIdx = alloc[nodeIdx].left
		default:
			nodeIdx = alloc[nodeIdx].right
		}
	}

	return 0
}

func (tree *Tree[K, V]) recomputeMinNode() {
	tree.minNode = leftmost(tree.root, tree.storage())
}

func (tree *Tree[K, V]) recomputeMaxNode() {
	tree.maxNode = rightmost(tree.root, tree.storage())
}

func leftmost[K, V any](nodeIdx uint32, alloc []node[K, V]) uint32 {
	if nodeIdx != 0 {
		for alloc[nodeIdx].left != 0 {
			nodeIdx = alloc[nodeIdx].left
		}
	}

	return nodeIdx
}

func rightmost[K, V any](nodeIdx uint32, alloc []node[K, V]) uint32 {
	if nodeIdx != 0 {
		for alloc[nodeIdx].right != 0 {
			nodeIdx = alloc[nodeIdx].right
		}
	}

	return nodeIdx
}

// Try inserting key into the tree. Returns the existing node and false when the
// key is already present, otherwise the new node and true.
func (tree *Tree[K, V]) doInsert(key K, value V) (uint32, bool) {
	if tree.root == 0 {
		tree.checkKey(key)

		nodeIdx := tree.allocator.malloc()
		nd := &tree.storage()[nodeIdx]
		nd.key = key
		nd.value = value
		nd.color = black
		tree.root = nodeIdx
		tree.minNode = nodeIdx
		tree.maxNode = nodeIdx
		tree.count++

		return nodeIdx, true
	}

	alloc := tree.storage()
	parent := tree.root

	var comp int

	for {
		comp = tree.compare(key, alloc[parent].key)
		if comp == 0 {
			return parent, false
		}

		child := alloc[parent].right
		if comp < 0 {
			child = alloc[parent].left
		}

		if child == 0 {
			break
		}

		parent = child
	}

	nodeIdx := tree.allocator.malloc()
	alloc = tree.storage()

	nd := &alloc[nodeIdx]
	nd.key = key
	nd.value = value
	nd.parent = parent
	nd.color = red

	if comp < 0 {
		alloc[parent].left = nodeIdx

		if parent == tree.minNode {
			tree.minNode = nodeIdx
		}
	} else {
		alloc[parent].right = nodeIdx

		if parent == tree.maxNode {
			tree.maxNode = nodeIdx
		}
	}

	tree.count++
	tree.fixAfterInsertion(nodeIdx)

	return nodeIdx, true
}

// fixAfterInsertion restores the red-black properties after attaching a red leaf.
func (tree *Tree[K, V]) fixAfterInsertion(nodeIdx uint32) {
	alloc := tree.storage()

	for nodeIdx != tree.root && getColor(alloc[nodeIdx].parent, alloc) == red {
		parent := alloc[nodeIdx].parent
		// A red parent is never the root, so the grandparent exists.
		grandparent := alloc[parent].parent

		if parent == alloc[grandparent].left {
			uncle := alloc[grandparent].right

			if getColor(uncle, alloc) == red {
				setColor(parent, black, alloc)
				setColor(uncle, black, alloc)
				setColor(grandparent, red, alloc)
				nodeIdx = grandparent

				continue
			}

			if nodeIdx == alloc[parent].right {
				// Inner child: rotate into the outer configuration first.
				nodeIdx = parent
				tree.rotateLeft(nodeIdx)
				parent = alloc[nodeIdx].parent
			}

			setColor(parent, black, alloc)
			setColor(grandparent, red, alloc)
			tree.rotateRight(grandparent)
		} else {
			uncle := alloc[grandparent].left

			if getColor(uncle, alloc) == red {
				setColor(parent, black, alloc)
				setColor(uncle, black, alloc)
				setColor(grandparent, red, alloc)
				nodeIdx = grandparent

				continue
			}

			if nodeIdx == alloc[parent].left {
				nodeIdx = parent
				tree.rotateRight(nodeIdx)
				parent = alloc[nodeIdx].parent
			}

			setColor(parent, black, alloc)
			setColor(grandparent, red, alloc)
			tree.rotateLeft(grandparent)
		}
	}

	setColor(tree.root, black, alloc)
}

// Delete N from the tree.
func (tree *Tree[K, V]) doDelete(nodeIdx uint32) {
	alloc := tree.storage()

	// With two children, the successor's contents move into N and the
	// successor, which has at most one child, is spliced out instead.
	if alloc[nodeIdx].left != 0 && alloc[nodeIdx].right != 0 {
		succ := doNext(nodeIdx, alloc)
		alloc[nodeIdx].key = alloc[succ].key
		alloc[nodeIdx].value = alloc[succ].value
		nodeIdx = succ
	}

	replacement := alloc[nodeIdx].left
	if replacement == 0 {
		replacement = alloc[nodeIdx].right
	}

	switch {
	case replacement != 0:
		tree.replaceNode(nodeIdx, replacement)

		if alloc[nodeIdx].color == black {
			tree.fixAfterDeletion(replacement)
		}
	case alloc[nodeIdx].parent == 0:
		tree.root = 0
	default:
		// No children: N serves as the phantom replacement during the fixup.
		if alloc[nodeIdx].color == black {
			tree.fixAfterDeletion(nodeIdx)
		}

		tree.replaceNode(nodeIdx, 0)
	}

	tree.allocator.free(nodeIdx)
	tree.count--

	if tree.count == 0 {
		tree.minNode = 0
		tree.maxNode = 0

		return
	}

	if tree.minNode == nodeIdx {
		tree.recomputeMinNode()
	}

	if tree.maxNode == nodeIdx {
		tree.recomputeMaxNode()
	}
}

// fixAfterDeletion restores the red-black properties after a black node was spliced out.
// nodeIdx carries the extra black.
func (tree *Tree[K, V]) fixAfterDeletion(nodeIdx uint32) {
	alloc := tree.storage()

	for nodeIdx != tree.root && getColor(nodeIdx, alloc) == black {
		parent := alloc[nodeIdx].parent

		if nodeIdx == alloc[parent].left {
			sib := alloc[parent].right

			if getColor(sib, alloc) == red {
				setColor(sib, black, alloc)
				setColor(parent, red, alloc)
				tree.rotateLeft(parent)
				sib = alloc[parent].right
			}

			if getColor(alloc[sib].left, alloc) == black && getColor(alloc[sib].right, alloc) == black {
				setColor(sib, red, alloc)
				nodeIdx = parent

				continue
			}

			if getColor(alloc[sib].right, alloc) == black {
				setColor(alloc[sib].left, black, alloc)
				setColor(sib, red, alloc)
				tree.rotateRight(sib)
				sib = alloc[parent].right
			}

			setColor(sib, getColor(parent, alloc), alloc)
			setColor(parent, black, alloc)
			setColor(alloc[sib].right, black, alloc)
			tree.rotateLeft(parent)

			nodeIdx = tree.root
		} else {
			sib := alloc[parent].left

			if getColor(sib, alloc) == red {
				setColor(sib, black, alloc)
				setColor(parent, red, alloc)
				tree.rotateRight(parent)
				sib = alloc[parent].left
			}

			if getColor(alloc[sib].right, alloc) == black && getColor(alloc[sib].left, alloc) == black {
				setColor(sib, red, alloc)
				nodeIdx = parent

				continue
			}

			if getColor(alloc[sib].left, alloc) == black {
				setColor(alloc[sib].right, black, alloc)
				setColor(sib, red, alloc)
				tree.rotateLeft(sib)
				sib = alloc[parent].left
			}

			setColor(sib, getColor(parent, alloc), alloc)
			setColor(parent, black, alloc)
			setColor(alloc[sib].left, black, alloc)
			tree.rotateRight(parent)

			nodeIdx = tree.root
		}
	}

	setColor(nodeIdx, black, alloc)
}

// replaceNode puts newn in oldn's place under oldn's parent and detaches oldn.
func (tree *Tree[K, V]) replaceNode(oldn, newn uint32) {
	alloc := tree.storage()
	parent := alloc[oldn].parent

	switch {
	case parent == 0:
		tree.root = newn
	case oldn == alloc[parent].left:
		alloc[parent].left = newn
	default:
		alloc[parent].right = newn
	}

	if newn != 0 {
		alloc[newn].parent = parent
	}

	alloc[oldn].parent = 0
	alloc[oldn].left = 0
	alloc[oldn].right = 0
}

// rotateDirection performs a tree rotation in the specified direction.
// IsLeft=true performs left rotation, isLeft=false performs right rotation.
// Colors are never touched.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
func (tree *Tree[K, V]) rotateDirection(pivot uint32, isLeft bool) {
	alloc := tree.storage()

	// Get the child in the opposite direction of rotation.
	var child uint32
	if isLeft {
		child = alloc[pivot].right
	} else {
		child = alloc[pivot].left
	}

	// Move the inner subtree.
	var innerSubtree uint32
	if isLeft {
		innerSubtree = alloc[child].left
		alloc[pivot].right = innerSubtree
	} else {
		innerSubtree = alloc[child].right
		alloc[pivot].left = innerSubtree
	}

	if innerSubtree != 0 {
		alloc[innerSubtree].parent = pivot
	}

	// Update parent links.
	alloc[child].parent = alloc[pivot].parent

	switch {
	case alloc[pivot].parent == 0:
		tree.root = child
	case isLeftChild(pivot, alloc):
		alloc[alloc[pivot].parent].left = child
	default:
		alloc[alloc[pivot].parent].right = child
	}

	// Complete the rotation.
	if isLeft {
		alloc[child].left = pivot
	} else {
		alloc[child].right = pivot
	}

	alloc[pivot].parent = child
}

func (tree *Tree[K, V]) rotateLeft(nodeIdx uint32) {
	tree.rotateDirection(nodeIdx, true)
}

func (tree *Tree[K, V]) rotateRight(nodeIdx uint32) {
	tree.rotateDirection(nodeIdx, false)
}

// Verify checks every structural invariant: black root, no red node with a red
// child, equal black height on all paths, consistent parent links, strictly
// increasing in-order keys, and the cached count, minimum and maximum.
func (tree *Tree[K, V]) Verify() error {
	if tree.root == 0 {
		if tree.count != 0 || tree.minNode != 0 || tree.maxNode != 0 {
			return fmt.Errorf("%w: empty tree with count %d", ErrInvariant, tree.count)
		}

		return nil
	}

	alloc := tree.storage()

	if alloc[tree.root].color != black {
		return fmt.Errorf("%w: red root", ErrInvariant)
	}

	if alloc[tree.root].parent != 0 {
		return fmt.Errorf("%w: root has a parent", ErrInvariant)
	}

	_, count, err := tree.verifySubtree(tree.root)
	if err != nil {
		return err
	}

	if count != tree.count {
		return fmt.Errorf("%w: counted %d nodes, cached %d", ErrInvariant, count, tree.count)
	}

	if leftmost(tree.root, alloc) != tree.minNode || rightmost(tree.root, alloc) != tree.maxNode {
		return fmt.Errorf("%w: stale min/max cache", ErrInvariant)
	}

	prev := tree.minNode
	for iter := tree.Min().Next(); !iter.Limit(); iter = iter.Next() {
		if tree.compare(alloc[prev].key, alloc[iter.node].key) >= 0 {
			return fmt.Errorf("%w: keys out of order at node %d", ErrInvariant, iter.node)
		}

		prev = iter.node
	}

	return nil
}

// verifySubtree returns the black height and node count below nodeIdx.
func (tree *Tree[K, V]) verifySubtree(nodeIdx uint32) (int, int, error) {
	if nodeIdx == 0 {
		return 1, 0, nil
	}

	alloc := tree.storage()
	nd := alloc[nodeIdx]

	for _, child := range [2]uint32{nd.left, nd.right} {
		if child == 0 {
			continue
		}

		if alloc[child].parent != nodeIdx {
			return 0, 0, fmt.Errorf("%w: node %d has a broken parent link", ErrInvariant, child)
		}

		if nd.color == red && alloc[child].color == red {
			return 0, 0, fmt.Errorf("%w: red node %d has a red child", ErrInvariant, nodeIdx)
		}
	}

	leftHeight, leftCount, err := tree.verifySubtree(nd.left)
	if err != nil {
		return 0, 0, err
	}

	rightHeight, rightCount, err := tree.verifySubtree(nd.right)
	if err != nil {
		return 0, 0, err
	}

	if leftHeight != rightHeight {
		return 0, 0, fmt.Errorf("%w: black height %d != %d under node %d",
			ErrInvariant, leftHeight, rightHeight, nodeIdx)
	}

	if nd.color == black {
		leftHeight++
	}

	return leftHeight, leftCount + rightCount + 1, nil
}
