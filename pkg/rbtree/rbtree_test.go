package rbtree //nolint:testpackage // tests require access to unexported fields (storage, gaps, minNode, etc.)

import (
	"cmp"
	"math/rand"
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Create a tree storing a set of integers.
func testNewIntSet() *Tree[int, int] {
	return New(NewAllocator[int, int](), cmp.Compare[int])
}

func testAssert(tb testing.TB, condition bool, message string) {
	tb.Helper()
	assert.True(tb, condition, message)
}

func boolInsert(tree *Tree[int, int], item int) bool {
	status, _ := tree.Insert(item, item)

	return status
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, tree.Len() == 0, "len!=0")
	testAssert(t, tree.Max().NegativeLimit(), "neglimit")
	testAssert(t, tree.Min().Limit(), "limit")
	testAssert(t, tree.Ceiling(10).Limit(), "Not empty")
	testAssert(t, tree.Floor(10).NegativeLimit(), "Not empty")
	testAssert(t, tree.Higher(10).Limit(), "Not empty")
	testAssert(t, tree.Lower(10).NegativeLimit(), "Not empty")

	_, ok := tree.Get(10)
	testAssert(t, !ok, "Not empty")
	testAssert(t, tree.Limit().Equal(tree.Min()), "iter")
	require.NoError(t, tree.Verify())
}

func TestCeiling(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, boolInsert(tree, 10), "Insert1")
	testAssert(t, !boolInsert(tree, 10), "Insert2")
	testAssert(t, tree.Len() == 1, "len==1")
	assert.Equal(t, 10, tree.Ceiling(10).Key())
	testAssert(t, tree.Ceiling(11).Limit(), "Ceiling 11")
	assert.Equal(t, 10, tree.Ceiling(9).Key())
	testAssert(t, tree.Higher(10).Limit(), "Higher 10")
	assert.Equal(t, 10, tree.Higher(9).Key())
}

func TestFloor(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, boolInsert(tree, 10), "insert1")
	assert.Equal(t, 10, tree.Floor(10).Key())
	assert.Equal(t, 10, tree.Floor(11).Key())
	testAssert(t, tree.Floor(9).NegativeLimit(), "Floor 9")
	testAssert(t, tree.Lower(10).NegativeLimit(), "Lower 10")
	assert.Equal(t, 10, tree.Lower(11).Key())
}

func TestGet(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, boolInsert(tree, 10), "insert1")

	value, ok := tree.Get(10)
	require.True(t, ok)
	assert.Equal(t, 10, value, "Get 10")

	_, ok = tree.Get(9)
	testAssert(t, !ok, "Get 9")

	_, ok = tree.Get(11)
	testAssert(t, !ok, "Get 11")
}

func TestPutReplacesInPlace(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	old, replaced := tree.Put(1, 100)
	assert.False(t, replaced)
	assert.Zero(t, old)

	before := tree.Find(1)

	old, replaced = tree.Put(1, 200)
	assert.True(t, replaced)
	assert.Equal(t, 100, old)
	assert.Equal(t, 1, tree.Len())
	assert.True(t, before.Equal(tree.Find(1)), "replacement must not move the node")
	assert.Equal(t, 200, before.Value())
}

func TestDelete(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	_, ok := tree.Delete(10)
	testAssert(t, !ok, "del")
	testAssert(t, tree.Len() == 0, "dellen")
	testAssert(t, boolInsert(tree, 10), "ins")

	_, ok = tree.Delete(10)
	testAssert(t, ok, "del")
	testAssert(t, tree.Len() == 0, "dellen")

	// Deleting a missing key must not touch its neighbours.
	testAssert(t, boolInsert(tree, 10), "ins")

	_, ok = tree.Delete(9)
	testAssert(t, !ok, "del")
	testAssert(t, tree.Len() == 1, "dellen")
}

func iterToString(iter Iterator[int, int]) string {
	result := ""

	for ; !iter.Limit(); iter = iter.Next() {
		if result != "" {
			result += ","
		}

		result += strconv.Itoa(iter.Key())
	}

	return result
}

func reverseIterToString(iter Iterator[int, int]) string {
	result := ""

	for ; !iter.NegativeLimit(); iter = iter.Prev() {
		if result != "" {
			result += ","
		}

		result += strconv.Itoa(iter.Key())
	}

	return result
}

func TestIterator(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	for idx := 0; idx < 10; idx += 2 {
		boolInsert(tree, idx)
	}

	assert.Equal(t, "4,6,8", iterToString(tree.Ceiling(3)))
	assert.Equal(t, "4,6,8", iterToString(tree.Ceiling(4)))
	assert.Equal(t, "6,8", iterToString(tree.Higher(4)))
	assert.Equal(t, "8", iterToString(tree.Ceiling(8)))
	assert.Empty(t, iterToString(tree.Ceiling(9)))
	assert.Equal(t, "2,0", reverseIterToString(tree.Floor(3)))
	assert.Equal(t, "2,0", reverseIterToString(tree.Floor(2)))
	assert.Equal(t, "0", reverseIterToString(tree.Lower(2)))
	assert.Equal(t, "0", reverseIterToString(tree.Floor(0)))
}

func TestSeek(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	for _, key := range []int{5, 3, 8, 1, 4, 7, 9} {
		boolInsert(tree, key)
	}

	iter := tree.Seek(func(key int) int { return cmp.Compare(key, 6) })
	assert.Equal(t, "7,8,9", iterToString(iter))

	iter = tree.Seek(func(key int) int { return cmp.Compare(key, 4) })
	assert.Equal(t, 4, iter.Key())

	assert.True(t, tree.Seek(func(int) int { return -1 }).Limit())
	assert.Equal(t, 1, tree.Seek(func(int) int { return 1 }).Key())
}

// Randomized tests.

// oracle provides an interface similar to rbtree, but stores
// data in a sorted array.
type oracle struct {
	data []int
}

func newOracle() *oracle {
	return &oracle{data: make([]int, 0)}
}

func (o *oracle) Len() int {
	return len(o.data)
}

func (o *oracle) Insert(key int) bool {
	idx, found := slices.BinarySearch(o.data, key)
	if found {
		return false
	}

	o.data = slices.Insert(o.data, idx, key)

	return true
}

func (o *oracle) RandomExistingKey(rng *rand.Rand) int {
	index := rng.Intn(len(o.data))

	return o.data[index]
}

func (o *oracle) Ceiling(key int) oracleIterator {
	idx, _ := slices.BinarySearch(o.data, key)

	return oracleIterator{o: o, index: idx}
}

func (o *oracle) Higher(key int) oracleIterator {
	return o.Ceiling(key + 1)
}

func (o *oracle) Floor(key int) oracleIterator {
	return oracleIterator{o: o, index: o.Ceiling(key+1).index - 1}
}

func (o *oracle) Lower(key int) oracleIterator {
	return oracleIterator{o: o, index: o.Ceiling(key).index - 1}
}

func (o *oracle) Delete(key int) bool {
	idx, found := slices.BinarySearch(o.data, key)
	if !found {
		return false
	}

	o.data = slices.Delete(o.data, idx, idx+1)

	return true
}

// Test iterator.
type oracleIterator struct {
	o     *oracle
	index int
}

func (oiter oracleIterator) Limit() bool {
	return oiter.index >= len(oiter.o.data)
}

func (oiter oracleIterator) NegativeLimit() bool {
	return oiter.index < 0
}

func (oiter oracleIterator) Item() int {
	return oiter.o.data[oiter.index]
}

func (oiter oracleIterator) Next() oracleIterator {
	return oracleIterator{oiter.o, oiter.index + 1}
}

func (oiter oracleIterator) Prev() oracleIterator {
	return oracleIterator{oiter.o, oiter.index - 1}
}

func compareContents(tb testing.TB, oiter oracleIterator, titer Iterator[int, int]) {
	tb.Helper()

	oi := oiter
	ti := titer

	// Test forward iteration.
	testAssert(tb, oi.NegativeLimit() == ti.NegativeLimit(), "rend")

	if oi.NegativeLimit() {
		oi = oi.Next()
		ti = ti.Next()
	}

	for !oi.Limit() && !ti.Limit() {
		if ti.Key() != oi.Item() {
			tb.Fatal("Wrong item", ti.Key(), oi.Item())
		}

		oi = oi.Next()
		ti = ti.Next()
	}

	if !ti.Limit() {
		tb.Fatal("!ti.done", ti.Key())
	}

	if !oi.Limit() {
		tb.Fatal("!oi.done", oi.Item())
	}

	// Test reverse iteration.
	oi = oiter
	ti = titer

	testAssert(tb, oi.Limit() == ti.Limit(), "end")

	if oi.Limit() {
		oi = oi.Prev()
		ti = ti.Prev()
	}

	for !oi.NegativeLimit() && !ti.NegativeLimit() {
		if ti.Key() != oi.Item() {
			tb.Fatal("Wrong item", ti.Key(), oi.Item())
		}

		oi = oi.Prev()
		ti = ti.Prev()
	}

	if !ti.NegativeLimit() {
		tb.Fatal("!ti.done", ti.Key())
	}

	if !oi.NegativeLimit() {
		tb.Fatal("!oi.done", oi.Item())
	}
}

func compareContentsFull(tb testing.TB, orc *oracle, tree *Tree[int, int]) {
	tb.Helper()
	compareContents(tb, orc.Ceiling(-1), tree.Ceiling(-1))
	require.NoError(tb, tree.Verify())
}

func TestRandomized(t *testing.T) {
	t.Parallel()

	const numKeys = 1000

	orc := newOracle()
	tree := testNewIntSet()
	rng := rand.New(rand.NewSource(0))

	for range 10000 {
		op := rng.Intn(100)

		switch {
		case op < 50:
			key := rng.Intn(numKeys)
			assert.Equal(t, orc.Insert(key), boolInsert(tree, key))
			compareContentsFull(t, orc, tree)
		case op < 80 && orc.Len() > 0:
			key := orc.RandomExistingKey(rng)
			orc.Delete(key)

			if _, ok := tree.Delete(key); !ok {
				t.Fatal("DeleteExisting", key)
			}

			compareContentsFull(t, orc, tree)
		case op < 85:
			key := rng.Intn(numKeys)
			compareContents(t, orc.Ceiling(key), tree.Ceiling(key))
		case op < 90:
			key := rng.Intn(numKeys)
			compareContents(t, orc.Higher(key), tree.Higher(key))
		case op < 95:
			key := rng.Intn(numKeys)
			compareContents(t, orc.Floor(key), tree.Floor(key))
		default:
			key := rng.Intn(numKeys)
			compareContents(t, orc.Lower(key), tree.Lower(key))
		}
	}
}

func TestAllocatorFreeZero(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int, int]()
	alloc.malloc()
	assert.Panics(t, func() { alloc.free(0) })
}

func TestAllocatorReusesGaps(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	for i := range 100 {
		boolInsert(tree, i)
	}

	size := tree.Allocator().Size()
	assert.Equal(t, 100, tree.Allocator().Used())

	for i := range 50 {
		tree.Delete(i)
	}

	assert.Equal(t, 50, tree.Allocator().Used())

	for i := range 50 {
		boolInsert(tree, i+1000)
	}

	assert.Equal(t, size, tree.Allocator().Size(), "freed slots must be reused")
	assert.Equal(t, 100, tree.Allocator().Used())
	require.NoError(t, tree.Verify())
}

func TestSharedAllocator(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int, int]()
	first := New(alloc, cmp.Compare[int])
	second := New(alloc, cmp.Compare[int])

	for i := range 20 {
		boolInsert(first, i)
		boolInsert(second, -i)
	}

	assert.Equal(t, 40, alloc.Used())

	first.Erase()
	assert.Equal(t, 0, first.Len())
	assert.Equal(t, 20, alloc.Used())
	assert.Equal(t, 20, second.Len())
	assert.Equal(t, -19, second.Min().Key())
	require.NoError(t, first.Verify())
	require.NoError(t, second.Verify())
}

func TestErase(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	for i := range 10 {
		boolInsert(tree, i)
	}

	assert.Equal(t, 10, tree.Len())
	assert.Equal(t, 10, tree.Allocator().Used())
	tree.Erase()
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 0, tree.Allocator().Used())
	assert.True(t, tree.Min().Limit())
	assert.True(t, tree.Max().NegativeLimit())
	require.NoError(t, tree.Verify())
}

func TestNegativeLimit(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	for i := range 5 {
		boolInsert(tree, i)
	}

	iter := tree.NegativeLimit()
	assert.True(t, iter.NegativeLimit())
	assert.False(t, iter.Valid())

	iter = iter.Next()
	assert.True(t, iter.Min())
	assert.Equal(t, 0, iter.Key())

	iter = tree.Limit().Prev()
	assert.True(t, iter.Max())
	assert.Equal(t, 4, iter.Key())
}

func TestDeleteAt(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	tree := testNewIntSet()

	for range 500 {
		boolInsert(tree, rng.Intn(10000))
	}

	// Remove every even key while walking forward; the walk must still visit every odd key.
	var seen []int

	for iter := tree.Min(); !iter.Limit(); {
		if iter.Key()%2 == 0 {
			iter = tree.DeleteAt(iter)

			continue
		}

		seen = append(seen, iter.Key())
		iter = iter.Next()
	}

	require.NoError(t, tree.Verify())
	assert.Equal(t, len(seen), tree.Len())
	assert.True(t, slices.IsSorted(seen))

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		assert.Equal(t, 1, iter.Key()%2)
	}
}

func TestSetValue(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	boolInsert(tree, 3)

	iter := tree.Find(3)
	assert.Equal(t, 3, iter.SetValue(30))

	value, _ := tree.Get(3)
	assert.Equal(t, 30, value)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	for i := range 10 {
		boolInsert(tree, i)
	}

	require.NoError(t, tree.Verify())

	tree.storage()[tree.root].color = red
	require.ErrorIs(t, tree.Verify(), ErrInvariant)

	tree.storage()[tree.root].color = black
	tree.count++
	require.ErrorIs(t, tree.Verify(), ErrInvariant)
}

func TestVerifyLeavesStaleCacheInPlace(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	for i := range 10 {
		boolInsert(tree, i)
	}

	realMin := tree.minNode
	tree.minNode = tree.maxNode

	require.ErrorIs(t, tree.Verify(), ErrInvariant)
	require.ErrorIs(t, tree.Verify(), ErrInvariant, "a failed check must not repair the cache")
	assert.Equal(t, tree.maxNode, tree.minNode)

	tree.minNode = realMin
	require.NoError(t, tree.Verify())
}

func TestEmptyTreeStillRunsComparator(t *testing.T) {
	t.Parallel()

	calls := 0
	tree := New(NewAllocator[int, int](), func(a, b int) int {
		calls++

		return cmp.Compare(a, b)
	})

	tree.Get(1)
	tree.Find(1)
	tree.Delete(1)
	tree.Floor(1)
	tree.Ceiling(1)
	tree.Lower(1)
	tree.Higher(1)

	assert.Equal(t, 7, calls)
	assert.Zero(t, tree.Len())

	rejecting := New(NewAllocator[*int, int](), func(a, b *int) int {
		if a == nil || b == nil {
			panic("nil key")
		}

		return cmp.Compare(*a, *b)
	})

	assert.Panics(t, func() { rejecting.Get(nil) })
	assert.Panics(t, func() { rejecting.Delete(nil) })
	assert.Panics(t, func() { rejecting.Floor(nil) })
	assert.Panics(t, func() { rejecting.Higher(nil) })
}

func TestIncreasingAndDecreasingInsertStayBalanced(t *testing.T) {
	t.Parallel()

	up := testNewIntSet()
	down := testNewIntSet()

	for i := range 4096 {
		boolInsert(up, i)
		boolInsert(down, -i)
	}

	require.NoError(t, up.Verify())
	require.NoError(t, down.Verify())

	// A red-black tree of n nodes has height at most 2*log2(n+1).
	assert.LessOrEqual(t, height(up, up.root), 2*13)
	assert.LessOrEqual(t, height(down, down.root), 2*13)
}

func height(tree *Tree[int, int], nodeIdx uint32) int {
	if nodeIdx == 0 {
		return 0
	}

	alloc := tree.storage()

	return 1 + max(height(tree, alloc[nodeIdx].left), height(tree, alloc[nodeIdx].right))
}
