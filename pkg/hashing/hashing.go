// Package hashing provides the native hash functions consumed by the hash map.
//
// A Hasher produces a 32-bit native hash. The map redistributes it with Spread
// before masking it down to a bucket index, so hashers only need to be good in
// aggregate rather than in their low bits.
package hashing

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
)

// Splitmix64 constants from the splitmix64 finalizer by Vigna (2014).
const (
	mixShift1 = 30
	mixMul1   = 0xbf58476d1ce4e5b9
	mixShift2 = 27
	mixMul2   = 0x94d049bb133111eb
	mixShift3 = 31
)

// spreadShift is how far Spread folds the high half into the low half.
const spreadShift = 16

// Hasher returns the native hash of a key. Equal keys must hash equally.
type Hasher[K any] func(key K) uint32

// Integer is the set of integer kinds accepted by Int and Identity.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Spread folds the high 16 bits of h into the low 16 bits so that small tables,
// which only look at the low bits, still see the influence of the whole hash.
func Spread(h uint32) uint32 {
	return h ^ (h >> spreadShift)
}

// Fold reduces a 64-bit hash to 32 bits.
func Fold(h uint64) uint32 {
	return uint32(h ^ (h >> 32)) //nolint:gosec // truncation is the point.
}

// Mix64 applies the splitmix64 finalizer for full-avalanche mixing.
func Mix64(v uint64) uint64 {
	v ^= v >> mixShift1
	v *= mixMul1
	v ^= v >> mixShift2
	v *= mixMul2
	v ^= v >> mixShift3

	return v
}

// Comparable hashes any comparable key with hash/maphash under a fresh random seed.
// Every call returns a hasher with its own seed.
func Comparable[K comparable]() Hasher[K] {
	return ComparableWithSeed[K](maphash.MakeSeed())
}

// ComparableWithSeed hashes any comparable key with hash/maphash under seed.
func ComparableWithSeed[K comparable](seed maphash.Seed) Hasher[K] {
	return func(key K) uint32 {
		return Fold(maphash.Comparable(seed, key))
	}
}

// String hashes string keys with xxhash. It is deterministic across processes.
func String[K ~string]() Hasher[K] {
	return func(key K) uint32 {
		return Fold(xxhash.Sum64String(string(key)))
	}
}

// Bytes returns the 32-bit xxhash of data.
func Bytes(data []byte) uint32 {
	return Fold(xxhash.Sum64(data))
}

// Int hashes integer keys through the splitmix64 finalizer.
func Int[K Integer]() Hasher[K] {
	return func(key K) uint32 {
		return Fold(Mix64(uint64(key))) //nolint:gosec // sign bits are hashed, not interpreted.
	}
}

// Identity uses the integer value itself as the hash, truncated to 32 bits.
// Sequential keys then land in sequential buckets, which keeps tables
// predictable in tests and replays.
func Identity[K Integer]() Hasher[K] {
	return func(key K) uint32 {
		return uint32(key) //nolint:gosec // truncation is the point.
	}
}
