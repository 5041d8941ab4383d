// Package safeconv converts node and table indexes between int and the narrower
// types used for compact storage, panicking when a value does not fit.
package safeconv

import "math"

// MaxUint32 is the largest index representable in compact storage.
const MaxUint32 = uint32(math.MaxUint32)

// MustIntToUint32 converts an index to uint32, panicking on bounds violation.
// Use only when the caller already bounds v, e.g. by MaximumCapacity.
func MustIntToUint32(v int) uint32 {
	if v < 0 || v > int(MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}
