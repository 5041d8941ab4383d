package maps

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
)

// Compare reports the order of a and b: negative when a < b, zero when equal, positive when a > b.
// A Compare must define a consistent total order for the lifetime of the map using it.
type Compare[K any] func(a, b K) int

// Comparable is implemented by key types that carry their own natural order.
type Comparable[K any] interface {
	Compare(other K) int
}

// Ordered returns the natural comparator for ordered built-in types.
func Ordered[K cmp.Ordered]() Compare[K] {
	return cmp.Compare[K]
}

// Reverse returns a comparator that inverts c.
func Reverse[K any](c Compare[K]) Compare[K] {
	return func(a, b K) int {
		return c(b, a)
	}
}

// Natural resolves the natural ordering of K once, at construction time.
//
// Keys implementing [Comparable] use their Compare method and reject nil keys.
// Integer, float and string kinds (including named types) compare by value.
// Interface-typed keys are ordered by their dynamic values on each comparison.
// Any other type has no natural order and yields [ErrIncomparableKey].
func Natural[K any]() (Compare[K], error) {
	typ := reflect.TypeFor[K]()

	if typ.Implements(reflect.TypeFor[Comparable[K]]()) {
		return compareComparable[K], nil
	}

	if typ.Kind() == reflect.Interface {
		return compareDynamic[K], nil
	}

	if !isOrderedKind(typ.Kind()) {
		return nil, fmt.Errorf("%w: %s", ErrIncomparableKey, typ)
	}

	return func(a, b K) int {
		return compareValues(reflect.ValueOf(a), reflect.ValueOf(b))
	}, nil
}

func compareComparable[K any](a, b K) int {
	if isNil(a) || isNil(b) {
		panic(ErrNilKey)
	}

	//nolint:forcetypeassert // guarded by the Implements check in Natural.
	return any(a).(Comparable[K]).Compare(b)
}

func compareDynamic[K any](a, b K) int {
	if isNil(a) || isNil(b) {
		panic(ErrNilKey)
	}

	if ca, ok := any(a).(Comparable[K]); ok {
		return ca.Compare(b)
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !isOrderedKind(va.Kind()) {
		panic(fmt.Errorf("%w: %s vs %s", ErrIncomparableKey, va.Type(), vb.Type()))
	}

	return compareValues(va, vb)
}

func compareValues(va, vb reflect.Value) int {
	switch va.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(va.Int(), vb.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(va.Uint(), vb.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(va.Float(), vb.Float())
	case reflect.String:
		return strings.Compare(va.String(), vb.String())
	default:
		panic(fmt.Errorf("%w: %s", ErrIncomparableKey, va.Type()))
	}
}

func isOrderedKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	default:
		return false
	}
}

// isNil reports whether v is nil or a typed nil of a nillable kind.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
