package hookstore

import (
	"reflect"
	"sync/atomic"
)

var selectorIDCounter uint64

// Selector derives a value from a store's state. Triggers attached under a
// selector fire only when the derived value changes. Selectors are compared
// by pointer, so create each one once (typically at package level) and reuse
// it across renders.
type Selector[T any] struct {
	id     uint64
	derive func(T) any
}

// Select creates a selector from a derivation function.
//
//	var cartCount = hookstore.Select(func(s Shop) int { return len(s.Cart) })
func Select[T, D any](fn func(T) D) *Selector[T] {
	return &Selector[T]{
		id:     atomic.AddUint64(&selectorIDCounter, 1),
		derive: func(s T) any { return fn(s) },
	}
}

// ID returns the selector's unique identifier.
func (s *Selector[T]) ID() uint64 {
	return s.id
}

// identity is the derivation of the default whole-state bucket.
func identity(v any) any {
	return v
}

// sameValue reports whether a and b are the same value for memoization.
// Comparable values use ==; slices, maps and pointers compare by reference.
// It never compares deeply, so a rebuilt struct holding a slice always counts
// as changed.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	switch ta.Kind() {
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	case reflect.Func:
		return reflect.ValueOf(a).IsNil() && reflect.ValueOf(b).IsNil()
	}

	if !ta.Comparable() {
		return false
	}
	return safeEqual(a, b)
}

// safeEqual compares with == and treats a runtime panic (a comparable struct
// holding an incomparable interface value) as unequal.
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// isPrimitive reports whether v has a scalar kind eligible for the
// unchanged-state fast path.
func isPrimitive(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// as converts an erased value back to T, yielding the zero value for nil.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

// coerce converts an untyped payload to T. A nil payload is accepted when T
// has a nil zero value.
func coerce[T any](v any) (T, bool) {
	if t, ok := v.(T); ok {
		return t, true
	}
	var zero T
	if v != nil {
		return zero, false
	}
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return zero, true
	default:
		return zero, false
	}
}
