// Package opt provides a small generic optional value, used where a Go
// nil pointer would collide with "resolved to a real nil-ish value"
// (spec.md's Definition fields marked with a trailing `?`).
//
// Grounded on original_source/src/wiz/utility/optional.h's Optional<T>,
// expressed the idiomatic Go way rather than transliterated.
package opt

// Value is a present-or-absent wrapper around a value type.
type Value[T any] struct {
	val T
	ok  bool
}

// Some wraps a present value.
func Some[T any](v T) Value[T] { return Value[T]{val: v, ok: true} }

// None returns an absent value.
func None[T any]() Value[T] { return Value[T]{} }

// Get returns the wrapped value and whether it is present.
func (o Value[T]) Get() (T, bool) { return o.val, o.ok }

// IsSome reports whether a value is present.
func (o Value[T]) IsSome() bool { return o.ok }

// MustGet returns the wrapped value, panicking if absent. Reserved for
// call sites that have already checked IsSome or that document an
// invariant guaranteeing presence.
func (o Value[T]) MustGet() T {
	if !o.ok {
		panic("opt: MustGet on empty Value")
	}
	return o.val
}

// OrElse returns the wrapped value, or fallback if absent.
func (o Value[T]) OrElse(fallback T) T {
	if o.ok {
		return o.val
	}
	return fallback
}
