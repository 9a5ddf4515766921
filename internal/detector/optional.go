package detector

// Optional holds a value that an upstream source may not have produced.
// The zero value is absent.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether a value is set.
func (o Optional[T]) Present() bool {
	return o.ok
}

// OrElse returns the value if present, otherwise def.
func (o Optional[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// MinPresent returns the smallest of the present values, or absent when none is set.
func MinPresent(opts ...Optional[int]) Optional[int] {
	var out Optional[int]
	for _, o := range opts {
		v, ok := o.Get()
		if !ok {
			continue
		}
		if !out.ok || v < out.value {
			out = Some(v)
		}
	}
	return out
}
