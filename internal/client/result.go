package client

// Result is the outcome of a gateway call: either a usable value or the empty/failure
// variant. Callers branch on the bool from Value; Err is diagnostic only.
type Result[T any] struct {
	value T
	ok    bool
	err   error
}

// Ok wraps a usable value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Failed returns the empty variant with the reason it failed. A nil err means
// the upstream answered but had nothing to offer.
func Failed[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Value returns the value and whether the call succeeded.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// Err returns why the call produced the empty variant, or nil.
func (r Result[T]) Err() error {
	return r.err
}
