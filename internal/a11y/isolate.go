// Copyright 2025 Joseph Cumines
//
// Fault isolation helpers for provider calls

package a11y

import "fmt"

// readOr calls fn and returns its value, or the zero value if fn fails or
// panics. COM wrappers can panic on released or disconnected objects.
func readOr[T any](fn func() (T, error)) (v T) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
		}
	}()
	v, err := fn()
	if err != nil {
		var zero T
		return zero
	}
	return v
}

// isolate runs fn, converting a panic to an error.
func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrProviderFault, r)
		}
	}()
	return fn()
}
