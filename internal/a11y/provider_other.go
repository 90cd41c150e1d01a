// Copyright 2025 Joseph Cumines

//go:build !windows

package a11y

import "fmt"

// NewProvider returns ErrUnsupported; native providers exist only on
// Windows.
func NewProvider(kind Kind) (Provider, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
}
