// Copyright 2025 Joseph Cumines

//go:build !windows

package input

import (
	"fmt"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
)

// NativeOS returns a11y.ErrUnsupported; input synthesis exists only on
// Windows.
func NativeOS() (OS, error) {
	return nil, fmt.Errorf("%w: input synthesis", a11y.ErrUnsupported)
}
