// Copyright 2025 Joseph Cumines

//go:build windows

package a11y

import "fmt"

// NewProvider returns the native provider of the given kind.
func NewProvider(kind Kind) (Provider, error) {
	switch kind {
	case KindUIA, "":
		p, err := newUIAProvider()
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindMSAA:
		p, err := newMSAAProvider()
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("invalid provider %q", kind)
}
