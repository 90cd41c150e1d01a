// Copyright 2025 Joseph Cumines
//
// Command error taxonomy

package command

import (
	"errors"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
	"github.com/joeycumines/WinA11yInspector/internal/address"
	"github.com/joeycumines/WinA11yInspector/internal/input"
)

var (
	// ErrNoProcessSelected is returned by verbs that need a target before
	// selectprocess has succeeded.
	ErrNoProcessSelected = errors.New("no process selected")

	// ErrNoElementSelected is returned when a verb without a path runs with
	// no selection in the current generation.
	ErrNoElementSelected = errors.New("no element selected")

	// ErrUnknownVerb is returned by Parse for unrecognized verbs.
	ErrUnknownVerb = errors.New("unknown verb")

	// ErrUsage is returned by Parse for malformed arguments.
	ErrUsage = errors.New("usage")

	// Errors originating in the packages below, re-exported so callers need
	// only this package.
	ErrElementNotFound = address.ErrElementNotFound
	ErrInvalidAddress  = address.ErrInvalidAddress
	ErrOSInput         = input.ErrOSInput
	ErrProviderFault   = a11y.ErrProviderFault
	ErrStaleHandle     = a11y.ErrStaleHandle
)

// Error kinds, as reported in Results and error details.
const (
	KindNoProcessSelected = "NO_PROCESS_SELECTED"
	KindNoElementSelected = "NO_ELEMENT_SELECTED"
	KindElementNotFound   = "ELEMENT_NOT_FOUND"
	KindInvalidAddress    = "INVALID_ADDRESS"
	KindOSInput           = "OS_INPUT_FAULT"
	KindProviderFault     = "PROVIDER_FAULT"
	KindUnknownVerb       = "UNKNOWN_VERB"
	KindUsage             = "USAGE"
	KindInternal          = "INTERNAL"
)

// ErrorKind classifies err into one of the Kind constants, or "" for nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoProcessSelected):
		return KindNoProcessSelected
	case errors.Is(err, ErrNoElementSelected), errors.Is(err, ErrStaleHandle):
		return KindNoElementSelected
	case errors.Is(err, ErrElementNotFound), errors.Is(err, a11y.ErrUnknownElement):
		return KindElementNotFound
	case errors.Is(err, ErrInvalidAddress):
		return KindInvalidAddress
	case errors.Is(err, ErrOSInput):
		return KindOSInput
	case errors.Is(err, ErrProviderFault), errors.Is(err, a11y.ErrUnsupported):
		return KindProviderFault
	case errors.Is(err, ErrUnknownVerb):
		return KindUnknownVerb
	case errors.Is(err, ErrUsage):
		return KindUsage
	}
	return KindInternal
}
