// Copyright 2025 Joseph Cumines
//
// Package a11y captures accessibility snapshots of a single target window.
//
// A Provider wraps one OS accessibility API (MSAA or UIAutomation). A Builder
// drives a Provider through a depth-first capture, producing an immutable
// Snapshot whose native handles are only valid until the Builder's next
// capture.

package a11y

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProviderFault is returned when the accessibility API cannot service
	// a request that is not isolated at property granularity (e.g. resolving
	// the target window).
	ErrProviderFault = errors.New("accessibility provider fault")

	// ErrStaleHandle is returned when a Snapshot is used to reach a native
	// element after its Builder has captured a newer generation.
	ErrStaleHandle = errors.New("stale accessibility handle")

	// ErrUnknownElement is returned for ids that are not part of a Snapshot.
	ErrUnknownElement = errors.New("unknown element id")

	// ErrUnsupported is returned by providers on platforms without the
	// underlying accessibility API.
	ErrUnsupported = errors.New("accessibility provider unsupported on this platform")
)

// Kind identifies a Provider implementation.
type Kind string

const (
	// KindUIA is the UIAutomation backed provider.
	KindUIA Kind = "uia"
	// KindMSAA is the MSAA (IAccessible) backed provider.
	KindMSAA Kind = "msaa"
)

// ParseKind parses a provider kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindUIA:
		return KindUIA, nil
	case KindMSAA:
		return KindMSAA, nil
	}
	return "", fmt.Errorf("invalid provider %q (must be 'uia' or 'msaa')", s)
}

// Window is a native top-level window handle. Zero means no window.
type Window uintptr

// Element is an opaque native accessibility element. Implementations own
// the concrete type; callers must only pass Elements back to the Provider
// that produced them.
type Element any

// Rect is a rectangle in screen coordinates.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Width returns the rectangle width.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the rectangle height.
func (r Rect) Height() int { return r.Bottom - r.Top }

// IsZero reports whether all edges are zero, which is what failed reads
// produce.
func (r Rect) IsZero() bool { return r == Rect{} }

// Contains reports whether the point lies within r, edges included.
func (r Rect) Contains(x, y int) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Center returns the geometric center of r.
func (r Rect) Center() (x, y int) {
	return r.Left + r.Width()/2, r.Top + r.Height()/2
}

func (r Rect) String() string {
	return fmt.Sprintf("X=%d,Y=%d,Width=%d,Height=%d", r.Left, r.Top, r.Width(), r.Height())
}

// Provider is the capability set of one accessibility backend.
//
// Every Read* method may fail independently; the Builder converts failures
// to zero values. Implementations must tolerate being handed elements that
// were already released, returning an error rather than crashing.
type Provider interface {
	// Kind identifies the backend.
	Kind() Kind

	// ResolveWindow finds the target window by title, falling back to the
	// foreground window. An empty title selects the foreground window.
	ResolveWindow(title string) (Window, error)

	// WindowRect returns the window's screen rectangle.
	WindowRect(w Window) (Rect, error)

	// WindowTitle returns the window's title text.
	WindowTitle(w Window) (string, error)

	// CaptureRoot attaches to the window and returns its root element.
	CaptureRoot(w Window) (Element, error)

	ReadName(el Element) (string, error)
	ReadRole(el Element) (int, error)
	ReadValue(el Element) (string, error)

	// ReadChildCount reports how many children el has. A successful zero
	// lets the Builder skip enumeration; backends without a cheap count
	// return an error.
	ReadChildCount(el Element) (int, error)
	ReadBoundingRect(el Element) (Rect, error)

	// EnumerateChildren returns the ordered children of el. A failure
	// part-way through must be reported as an error, not a partial list.
	EnumerateChildren(el Element) ([]Element, error)

	// ReadField reads a provider-specific field, as named by ExtraFields or
	// ReportFields.
	ReadField(el Element, field string) (string, error)

	// ExtraFields lists fields captured as extra node attributes.
	ExtraFields() []string

	// ReportFields lists the fields of the property report, in order.
	ReportFields() []string

	// RoleName maps a numeric role code to its display name.
	RoleName(code int) string

	// Release drops the native reference held by el.
	Release(el Element)

	// Close releases the backend itself. The Provider must not be used
	// afterwards.
	Close() error
}
