// Copyright 2025 Joseph Cumines
//
// Package hitindex resolves screen points to captured elements.
//
// An Index is a flat list of (rect, id) entries in document pre-order,
// built from exactly one Snapshot. Among the entries containing a point,
// the one latest in pre-order wins: the innermost of nested rectangles,
// and the later of overlapping siblings (together with its subtree).
package hitindex

import (
	"github.com/joeycumines/WinA11yInspector/internal/a11y"
)

// Entry is one indexed element.
type Entry struct {
	Rect a11y.Rect
	ID   string
}

// Index is an immutable point index over one Snapshot generation.
type Index struct {
	entries    []Entry
	generation uint64
}

// Build indexes every node of s with a non-zero rectangle.
func Build(s *a11y.Snapshot) *Index {
	x := &Index{generation: s.Generation()}
	if s != nil {
		x.entries = make([]Entry, 0, s.Len())
	}
	s.Walk(func(n *a11y.Node, _ int) bool {
		// zero rects are what failed reads produce; they never match
		if !n.Rect.IsZero() {
			x.entries = append(x.entries, Entry{Rect: n.Rect, ID: n.ID})
		}
		return true
	})
	return x
}

// Generation returns the Snapshot generation the Index was built from.
func (x *Index) Generation() uint64 {
	if x == nil {
		return 0
	}
	return x.generation
}

// Len returns the number of entries.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// Lookup returns the id of the element at the screen point (sx, sy).
func (x *Index) Lookup(sx, sy int) (string, bool) {
	if x == nil {
		return "", false
	}
	for i := len(x.entries) - 1; i >= 0; i-- {
		if x.entries[i].Rect.Contains(sx, sy) {
			return x.entries[i].ID, true
		}
	}
	return "", false
}

// Resolve converts window-client coordinates to screen coordinates using
// the window's top-left corner, then performs a Lookup.
func (x *Index) Resolve(clientX, clientY int, window a11y.Rect) (string, bool) {
	return x.Lookup(clientX+window.Left, clientY+window.Top)
}

// Overlay returns the indexed rectangles top-down, outermost first, for
// highlight rendering. The result is a copy.
func (x *Index) Overlay() []Entry {
	if x == nil {
		return nil
	}
	return append([]Entry(nil), x.entries...)
}
