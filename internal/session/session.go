// Copyright 2025 Joseph Cumines
//
// Package session holds the process-wide inspection context shared by
// every command entry point.
//
// The captured Snapshot and the two indices derived from it are published
// together as one Generation through a single atomic pointer, so a reader
// never pairs indices from different captures. Scalar fields are guarded
// by a RWMutex.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
	"github.com/joeycumines/WinA11yInspector/internal/address"
	"github.com/joeycumines/WinA11yInspector/internal/hitindex"
)

// Generation is one capture and its derived indices. It is immutable once
// published.
type Generation struct {
	Snapshot   *a11y.Snapshot
	Hits       *hitindex.Index
	Tree       *address.Tree
	WindowRect a11y.Rect
	Window     a11y.Window
	// Seq is assigned on Publish and increases across provider switches.
	Seq uint64
}

// Derive builds both indices from s.
func Derive(s *a11y.Snapshot, windowRect a11y.Rect) *Generation {
	return &Generation{
		Snapshot:   s,
		Hits:       hitindex.Build(s),
		Tree:       address.Build(s),
		Window:     s.Window(),
		WindowRect: windowRect,
	}
}

// Selection is a selected element, valid only in the generation it was
// made in.
type Selection struct {
	ID  string
	Seq uint64
}

// Status is a point-in-time summary of the State.
type Status struct {
	ProcessName       string
	WindowTitle       string
	Provider          a11y.Kind
	SelectedID        string
	Elements          int
	Seq               uint64
	Window            a11y.Window
	ShowAllHighlights bool
}

// State is the shared session context. The zero value is not usable; see
// New.
type State struct {
	gen               atomic.Pointer[Generation]
	seq               atomic.Uint64
	processName       string
	windowTitle       string
	provider          a11y.Kind
	selection         Selection
	showAllHighlights bool
	mu                sync.RWMutex
}

// New returns an empty State using provider kind.
func New(provider a11y.Kind) *State {
	return &State{provider: provider}
}

// Generation returns the current generation, or nil before the first
// capture.
func (s *State) Generation() *Generation { return s.gen.Load() }

// Publish assigns g the next sequence number and makes it current.
func (s *State) Publish(g *Generation) *Generation {
	g.Seq = s.seq.Add(1)
	s.gen.Store(g)
	return g
}

// ProcessName returns the selected process name, empty when none.
func (s *State) ProcessName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processName
}

// WindowTitle returns the resolved window's title.
func (s *State) WindowTitle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowTitle
}

// SetTarget records the selected process and resolved window title, and
// clears the selection.
func (s *State) SetTarget(processName, windowTitle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processName = processName
	s.windowTitle = windowTitle
	s.selection = Selection{}
}

// Provider returns the configured provider kind.
func (s *State) Provider() a11y.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// SetProvider records the provider kind.
func (s *State) SetProvider(k a11y.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = k
}

// Select makes id the selection within generation g.
func (s *State) Select(g *Generation, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = Selection{ID: id, Seq: g.Seq}
}

// ClearSelection drops the selection.
func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = Selection{}
}

// Selection returns the raw selection, which may be stale.
func (s *State) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// Selected returns the selected id if it belongs to the current
// generation.
func (s *State) Selected() (string, *Generation, bool) {
	g := s.Generation()
	sel := s.Selection()
	if g == nil || sel.ID == "" || sel.Seq != g.Seq {
		return "", g, false
	}
	return sel.ID, g, true
}

// ShowAllHighlights reports whether every element is highlighted in the
// overlay.
func (s *State) ShowAllHighlights() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showAllHighlights
}

// SetShowAllHighlights sets the overlay highlight mode.
func (s *State) SetShowAllHighlights(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showAllHighlights = v
}

// Status summarizes the State.
func (s *State) Status() Status {
	g := s.Generation()
	s.mu.RLock()
	st := Status{
		ProcessName:       s.processName,
		WindowTitle:       s.windowTitle,
		Provider:          s.provider,
		ShowAllHighlights: s.showAllHighlights,
	}
	sel := s.selection
	s.mu.RUnlock()
	if g != nil {
		st.Seq = g.Seq
		st.Window = g.Window
		st.Elements = g.Snapshot.Len()
		if sel.Seq == g.Seq {
			st.SelectedID = sel.ID
		}
	}
	return st
}
