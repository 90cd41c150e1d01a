// Copyright 2025 Joseph Cumines
//
// Depth-first snapshot capture

package a11y

import (
	"fmt"
	"strconv"
	"sync"
)

// MaxDepth bounds capture recursion. Providers have been observed to report
// an ancestor as a child; nodes at this depth are recorded as leaves.
const MaxDepth = 256

// Builder captures Snapshots from one Provider. Each capture starts a new
// generation and releases the native elements of the previous one, so
// handles held by older Snapshots fail closed.
//
// A Builder is safe for concurrent use; captures and live reads through
// Snapshots are serialized.
type Builder struct {
	provider   Provider
	live       []Element
	counter    int
	generation uint64
	mu         sync.Mutex
}

// NewBuilder returns a Builder over p.
func NewBuilder(p Provider) *Builder {
	return &Builder{provider: p}
}

// Provider returns the Builder's provider.
func (b *Builder) Provider() Provider { return b.provider }

// Generation returns the generation of the most recent capture.
func (b *Builder) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// Capture performs a full depth-first capture of w. A provider that cannot
// attach to the window yields an empty Snapshot rather than an error.
func (b *Builder) Capture(w Window) *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseLocked()
	b.generation++
	b.counter = 0

	s := &Snapshot{
		nodes:      make(map[string]*Node),
		handles:    make(map[string]Handle),
		owner:      b,
		kind:       b.provider.Kind(),
		window:     w,
		generation: b.generation,
	}

	var root Element
	err := isolate(func() error {
		var err error
		root, err = b.provider.CaptureRoot(w)
		return err
	})
	if err != nil || root == nil {
		return s
	}

	s.root = b.dump(s, root, "", 0)
	return s
}

// Release drops every native element of the current generation and
// invalidates all outstanding Snapshots.
func (b *Builder) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
	b.generation++
}

func (b *Builder) releaseLocked() {
	for _, el := range b.live {
		_ = isolate(func() error {
			b.provider.Release(el)
			return nil
		})
	}
	b.live = nil
}

func (b *Builder) dump(s *Snapshot, el Element, parentID string, depth int) *Node {
	p := b.provider

	b.counter++
	n := &Node{ID: parentID + "_" + strconv.Itoa(b.counter)}

	n.Name = readOr(func() (string, error) { return p.ReadName(el) })
	n.Role = readOr(func() (string, error) {
		code, err := p.ReadRole(el)
		if err != nil {
			return "", err
		}
		return p.RoleName(code), nil
	})
	n.Value = readOr(func() (string, error) { return p.ReadValue(el) })
	n.Rect = readOr(func() (Rect, error) { return p.ReadBoundingRect(el) })
	for _, field := range p.ExtraFields() {
		n.Extra = append(n.Extra, Attribute{
			Name:  field,
			Value: readOr(func() (string, error) { return p.ReadField(el, field) }),
		})
	}

	// registered before descending, so enumeration failures leave a leaf
	s.nodes[n.ID] = n
	s.handles[n.ID] = Handle{Element: el, Generation: b.generation}
	b.live = append(b.live, el)

	if depth >= MaxDepth {
		return n
	}

	// a reported count of zero skips enumeration; a failed count read does not
	var count int
	countErr := isolate(func() error {
		var err error
		count, err = p.ReadChildCount(el)
		return err
	})
	if countErr == nil && count == 0 {
		return n
	}

	var children []Element
	err := isolate(func() error {
		var err error
		children, err = p.EnumerateChildren(el)
		return err
	})
	if err != nil {
		return n
	}

	n.Children = make([]*Node, 0, len(children))
	for _, c := range children {
		if c == nil {
			continue
		}
		n.Children = append(n.Children, b.dump(s, c, n.ID, depth+1))
	}
	return n
}

// use runs fn with the native element behind h, failing closed when h
// belongs to an earlier generation.
func (b *Builder) use(h Handle, fn func(p Provider, el Element) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h.Generation != b.generation {
		return fmt.Errorf("%w: generation %d, current %d", ErrStaleHandle, h.Generation, b.generation)
	}
	return fn(b.provider, h.Element)
}
