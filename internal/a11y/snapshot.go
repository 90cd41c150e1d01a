// Copyright 2025 Joseph Cumines
//
// Captured accessibility trees

package a11y

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"google.golang.org/protobuf/types/known/structpb"
)

// Attribute is a provider-specific name/value pair captured on a Node.
type Attribute struct {
	Name  string
	Value string
}

// Node is one captured control. Nodes are immutable once their Snapshot is
// returned by the Builder.
type Node struct {
	ID       string
	Name     string
	Role     string
	Value    string
	Extra    []Attribute
	Children []*Node
	Rect     Rect
}

// Handle ties a native element to the Builder generation that produced it.
type Handle struct {
	Element    Element
	Generation uint64
}

// Snapshot is one complete capture of a window's control tree.
type Snapshot struct {
	root       *Node
	nodes      map[string]*Node
	handles    map[string]Handle
	owner      *Builder
	kind       Kind
	window     Window
	generation uint64
}

// Root returns the captured root, or nil for an empty Snapshot.
func (s *Snapshot) Root() *Node {
	if s == nil {
		return nil
	}
	return s.root
}

// Len returns the number of captured nodes.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.nodes)
}

// HandleCount returns the size of the id to native handle map.
func (s *Snapshot) HandleCount() int {
	if s == nil {
		return 0
	}
	return len(s.handles)
}

// Kind returns the provider kind the Snapshot was captured with.
func (s *Snapshot) Kind() Kind {
	if s == nil {
		return ""
	}
	return s.kind
}

// Window returns the captured window.
func (s *Snapshot) Window() Window {
	if s == nil {
		return 0
	}
	return s.window
}

// Generation returns the Builder generation of the Snapshot.
func (s *Snapshot) Generation() uint64 {
	if s == nil {
		return 0
	}
	return s.generation
}

// Node looks up a captured node by id.
func (s *Snapshot) Node(id string) (*Node, bool) {
	if s == nil {
		return nil, false
	}
	n, ok := s.nodes[id]
	return n, ok
}

// Walk visits nodes in document (pre-)order. Returning false from fn skips
// the node's children.
func (s *Snapshot) Walk(fn func(n *Node, depth int) bool) {
	if s == nil || s.root == nil {
		return
	}
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(s.root, 0)
}

// Fresh reports whether the Snapshot's native handles are still valid.
func (s *Snapshot) Fresh() bool {
	return s != nil && s.owner != nil && s.owner.Generation() == s.generation
}

// BoundingRect re-reads the element's rectangle through its native handle,
// falling back to the captured rectangle when the handle is stale or the
// read fails. Unknown ids yield a zero Rect.
func (s *Snapshot) BoundingRect(id string) Rect {
	n, ok := s.Node(id)
	if !ok {
		return Rect{}
	}
	var live Rect
	err := s.withElement(id, func(p Provider, el Element) error {
		live = readOr(func() (Rect, error) { return p.ReadBoundingRect(el) })
		return nil
	})
	if err != nil || live.IsZero() {
		return n.Rect
	}
	return live
}

// Properties renders the property report of an element as ordered,
// labeled lines. Fields that fail to read are omitted.
func (s *Snapshot) Properties(id string) (string, error) {
	var b strings.Builder
	err := s.withElement(id, func(p Provider, el Element) error {
		for _, field := range p.ReportFields() {
			v, err := readField(p, el, field)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", field, v)
		}
		r, err := readRect(p, el)
		if err == nil {
			fmt.Fprintf(&b, "BoundingRectangle: %s\n", r)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// ReadLive reads one provider field of an element through its native
// handle.
func (s *Snapshot) ReadLive(id, field string) (string, error) {
	var v string
	err := s.withElement(id, func(p Provider, el Element) error {
		var err error
		v, err = readField(p, el, field)
		return err
	})
	return v, err
}

func (s *Snapshot) withElement(id string, fn func(p Provider, el Element) error) error {
	if s == nil || s.owner == nil {
		return fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	h, ok := s.handles[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	return s.owner.use(h, fn)
}

func readField(p Provider, el Element, field string) (v string, err error) {
	err = isolate(func() error {
		var err error
		v, err = p.ReadField(el, field)
		return err
	})
	return v, err
}

func readRect(p Provider, el Element) (r Rect, err error) {
	err = isolate(func() error {
		var err error
		r, err = p.ReadBoundingRect(el)
		return err
	})
	return r, err
}

// Fingerprint hashes the captured content, excluding ids, so two captures
// of an unchanged UI produce the same value.
func (s *Snapshot) Fingerprint() uint64 {
	h := xxh3.New()
	s.Walk(func(n *Node, depth int) bool {
		h.WriteString(strconv.Itoa(depth))
		for _, v := range []string{n.Role, n.Name, n.Value, n.Rect.String()} {
			h.WriteString("\x00")
			h.WriteString(v)
		}
		for _, a := range n.Extra {
			h.WriteString("\x00")
			h.WriteString(a.Name)
			h.WriteString("=")
			h.WriteString(a.Value)
		}
		h.WriteString("\x01")
		return true
	})
	return h.Sum64()
}

// Document returns the wire form of the Snapshot: a single Root container
// holding the root Element, each Element carrying id, name, controlType,
// provider extras and children. Only MSAA elements carry value.
func (s *Snapshot) Document() map[string]any {
	root := map[string]any{}
	if r := s.Root(); r != nil {
		root["Element"] = elementDocument(r, s.kind == KindMSAA)
	}
	return map[string]any{"Root": root}
}

func elementDocument(n *Node, withValue bool) map[string]any {
	el := map[string]any{
		"id":          n.ID,
		"name":        n.Name,
		"controlType": n.Role,
	}
	if withValue {
		el["value"] = n.Value
	}
	for _, a := range n.Extra {
		el[a.Name] = a.Value
	}
	if len(n.Children) > 0 {
		children := make([]any, 0, len(n.Children))
		for _, c := range n.Children {
			children = append(children, elementDocument(c, withValue))
		}
		el["children"] = children
	}
	return el
}

// Struct returns Document as a protobuf Struct.
func (s *Snapshot) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(s.Document())
}
