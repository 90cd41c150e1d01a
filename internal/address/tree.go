// Copyright 2025 Joseph Cumines
//
// Package address mirrors a Snapshot as a case-normalized tree that can be
// queried with XPath, independently of session-local ids.
//
// Tags and attribute names are lower-cased; attribute values are kept
// verbatim. Queries are lower-cased outside string literals before
// evaluation, so structure matches case-insensitively while literal values
// compare exactly.
package address

import (
	"errors"
	"strings"
	"unicode"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
)

var (
	// ErrInvalidAddress is returned for empty or malformed queries.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrElementNotFound is returned when a query matches no element.
	ErrElementNotFound = errors.New("element not found")
)

const (
	// ContainerTag is the tag of the element wrapping the captured root.
	ContainerTag = "root"

	unknownTag = "unknown"
)

// Attribute is a normalized name/value pair.
type Attribute struct {
	Name  string
	Value string
}

// Node is one element of the Address Tree. It holds no native handles.
type Node struct {
	Tag      string
	ID       string
	Attrs    []Attribute
	Children []*Node

	parent *Node
	index  int // position among siblings
	order  int // document pre-order position
}

// Parent returns the parent element, or nil at the top of the tree.
func (n *Node) Parent() *Node { return n.parent }

// Attr returns the value of the first attribute named name, compared
// case-insensitively.
func (n *Node) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Tree is an immutable Address Tree built from one Snapshot.
type Tree struct {
	doc        *Node
	generation uint64
	size       int
}

// Build mirrors s. An empty Snapshot yields a tree holding only the
// container element.
func Build(s *a11y.Snapshot) *Tree {
	t := &Tree{
		doc:        &Node{},
		generation: s.Generation(),
	}
	container := &Node{Tag: ContainerTag, parent: t.doc, order: 1}
	t.doc.Children = []*Node{container}

	order := 1
	var mirror func(n *a11y.Node, parent *Node, index int) *Node
	mirror = func(n *a11y.Node, parent *Node, index int) *Node {
		order++
		t.size++
		m := &Node{
			Tag:    Tag(n.Role),
			ID:     n.ID,
			parent: parent,
			index:  index,
			order:  order,
			Attrs: []Attribute{
				{Name: "id", Value: n.ID},
				{Name: "name", Value: n.Name},
				{Name: "controltype", Value: n.Role},
				{Name: "value", Value: n.Value},
			},
		}
		for _, a := range n.Extra {
			m.Attrs = append(m.Attrs, Attribute{Name: strings.ToLower(a.Name), Value: a.Value})
		}
		m.Children = make([]*Node, 0, len(n.Children))
		for i, c := range n.Children {
			m.Children = append(m.Children, mirror(c, m, i))
		}
		return m
	}
	if r := s.Root(); r != nil {
		container.Children = []*Node{mirror(r, container, 0)}
	}
	return t
}

// Root returns the container element.
func (t *Tree) Root() *Node { return t.doc.Children[0] }

// Len returns the number of mirrored elements, excluding the container.
func (t *Tree) Len() int { return t.size }

// Generation returns the Snapshot generation the tree was built from.
func (t *Tree) Generation() uint64 { return t.generation }

// Tag derives an element tag from a role name: sanitized, lower-cased, and
// "unknown" when empty.
func Tag(role string) string {
	if role == "" {
		return unknownTag
	}
	return strings.ToLower(sanitize(role))
}

// sanitize makes role usable as an XPath name test.
func sanitize(role string) string {
	var b strings.Builder
	for i, r := range role {
		if i == 0 && !(unicode.IsLetter(r) || r == '_') {
			b.WriteByte('_')
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
