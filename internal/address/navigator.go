// Copyright 2025 Joseph Cumines
//
// xpath.NodeNavigator over the Address Tree

package address

import "github.com/antchfx/xpath"

// navigator is positioned on an element, or on one of its attributes when
// attr is not -1.
type navigator struct {
	root, curr *Node
	attr       int
}

var _ xpath.NodeNavigator = (*navigator)(nil)

func (t *Tree) navigator() *navigator {
	return &navigator{root: t.doc, curr: t.doc, attr: -1}
}

func (n *navigator) NodeType() xpath.NodeType {
	switch {
	case n.attr != -1:
		return xpath.AttributeNode
	case n.curr == n.root:
		return xpath.RootNode
	}
	return xpath.ElementNode
}

func (n *navigator) LocalName() string {
	if n.attr != -1 {
		return n.curr.Attrs[n.attr].Name
	}
	return n.curr.Tag
}

func (n *navigator) Prefix() string { return "" }

// Value is the attribute value; elements carry no text.
func (n *navigator) Value() string {
	if n.attr != -1 {
		return n.curr.Attrs[n.attr].Value
	}
	return ""
}

func (n *navigator) Copy() xpath.NodeNavigator {
	c := *n
	return &c
}

func (n *navigator) MoveToRoot() {
	n.curr = n.root
	n.attr = -1
}

func (n *navigator) MoveToParent() bool {
	if n.attr != -1 {
		n.attr = -1
		return true
	}
	if n.curr.parent == nil {
		return false
	}
	n.curr = n.curr.parent
	return true
}

func (n *navigator) MoveToNextAttribute() bool {
	if n.attr >= len(n.curr.Attrs)-1 {
		return false
	}
	n.attr++
	return true
}

func (n *navigator) MoveToChild() bool {
	if n.attr != -1 || len(n.curr.Children) == 0 {
		return false
	}
	n.curr = n.curr.Children[0]
	return true
}

func (n *navigator) MoveToFirst() bool {
	if n.attr != -1 || n.curr.parent == nil {
		return false
	}
	n.curr = n.curr.parent.Children[0]
	return true
}

func (n *navigator) MoveToNext() bool {
	if n.attr != -1 || n.curr.parent == nil {
		return false
	}
	siblings := n.curr.parent.Children
	if n.curr.index+1 >= len(siblings) {
		return false
	}
	n.curr = siblings[n.curr.index+1]
	return true
}

func (n *navigator) MoveToPrevious() bool {
	if n.attr != -1 || n.curr.parent == nil || n.curr.index == 0 {
		return false
	}
	n.curr = n.curr.parent.Children[n.curr.index-1]
	return true
}

func (n *navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*navigator)
	if !ok || o.root != n.root {
		return false
	}
	n.curr = o.curr
	n.attr = o.attr
	return true
}
