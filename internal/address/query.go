// Copyright 2025 Joseph Cumines
//
// XPath evaluation over the Address Tree

package address

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/antchfx/xpath"
)

// Normalize lower-cases a query outside its string literals and trims
// surrounding whitespace.
func Normalize(query string) string {
	query = strings.TrimSpace(query)
	var b strings.Builder
	b.Grow(len(query))
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		default:
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Find returns the first element, in document order, selected by query.
// Queries selecting attributes resolve to the attribute's owner. The
// container element and the document node never match.
func (t *Tree) Find(query string) (*Node, error) {
	q := Normalize(query)
	if q == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidAddress)
	}
	expr, err := xpath.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, query, err)
	}

	var best *Node
	err = evaluate(func() error {
		it, ok := expr.Evaluate(t.navigator()).(*xpath.NodeIterator)
		if !ok {
			return fmt.Errorf("%w: %q does not select elements", ErrInvalidAddress, query)
		}
		for it.MoveNext() {
			nav, ok := it.Current().(*navigator)
			if !ok {
				continue
			}
			n := nav.curr
			if n.ID == "" {
				continue
			}
			if best == nil || n.order < best.order {
				best = n
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, query)
	}
	return best, nil
}

// FindID is Find returning the element's captured id.
func (t *Tree) FindID(query string) (string, error) {
	n, err := t.Find(query)
	if err != nil {
		return "", err
	}
	return n.ID, nil
}

// evaluate runs fn, reporting evaluator panics (unsupported functions,
// bad argument types) as invalid addresses.
func evaluate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidAddress, r)
		}
	}()
	return fn()
}
