// Copyright 2025 Joseph Cumines
//
// Package a11ytest provides an in-memory accessibility Provider for tests.
package a11ytest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
)

// UIA control type ids used by tests.
const (
	Button   = 50000
	CheckBox = 50002
	Edit     = 50004
	List     = 50008
	ListItem = 50007
	Text     = 50020
	Window   = 50032
	Pane     = 50033
)

// ErrInjected is returned by reads configured to fail.
var ErrInjected = errors.New("injected fault")

// Element is a fake native element.
type Element struct {
	Fields   map[string]string
	Name     string
	Value    string
	Children []*Element
	Rect     a11y.Rect
	Role     int

	FailName       bool
	FailRole       bool
	FailValue      bool
	FailRect       bool
	FailChildCount bool
	FailEnumerate  bool
	PanicEnumerate bool
	PanicName      bool

	released bool
}

// E builds an Element.
func E(role int, name string, rect a11y.Rect, children ...*Element) *Element {
	return &Element{Role: role, Name: name, Rect: rect, Children: children}
}

// R builds a Rect.
func R(left, top, right, bottom int) a11y.Rect {
	return a11y.Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Released reports whether the element's native reference was released.
func (e *Element) Released() bool { return e.released }

// Provider is a fake a11y.Provider over a set of fake windows.
type Provider struct {
	Titles     map[a11y.Window]string
	Roots      map[a11y.Window]*Element
	Rects      map[a11y.Window]a11y.Rect
	KindValue  a11y.Kind
	Extras     []string
	Report     []string
	Foreground a11y.Window

	RootFails bool

	mu          sync.Mutex
	captures    int
	releases    int
	enumerates  int
	childCounts int
	closed      bool
}

var _ a11y.Provider = (*Provider)(nil)

// NewProvider returns a UIA-flavoured Provider with one window.
func NewProvider(title string, windowRect a11y.Rect, root *Element) *Provider {
	const w = a11y.Window(0x1001)
	return &Provider{
		Titles:     map[a11y.Window]string{w: title},
		Roots:      map[a11y.Window]*Element{w: root},
		Rects:      map[a11y.Window]a11y.Rect{w: windowRect},
		KindValue:  a11y.KindUIA,
		Extras:     []string{"className"},
		Report:     []string{"Name", "ControlType", "ClassName"},
		Foreground: w,
	}
}

// Captures returns the number of CaptureRoot calls.
func (p *Provider) Captures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captures
}

// Enumerations returns the number of EnumerateChildren calls.
func (p *Provider) Enumerations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enumerates
}

// ChildCounts returns the number of ReadChildCount calls.
func (p *Provider) ChildCounts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.childCounts
}

// Closed reports whether Close was called.
func (p *Provider) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Releases returns the number of Release calls.
func (p *Provider) Releases() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releases
}

func (p *Provider) Kind() a11y.Kind {
	if p.KindValue == "" {
		return a11y.KindUIA
	}
	return p.KindValue
}

func (p *Provider) ResolveWindow(title string) (a11y.Window, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if title != "" {
		for w, t := range p.Titles {
			if t == title {
				return w, nil
			}
		}
		for w, t := range p.Titles {
			if strings.Contains(strings.ToLower(t), strings.ToLower(title)) {
				return w, nil
			}
		}
	}
	if p.Foreground == 0 {
		return 0, fmt.Errorf("%w: no window", a11y.ErrProviderFault)
	}
	return p.Foreground, nil
}

func (p *Provider) WindowRect(w a11y.Window) (a11y.Rect, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.Rects[w]
	if !ok {
		return a11y.Rect{}, ErrInjected
	}
	return r, nil
}

func (p *Provider) WindowTitle(w a11y.Window) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.Titles[w]
	if !ok {
		return "", ErrInjected
	}
	return t, nil
}

func (p *Provider) CaptureRoot(w a11y.Window) (a11y.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captures++
	root, ok := p.Roots[w]
	if !ok || p.RootFails {
		return nil, ErrInjected
	}
	root.released = false
	return root, nil
}

func (p *Provider) el(el a11y.Element) (*Element, error) {
	e, ok := el.(*Element)
	if !ok || e == nil {
		return nil, fmt.Errorf("not a fake element: %T", el)
	}
	if e.released {
		return nil, errors.New("element released")
	}
	return e, nil
}

func (p *Provider) ReadName(el a11y.Element) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.el(el)
	if err != nil {
		return "", err
	}
	if e.PanicName {
		panic("name read panicked")
	}
	if e.FailName {
		return "", ErrInjected
	}
	return e.Name, nil
}

func (p *Provider) ReadRole(el a11y.Element) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.el(el)
	if err != nil {
		return 0, err
	}
	if e.FailRole {
		return 0, ErrInjected
	}
	return e.Role, nil
}

func (p *Provider) ReadValue(el a11y.Element) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.el(el)
	if err != nil {
		return "", err
	}
	if e.FailValue {
		return "", ErrInjected
	}
	return e.Value, nil
}

func (p *Provider) ReadChildCount(el a11y.Element) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.el(el)
	if err != nil {
		return 0, err
	}
	p.childCounts++
	if e.FailChildCount {
		return 0, ErrInjected
	}
	return len(e.Children), nil
}

func (p *Provider) ReadBoundingRect(el a11y.Element) (a11y.Rect, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.el(el)
	if err != nil {
		return a11y.Rect{}, err
	}
	if e.FailRect {
		return a11y.Rect{}, ErrInjected
	}
	return e.Rect, nil
}

func (p *Provider) EnumerateChildren(el a11y.Element) ([]a11y.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.el(el)
	if err != nil {
		return nil, err
	}
	p.enumerates++
	if e.PanicEnumerate {
		panic("enumeration panicked")
	}
	if e.FailEnumerate {
		return nil, ErrInjected
	}
	out := make([]a11y.Element, 0, len(e.Children))
	for _, c := range e.Children {
		c.released = false
		out = append(out, c)
	}
	return out, nil
}

func (p *Provider) ReadField(el a11y.Element, field string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.el(el)
	if err != nil {
		return "", err
	}
	switch field {
	case "Name":
		return e.Name, nil
	case "ControlType":
		return p.RoleName(e.Role), nil
	case "Value":
		return e.Value, nil
	}
	v, ok := e.Fields[field]
	if !ok {
		return "", ErrInjected
	}
	return v, nil
}

func (p *Provider) ExtraFields() []string  { return p.Extras }
func (p *Provider) ReportFields() []string { return p.Report }

func (p *Provider) RoleName(code int) string {
	if p.Kind() == a11y.KindMSAA {
		return a11y.MSAARoleName(code)
	}
	return a11y.UIAControlTypeName(code)
}

func (p *Provider) Release(el a11y.Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releases++
	if e, ok := el.(*Element); ok && e != nil {
		e.released = true
	}
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// ElementAt returns the element latest in document order whose rectangle
// contains the screen point, mimicking where the OS would deliver input.
func (p *Provider) ElementAt(w a11y.Window, x, y int) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	var found *Element
	var walk func(e *Element)
	walk = func(e *Element) {
		if e.Rect.Contains(x, y) && !e.Rect.IsZero() {
			found = e
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	if root := p.Roots[w]; root != nil {
		walk(root)
	}
	return found
}

// Type appends text to the value of e.
func (p *Provider) Type(e *Element, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.Value += text
}
