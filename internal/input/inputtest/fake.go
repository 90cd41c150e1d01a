// Copyright 2025 Joseph Cumines
//
// Package inputtest provides a recording input.OS for tests.
package inputtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
	"github.com/joeycumines/WinA11yInspector/internal/input"
)

// ErrInjected is returned by primitives configured to fail.
var ErrInjected = errors.New("injected input fault")

// OS records every primitive call as an event string. Characters map to
// themselves as virtual keys, so typed text can be reconstructed.
type OS struct {
	// Fail names primitives that fail: "CursorPos", "SetCursorPos",
	// "SetForegroundWindow", "MouseButton", "Key", "KeyFor".
	Fail map[string]bool
	// FailAfter makes every primitive fail once this many events were
	// recorded; zero disables it.
	FailAfter int
	// FailKeyDown makes pressing this virtual key fail; zero disables it.
	FailKeyDown uint16

	// OnClick is called on button release with the cursor position.
	OnClick func(x, y int)
	// OnType is called on each non-shift key press with the character.
	OnType func(r rune)

	Cursor     [2]int
	Foreground a11y.Window

	mu     sync.Mutex
	events []string
	shift  bool
}

var _ input.OS = (*OS)(nil)

// Events returns a copy of the recorded events.
func (o *OS) Events() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

func (o *OS) record(name, event string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail[name] || (o.FailAfter > 0 && len(o.events) >= o.FailAfter) {
		return ErrInjected
	}
	o.events = append(o.events, event)
	return nil
}

func (o *OS) CursorPos() (int, int, error) {
	if err := o.record("CursorPos", "cursor?"); err != nil {
		return 0, 0, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Cursor[0], o.Cursor[1], nil
}

func (o *OS) SetCursorPos(x, y int) error {
	if err := o.record("SetCursorPos", fmt.Sprintf("move %d,%d", x, y)); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Cursor = [2]int{x, y}
	return nil
}

func (o *OS) ForegroundWindow() (a11y.Window, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Foreground, nil
}

func (o *OS) SetForegroundWindow(w a11y.Window) error {
	if err := o.record("SetForegroundWindow", fmt.Sprintf("foreground %#x", uintptr(w))); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Foreground = w
	return nil
}

func (o *OS) MouseButton(down bool) error {
	event := "up"
	if down {
		event = "down"
	}
	if err := o.record("MouseButton", event); err != nil {
		return err
	}
	if !down && o.OnClick != nil {
		o.mu.Lock()
		x, y := o.Cursor[0], o.Cursor[1]
		o.mu.Unlock()
		o.OnClick(x, y)
	}
	return nil
}

func (o *OS) Key(vk uint16, down bool) error {
	event := fmt.Sprintf("key %#x up", vk)
	if down {
		event = fmt.Sprintf("key %#x down", vk)
	}
	if down && vk != 0 && vk == o.FailKeyDown {
		return ErrInjected
	}
	if err := o.record("Key", event); err != nil {
		return err
	}
	if vk == input.VKShift {
		o.mu.Lock()
		o.shift = down
		o.mu.Unlock()
		return nil
	}
	if down && o.OnType != nil {
		o.OnType(rune(vk))
	}
	return nil
}

// KeyFor maps ASCII characters to themselves; upper-case letters need
// shift.
func (o *OS) KeyFor(r rune) (uint16, bool, error) {
	o.mu.Lock()
	fail := o.Fail["KeyFor"]
	o.mu.Unlock()
	if fail || r >= 0x80 {
		return 0, false, ErrInjected
	}
	return uint16(r), r >= 'A' && r <= 'Z', nil
}

// Shift reports whether shift is currently held.
func (o *OS) Shift() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.shift
}
