// Copyright 2025 Joseph Cumines
//
// Package input synthesizes pointer and keyboard sequences against a
// target window.
//
// Every sequence saves the cursor position and foreground window, brings
// the target to the foreground, performs its events and restores what it
// saved. Sequences are mutually exclusive process-wide, since they race on
// global OS state.
package input

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
)

// ErrOSInput is returned when an input primitive fails. Events issued
// before the failure are not undone.
var ErrOSInput = errors.New("OS input fault")

// VKShift is the virtual key code of the shift key.
const VKShift = 0x10

// OS is the set of input primitives the Synthesizer drives.
type OS interface {
	CursorPos() (x, y int, err error)
	SetCursorPos(x, y int) error
	ForegroundWindow() (a11y.Window, error)
	SetForegroundWindow(w a11y.Window) error
	// MouseButton presses or releases the primary button at the cursor.
	MouseButton(down bool) error
	// Key presses or releases a virtual key.
	Key(vk uint16, down bool) error
	// KeyFor maps a character to a virtual key and whether it needs shift.
	KeyFor(r rune) (vk uint16, shift bool, err error)
}

// Delays are the fixed pauses within sequences.
type Delays struct {
	// Settle follows bringing the target to the foreground, and the click
	// that precedes typing.
	Settle time.Duration
	// DoubleClick separates the two clicks of a double click.
	DoubleClick time.Duration
	// Keystroke follows each typed character.
	Keystroke time.Duration
}

// DefaultDelays returns the standard delays.
func DefaultDelays() Delays {
	return Delays{
		Settle:      50 * time.Millisecond,
		DoubleClick: 100 * time.Millisecond,
		Keystroke:   5 * time.Millisecond,
	}
}

// processMu serializes every sequence of every Synthesizer.
var processMu sync.Mutex

// Synthesizer performs input sequences through an OS.
type Synthesizer struct {
	os     OS
	sleep  func(time.Duration)
	delays Delays
}

// New returns a Synthesizer over os.
func New(os OS, delays Delays) *Synthesizer {
	return NewWithSleep(os, delays, time.Sleep)
}

// NewWithSleep returns a Synthesizer with an injectable sleep, for tests.
func NewWithSleep(os OS, delays Delays, sleep func(time.Duration)) *Synthesizer {
	return &Synthesizer{os: os, delays: delays, sleep: sleep}
}

// Click clicks once at the screen point (x, y).
func (s *Synthesizer) Click(target a11y.Window, x, y int) error {
	return s.run(target, func() error {
		return s.click(x, y)
	})
}

// DoubleClick clicks twice at the screen point (x, y).
func (s *Synthesizer) DoubleClick(target a11y.Window, x, y int) error {
	return s.run(target, func() error {
		if err := s.click(x, y); err != nil {
			return err
		}
		s.sleep(s.delays.DoubleClick)
		return s.click(x, y)
	})
}

// Type types text into the target's focused control.
func (s *Synthesizer) Type(target a11y.Window, text string) error {
	return s.run(target, func() error {
		return s.typeText(text)
	})
}

// ClickAndType clicks at (x, y) to take focus, waits the settle delay and
// types text, as one sequence.
func (s *Synthesizer) ClickAndType(target a11y.Window, x, y int, text string) error {
	return s.run(target, func() error {
		if err := s.click(x, y); err != nil {
			return err
		}
		s.sleep(s.delays.Settle)
		return s.typeText(text)
	})
}

func (s *Synthesizer) run(target a11y.Window, seq func() error) (err error) {
	processMu.Lock()
	defer processMu.Unlock()

	cx, cy, err := s.os.CursorPos()
	if err != nil {
		return fmt.Errorf("%w: read cursor: %v", ErrOSInput, err)
	}
	prev, ferr := s.os.ForegroundWindow()
	if ferr != nil {
		log.Printf("Warning: input: cannot read foreground window: %v", ferr)
		prev = 0
	}

	defer func() {
		// restoration runs after aborts too; it is not an undo
		if rerr := s.os.SetCursorPos(cx, cy); rerr != nil && err == nil {
			err = fmt.Errorf("%w: restore cursor: %v", ErrOSInput, rerr)
		}
		if prev != 0 && prev != target {
			if rerr := s.os.SetForegroundWindow(prev); rerr != nil {
				log.Printf("Warning: input: cannot restore foreground window %#x: %v", uintptr(prev), rerr)
			}
		}
	}()

	if target != 0 {
		if ferr := s.os.SetForegroundWindow(target); ferr != nil {
			log.Printf("Warning: input: cannot foreground window %#x: %v", uintptr(target), ferr)
		}
	}
	s.sleep(s.delays.Settle)

	return seq()
}

func (s *Synthesizer) click(x, y int) error {
	if err := s.os.SetCursorPos(x, y); err != nil {
		return fmt.Errorf("%w: move cursor to (%d, %d): %v", ErrOSInput, x, y, err)
	}
	if err := s.os.MouseButton(true); err != nil {
		return fmt.Errorf("%w: button down: %v", ErrOSInput, err)
	}
	if err := s.os.MouseButton(false); err != nil {
		return fmt.Errorf("%w: button up: %v", ErrOSInput, err)
	}
	return nil
}

func (s *Synthesizer) typeText(text string) error {
	for _, r := range text {
		if err := s.typeRune(r); err != nil {
			return err
		}
		s.sleep(s.delays.Keystroke)
	}
	return nil
}

func (s *Synthesizer) typeRune(r rune) (err error) {
	vk, shift, err := s.os.KeyFor(r)
	if err != nil {
		return fmt.Errorf("%w: no key for %q: %v", ErrOSInput, r, err)
	}
	if shift {
		if err := s.os.Key(VKShift, true); err != nil {
			return fmt.Errorf("%w: shift down: %v", ErrOSInput, err)
		}
		defer func() {
			if uerr := s.os.Key(VKShift, false); uerr != nil && err == nil {
				err = fmt.Errorf("%w: shift up: %v", ErrOSInput, uerr)
			}
		}()
	}
	if err := s.os.Key(vk, true); err != nil {
		return fmt.Errorf("%w: key %#x down: %v", ErrOSInput, vk, err)
	}
	if err := s.os.Key(vk, false); err != nil {
		return fmt.Errorf("%w: key %#x up: %v", ErrOSInput, vk, err)
	}
	return nil
}
