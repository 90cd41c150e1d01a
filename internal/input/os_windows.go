// Copyright 2025 Joseph Cumines
//
// user32 input primitives

//go:build windows

package input

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSendInput           = user32.NewProc("SendInput")
	procGetCursorPos        = user32.NewProc("GetCursorPos")
	procSetCursorPos        = user32.NewProc("SetCursorPos")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procVkKeyScanW          = user32.NewProc("VkKeyScanW")
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseEventLeftDown = 0x0002
	mouseEventLeftUp   = 0x0004
	keyEventKeyUp      = 0x0002
)

type point struct {
	X, Y int32
}

type mouseInput struct {
	dx, dy    int32
	mouseData uint32
	flags     uint32
	time      uint32
	extraInfo uintptr
}

type keybdInput struct {
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	extraInfo uintptr
	_         [8]byte // pads to the size of the INPUT union
}

type mouseINPUT struct {
	typ uint32
	mi  mouseInput
}

type keybdINPUT struct {
	typ uint32
	ki  keybdInput
}

type nativeOS struct{}

// NativeOS returns the user32 backed OS.
func NativeOS() (OS, error) { return nativeOS{}, nil }

func (nativeOS) CursorPos() (int, int, error) {
	var p point
	if ok, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p))); ok == 0 {
		return 0, 0, fmt.Errorf("GetCursorPos: %w", err)
	}
	return int(p.X), int(p.Y), nil
}

func (nativeOS) SetCursorPos(x, y int) error {
	if ok, _, err := procSetCursorPos.Call(uintptr(int32(x)), uintptr(int32(y))); ok == 0 {
		return fmt.Errorf("SetCursorPos: %w", err)
	}
	return nil
}

func (nativeOS) ForegroundWindow() (a11y.Window, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	return a11y.Window(hwnd), nil
}

func (nativeOS) SetForegroundWindow(w a11y.Window) error {
	if ok, _, _ := procSetForegroundWindow.Call(uintptr(w)); ok == 0 {
		return errors.New("SetForegroundWindow refused")
	}
	return nil
}

func (nativeOS) MouseButton(down bool) error {
	in := mouseINPUT{typ: inputMouse}
	in.mi.flags = mouseEventLeftUp
	if down {
		in.mi.flags = mouseEventLeftDown
	}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (nativeOS) Key(vk uint16, down bool) error {
	in := keybdINPUT{typ: inputKeyboard}
	in.ki.vk = vk
	if !down {
		in.ki.flags = keyEventKeyUp
	}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (nativeOS) KeyFor(r rune) (uint16, bool, error) {
	if r > 0xFFFF {
		return 0, false, errors.New("outside the basic multilingual plane")
	}
	ret, _, _ := procVkKeyScanW.Call(uintptr(r))
	code := int16(ret)
	if code == -1 {
		return 0, false, errors.New("no key in the current layout")
	}
	return uint16(code & 0xFF), code&0x0100 != 0, nil
}

func sendInput(in unsafe.Pointer, size uintptr) error {
	n, _, err := procSendInput.Call(1, uintptr(in), size)
	if n != 1 {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}
