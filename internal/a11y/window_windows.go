// Copyright 2025 Joseph Cumines
//
// Top-level window resolution

//go:build windows

package a11y

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW              = user32.NewProc("FindWindowW")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
)

type win32Rect struct {
	Left, Top, Right, Bottom int32
}

func (r win32Rect) rect() Rect {
	return Rect{Left: int(r.Left), Top: int(r.Top), Right: int(r.Right), Bottom: int(r.Bottom)}
}

// windows.NewCallback slots are a finite resource, so one callback is
// shared and enumeration is serialized.
var (
	enumMu       sync.Mutex
	enumVisit    func(hwnd uintptr) bool
	enumCallback = windows.NewCallback(func(hwnd, _ uintptr) uintptr {
		if enumVisit(hwnd) {
			return 1
		}
		return 0
	})
)

func enumWindows(visit func(hwnd uintptr) bool) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumVisit = visit
	defer func() { enumVisit = nil }()
	_, _, _ = procEnumWindows.Call(enumCallback, 0)
}

// desktop implements the window half of Provider for both Windows
// backends.
type desktop struct{}

// ResolveWindow tries, in order: an exact title match, the first visible
// window whose title contains title or whose process image is named
// title, and the foreground window.
func (desktop) ResolveWindow(title string) (Window, error) {
	if title != "" {
		if p, err := windows.UTF16PtrFromString(title); err == nil {
			hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(p)))
			if hwnd != 0 {
				return Window(hwnd), nil
			}
		}
		if w := findWindowByName(title); w != 0 {
			return w, nil
		}
	}
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return 0, fmt.Errorf("%w: no foreground window", ErrProviderFault)
	}
	return Window(hwnd), nil
}

func (desktop) WindowRect(w Window) (Rect, error) {
	var r win32Rect
	ok, _, err := procGetWindowRect.Call(uintptr(w), uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return Rect{}, fmt.Errorf("%w: GetWindowRect: %v", ErrProviderFault, err)
	}
	return r.rect(), nil
}

func (desktop) WindowTitle(w Window) (string, error) {
	if w == 0 {
		return "", fmt.Errorf("%w: no window", ErrProviderFault)
	}
	return windowTitle(uintptr(w)), nil
}

func findWindowByName(name string) Window {
	fragment := strings.ToLower(name)
	image := strings.TrimSuffix(fragment, ".exe")
	var found Window
	enumWindows(func(hwnd uintptr) bool {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return true
		}
		title := windowTitle(hwnd)
		if title == "" {
			return true
		}
		if strings.Contains(strings.ToLower(title), fragment) || processImageName(hwnd) == image {
			found = Window(hwnd)
			return false
		}
		return true
	})
	return found
}

func windowTitle(hwnd uintptr) string {
	var buf [512]uint16
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// processImageName returns the lower-cased executable base name of the
// window's process, without extension.
func processImageName(hwnd uintptr) string {
	var pid uint32
	_, _, _ = procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	var buf [windows.MAX_PATH]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	base := filepath.Base(windows.UTF16ToString(buf[:size]))
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
