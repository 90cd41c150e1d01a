// Copyright 2025 Joseph Cumines
//
// COM apartment thread shared by the Windows providers

//go:build windows

package a11y

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

var errCOMClosed = fmt.Errorf("%w: provider closed", ErrProviderFault)

// sFalse is returned by CoInitializeEx when the thread is already
// initialized.
const sFalse = 1

// comThread owns one OS thread initialized into the multi-threaded
// apartment. COM objects created through it are only touched from that
// thread. close uninitializes COM and returns the thread.
type comThread struct {
	calls chan func()
	done  chan struct{}
	once  sync.Once
}

func newCOMThread() (*comThread, error) {
	t := &comThread{calls: make(chan func()), done: make(chan struct{})}
	ready := make(chan error, 1)
	go t.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return t, nil
}

func (t *comThread) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			ready <- fmt.Errorf("%w: CoInitializeEx: %v", ErrProviderFault, err)
			return
		}
	}
	defer ole.CoUninitialize()
	ready <- nil

	for {
		select {
		case fn := <-t.calls:
			fn()
		case <-t.done:
			return
		}
	}
}

func (t *comThread) do(fn func() error) error {
	done := make(chan error, 1)
	call := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: panic: %v", ErrProviderFault, r)
			}
		}()
		done <- fn()
	}
	select {
	case t.calls <- call:
	case <-t.done:
		return errCOMClosed
	}
	return <-done
}

// close runs final on the thread, then stops it. Later calls fail with
// errCOMClosed.
func (t *comThread) close(final func()) error {
	err := errCOMClosed
	t.once.Do(func() {
		err = t.do(func() error {
			if final != nil {
				final()
			}
			return nil
		})
		close(t.done)
	})
	return err
}

func comValue[T any](t *comThread, fn func() (T, error)) (T, error) {
	var v T
	err := t.do(func() error {
		var err error
		v, err = fn()
		return err
	})
	return v, err
}

// vtblCall invokes method index idx of the COM object at obj, returning
// the HRESULT as an error.
func vtblCall(obj uintptr, idx int, args ...uintptr) error {
	if obj == 0 {
		return fmt.Errorf("%w: nil COM object", ErrProviderFault)
	}
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vtbl + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
	hr, _, _ := syscall.SyscallN(fn, append([]uintptr{obj}, args...)...)
	if int32(hr) < 0 {
		return ole.NewError(hr)
	}
	return nil
}

// comRelease calls IUnknown::Release, which returns a count rather than an
// HRESULT.
func comRelease(obj uintptr) {
	if obj == 0 {
		return
	}
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vtbl + 2*unsafe.Sizeof(uintptr(0))))
	_, _, _ = syscall.SyscallN(fn, obj)
}
