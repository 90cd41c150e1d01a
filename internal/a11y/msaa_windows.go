// Copyright 2025 Joseph Cumines
//
// MSAA (IAccessible) provider

//go:build windows

package a11y

import (
	"fmt"
	"strconv"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"golang.org/x/sys/windows"
)

var (
	oleacc                         = windows.NewLazySystemDLL("oleacc.dll")
	procAccessibleObjectFromWindow = oleacc.NewProc("AccessibleObjectFromWindow")

	iidIAccessible = ole.NewGUID("{618736E0-3C3D-11CF-810C-00AA00389B71}")
)

const (
	objidClient = 0xFFFFFFFC
	childIDSelf = int32(0)
)

type msaaProvider struct {
	desktop
	com *comThread
}

func newMSAAProvider() (*msaaProvider, error) {
	com, err := newCOMThread()
	if err != nil {
		return nil, err
	}
	return &msaaProvider{com: com}, nil
}

func (p *msaaProvider) Kind() Kind { return KindMSAA }

func (p *msaaProvider) CaptureRoot(w Window) (Element, error) {
	return comValue(p.com, func() (Element, error) {
		var disp *ole.IDispatch
		hr, _, _ := procAccessibleObjectFromWindow.Call(
			uintptr(w),
			uintptr(objidClient),
			uintptr(unsafe.Pointer(iidIAccessible)),
			uintptr(unsafe.Pointer(&disp)),
		)
		if int32(hr) < 0 || disp == nil {
			return nil, fmt.Errorf("%w: AccessibleObjectFromWindow: %v", ErrProviderFault, ole.NewError(hr))
		}
		return disp, nil
	})
}

func (p *msaaProvider) dispatch(el Element) (*ole.IDispatch, error) {
	disp, ok := el.(*ole.IDispatch)
	if !ok || disp == nil {
		return nil, fmt.Errorf("%w: not an IAccessible: %T", ErrUnknownElement, el)
	}
	return disp, nil
}

// property reads an IAccessible property of the element itself.
func (p *msaaProvider) property(el Element, name string) (any, error) {
	return comValue(p.com, func() (any, error) {
		disp, err := p.dispatch(el)
		if err != nil {
			return nil, err
		}
		v, err := oleutil.GetProperty(disp, name, childIDSelf)
		if err != nil {
			return nil, err
		}
		defer v.Clear()
		return v.Value(), nil
	})
}

func (p *msaaProvider) stringProperty(el Element, name string) (string, error) {
	v, err := p.property(el, name)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (p *msaaProvider) ReadName(el Element) (string, error) {
	return p.stringProperty(el, "accName")
}

// ReadRole returns the numeric role; custom string roles map to 0.
func (p *msaaProvider) ReadRole(el Element) (int, error) {
	v, err := p.property(el, "accRole")
	if err != nil {
		return 0, err
	}
	return intValue(v), nil
}

func (p *msaaProvider) ReadValue(el Element) (string, error) {
	return p.stringProperty(el, "accValue")
}

func (p *msaaProvider) readState(el Element) (int, error) {
	v, err := p.property(el, "accState")
	if err != nil {
		return 0, err
	}
	return intValue(v), nil
}

func (p *msaaProvider) ReadChildCount(el Element) (int, error) {
	return comValue(p.com, func() (int, error) {
		disp, err := p.dispatch(el)
		if err != nil {
			return 0, err
		}
		v, err := oleutil.GetProperty(disp, "accChildCount")
		if err != nil {
			return 0, err
		}
		defer v.Clear()
		return intValue(v.Value()), nil
	})
}

func (p *msaaProvider) ReadBoundingRect(el Element) (Rect, error) {
	return comValue(p.com, func() (Rect, error) {
		disp, err := p.dispatch(el)
		if err != nil {
			return Rect{}, err
		}
		var left, top, width, height int32
		v, err := oleutil.CallMethod(disp, "accLocation", &left, &top, &width, &height, childIDSelf)
		if err != nil {
			return Rect{}, err
		}
		_ = v.Clear()
		return Rect{
			Left:   int(left),
			Top:    int(top),
			Right:  int(left + width),
			Bottom: int(top + height),
		}, nil
	})
}

// EnumerateChildren returns the full IAccessible children. Simple
// elements (child ids without their own object) are skipped.
func (p *msaaProvider) EnumerateChildren(el Element) ([]Element, error) {
	return comValue(p.com, func() ([]Element, error) {
		disp, err := p.dispatch(el)
		if err != nil {
			return nil, err
		}
		cv, err := oleutil.GetProperty(disp, "accChildCount")
		if err != nil {
			return nil, err
		}
		count := intValue(cv.Value())
		_ = cv.Clear()

		children := make([]Element, 0, count)
		for i := 1; i <= count; i++ {
			v, err := oleutil.GetProperty(disp, "accChild", int32(i))
			if err != nil {
				for _, c := range children {
					c.(*ole.IDispatch).Release()
				}
				return nil, err
			}
			if v.VT != ole.VT_DISPATCH {
				_ = v.Clear()
				continue
			}
			// the variant's reference is kept by the child
			if child := v.ToIDispatch(); child != nil {
				children = append(children, child)
			}
		}
		return children, nil
	})
}

func (p *msaaProvider) ReadField(el Element, field string) (string, error) {
	switch field {
	case "Name":
		return p.ReadName(el)
	case "ControlType":
		code, err := p.ReadRole(el)
		if err != nil {
			return "", err
		}
		return p.RoleName(code), nil
	case "Value":
		return p.ReadValue(el)
	case "State":
		state, err := p.readState(el)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(state), nil
	}
	return "", fmt.Errorf("%w: unknown MSAA field %q", ErrProviderFault, field)
}

func (p *msaaProvider) ExtraFields() []string { return nil }

func (p *msaaProvider) ReportFields() []string {
	return []string{"Name", "ControlType", "Value", "State"}
}

func (p *msaaProvider) RoleName(code int) string { return MSAARoleName(code) }

// Close stops the COM thread.
func (p *msaaProvider) Close() error { return p.com.close(nil) }

func (p *msaaProvider) Release(el Element) {
	_ = p.com.do(func() error {
		if disp, err := p.dispatch(el); err == nil {
			disp.Release()
		}
		return nil
	})
}

func intValue(v any) int {
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	case uint32:
		return int(n)
	case int16:
		return int(n)
	}
	return 0
}
