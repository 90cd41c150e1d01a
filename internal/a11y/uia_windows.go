// Copyright 2025 Joseph Cumines
//
// UIAutomation provider

//go:build windows

package a11y

import (
	"fmt"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

var (
	clsidCUIAutomation = ole.NewGUID("{FF48DBA4-60EF-4201-AA87-54103EEF594E}")
	iidIUIAutomation   = ole.NewGUID("{30CBE57D-D9D0-452A-AB13-7AC5AC4825EE}")
)

// vtable slots, counted from IUnknown::QueryInterface
const (
	automationElementFromHandle   = 6
	automationCreateTrueCondition = 21

	elementFindAll                     = 6
	elementGetCurrentPropertyValue     = 10
	elementGetCurrentControlType       = 21
	elementGetCurrentName              = 23
	elementGetCurrentHasKeyboardFocus  = 26
	elementGetCurrentIsEnabled         = 28
	elementGetCurrentAutomationID      = 29
	elementGetCurrentClassName         = 30
	elementGetCurrentFrameworkID       = 40
	elementGetCurrentBoundingRectangle = 43
	elementArrayGetLength              = 3
	elementArrayGetElement             = 4
	treeScopeChildren                  = 2
	valueValuePropertyID               = 30045
)

type uiaElement uintptr

type uiaProvider struct {
	desktop
	com        *comThread
	automation uintptr
	condition  uintptr
}

func newUIAProvider() (*uiaProvider, error) {
	com, err := newCOMThread()
	if err != nil {
		return nil, err
	}
	p := &uiaProvider{com: com}
	err = com.do(func() error {
		unk, err := ole.CreateInstance(clsidCUIAutomation, iidIUIAutomation)
		if err != nil {
			return fmt.Errorf("%w: CoCreateInstance(CUIAutomation): %v", ErrProviderFault, err)
		}
		p.automation = uintptr(unsafe.Pointer(unk))
		if err := vtblCall(p.automation, automationCreateTrueCondition, uintptr(unsafe.Pointer(&p.condition))); err != nil {
			comRelease(p.automation)
			return fmt.Errorf("%w: CreateTrueCondition: %v", ErrProviderFault, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *uiaProvider) Kind() Kind { return KindUIA }

func (p *uiaProvider) CaptureRoot(w Window) (Element, error) {
	return comValue(p.com, func() (Element, error) {
		var el uintptr
		if err := vtblCall(p.automation, automationElementFromHandle, uintptr(w), uintptr(unsafe.Pointer(&el))); err != nil {
			return nil, fmt.Errorf("%w: ElementFromHandle: %v", ErrProviderFault, err)
		}
		if el == 0 {
			return nil, fmt.Errorf("%w: ElementFromHandle returned no element", ErrProviderFault)
		}
		return uiaElement(el), nil
	})
}

func (p *uiaProvider) element(el Element) (uintptr, error) {
	e, ok := el.(uiaElement)
	if !ok || e == 0 {
		return 0, fmt.Errorf("%w: not an automation element: %T", ErrUnknownElement, el)
	}
	return uintptr(e), nil
}

func (p *uiaProvider) bstr(el Element, idx int) (string, error) {
	return comValue(p.com, func() (string, error) {
		e, err := p.element(el)
		if err != nil {
			return "", err
		}
		var s *uint16
		if err := vtblCall(e, idx, uintptr(unsafe.Pointer(&s))); err != nil {
			return "", err
		}
		if s == nil {
			return "", nil
		}
		defer ole.SysFreeString((*int16)(unsafe.Pointer(s)))
		return ole.BstrToString(s), nil
	})
}

func (p *uiaProvider) int32Property(el Element, idx int) (int32, error) {
	return comValue(p.com, func() (int32, error) {
		e, err := p.element(el)
		if err != nil {
			return 0, err
		}
		var v int32
		if err := vtblCall(e, idx, uintptr(unsafe.Pointer(&v))); err != nil {
			return 0, err
		}
		return v, nil
	})
}

func (p *uiaProvider) boolProperty(el Element, idx int) (string, error) {
	v, err := p.int32Property(el, idx)
	if err != nil {
		return "", err
	}
	if v != 0 {
		return "True", nil
	}
	return "False", nil
}

func (p *uiaProvider) ReadName(el Element) (string, error) {
	return p.bstr(el, elementGetCurrentName)
}

func (p *uiaProvider) ReadRole(el Element) (int, error) {
	v, err := p.int32Property(el, elementGetCurrentControlType)
	return int(v), err
}

// ReadValue reads the Value pattern's value; elements without one read
// as empty.
func (p *uiaProvider) ReadValue(el Element) (string, error) {
	return comValue(p.com, func() (string, error) {
		e, err := p.element(el)
		if err != nil {
			return "", err
		}
		var v ole.VARIANT
		ole.VariantInit(&v)
		if err := vtblCall(e, elementGetCurrentPropertyValue, uintptr(valueValuePropertyID), uintptr(unsafe.Pointer(&v))); err != nil {
			return "", err
		}
		defer ole.VariantClear(&v)
		if v.VT != ole.VT_BSTR {
			return "", nil
		}
		return v.ToString(), nil
	})
}

// ReadChildCount fails: UIAutomation has no count short of a FindAll, so
// the Builder always enumerates.
func (p *uiaProvider) ReadChildCount(el Element) (int, error) {
	return 0, fmt.Errorf("%w: UIAutomation has no child count", ErrUnsupported)
}

func (p *uiaProvider) ReadBoundingRect(el Element) (Rect, error) {
	return comValue(p.com, func() (Rect, error) {
		e, err := p.element(el)
		if err != nil {
			return Rect{}, err
		}
		var r win32Rect
		if err := vtblCall(e, elementGetCurrentBoundingRectangle, uintptr(unsafe.Pointer(&r))); err != nil {
			return Rect{}, err
		}
		return r.rect(), nil
	})
}

// EnumerateChildren returns the control view children of el.
func (p *uiaProvider) EnumerateChildren(el Element) ([]Element, error) {
	return comValue(p.com, func() ([]Element, error) {
		e, err := p.element(el)
		if err != nil {
			return nil, err
		}
		var arr uintptr
		if err := vtblCall(e, elementFindAll, uintptr(treeScopeChildren), p.condition, uintptr(unsafe.Pointer(&arr))); err != nil {
			return nil, err
		}
		if arr == 0 {
			return nil, nil
		}
		defer comRelease(arr)

		var n int32
		if err := vtblCall(arr, elementArrayGetLength, uintptr(unsafe.Pointer(&n))); err != nil {
			return nil, err
		}
		children := make([]Element, 0, n)
		for i := int32(0); i < n; i++ {
			var child uintptr
			if err := vtblCall(arr, elementArrayGetElement, uintptr(i), uintptr(unsafe.Pointer(&child))); err != nil {
				for _, c := range children {
					comRelease(uintptr(c.(uiaElement)))
				}
				return nil, err
			}
			if child != 0 {
				children = append(children, uiaElement(child))
			}
		}
		return children, nil
	})
}

func (p *uiaProvider) ReadField(el Element, field string) (string, error) {
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
	case "AutomationId":
		return p.bstr(el, elementGetCurrentAutomationID)
	case "ClassName":
		return p.bstr(el, elementGetCurrentClassName)
	case "className":
		// captured attribute: class name, else automation id
		s, err := p.bstr(el, elementGetCurrentClassName)
		if err == nil && s != "" {
			return s, nil
		}
		return p.bstr(el, elementGetCurrentAutomationID)
	case "FrameworkId":
		return p.bstr(el, elementGetCurrentFrameworkID)
	case "IsEnabled":
		return p.boolProperty(el, elementGetCurrentIsEnabled)
	case "HasKeyboardFocus":
		return p.boolProperty(el, elementGetCurrentHasKeyboardFocus)
	}
	return "", fmt.Errorf("%w: unknown UIA field %q", ErrProviderFault, field)
}

func (p *uiaProvider) ExtraFields() []string { return []string{"className"} }

func (p *uiaProvider) ReportFields() []string {
	return []string{"Name", "AutomationId", "ControlType", "ClassName", "FrameworkId", "IsEnabled", "HasKeyboardFocus"}
}

func (p *uiaProvider) RoleName(code int) string { return UIAControlTypeName(code) }

// Close releases the automation objects and stops the COM thread.
func (p *uiaProvider) Close() error {
	return p.com.close(func() {
		comRelease(p.condition)
		comRelease(p.automation)
		p.condition, p.automation = 0, 0
	})
}

func (p *uiaProvider) Release(el Element) {
	_ = p.com.do(func() error {
		if e, err := p.element(el); err == nil {
			comRelease(e)
		}
		return nil
	})
}
