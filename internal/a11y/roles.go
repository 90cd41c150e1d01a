// Copyright 2025 Joseph Cumines
//
// Static role tables for both accessibility backends

package a11y

// UnknownRole is the role name used for unmapped codes and empty roles.
const UnknownRole = "Unknown"

// msaaRoles maps MSAA ROLE_SYSTEM_* constants to display names.
var msaaRoles = map[int]string{
	0x00: "None",
	0x01: "TitleBar",
	0x02: "MenuBar",
	0x03: "Menu",
	0x04: "PopupMenu",
	0x05: "MenuItem",
	0x06: "ToolTip",
	0x07: "Application",
	0x08: "Document",
	0x09: "Pane",
	0x0A: "Chart",
	0x0B: "Dialog",
	0x0C: "Border",
	0x0D: "Grouping",
	0x0E: "Separator",
	0x0F: "ToolBar",
	0x10: "StatusBar",
	0x11: "Table",
	0x12: "ColumnHeader",
	0x13: "RowHeader",
	0x14: "Column",
	0x15: "Row",
	0x16: "Cell",
	0x17: "Link",
	0x18: "HelpBalloon",
	0x19: "Character",
	0x1A: "List",
	0x1B: "ListItem",
	0x1C: "Outline",
	0x1D: "OutlineItem",
	0x1E: "PageTab",
	0x1F: "PageTabList",
	0x20: "PropertyPage",
	0x21: "Indicator",
	0x22: "Graphic",
	0x23: "StaticText",
	0x24: "Text",
	0x25: "PushButton",
	0x26: "CheckButton",
	0x27: "RadioButton",
	0x28: "ComboBox",
	0x29: "DropList",
	0x2A: "ProgressBar",
	0x2B: "Dial",
	0x2C: "HotkeyField",
	0x2D: "Slider",
	0x2E: "SpinButton",
	0x2F: "Canvas",
	0x30: "Animation",
	0x31: "Equation",
	0x32: "ButtonDropDown",
	0x33: "ButtonMenu",
	0x34: "ButtonDropDownGrid",
	0x35: "WhiteSpace",
	0x36: "PageTabPage",
	0x37: "Clock",
	0x38: "Splitter",
}

// uiaControlTypes maps UIA_*ControlTypeId values to display names.
// 50025 and 50027 both read "Custom"; 50027 is SplitButton in the SDK
// headers but the inspector has always shown it as Custom.
var uiaControlTypes = map[int]string{
	50000: "Button",
	50001: "Calendar",
	50002: "CheckBox",
	50003: "ComboBox",
	50004: "Edit",
	50005: "Hyperlink",
	50006: "Image",
	50007: "ListItem",
	50008: "List",
	50009: "Menu",
	50010: "MenuBar",
	50011: "MenuItem",
	50012: "ProgressBar",
	50013: "RadioButton",
	50014: "ScrollBar",
	50015: "Slider",
	50016: "Spinner",
	50017: "StatusBar",
	50018: "Tab",
	50019: "TabItem",
	50020: "Text",
	50021: "ToolBar",
	50022: "ToolTip",
	50023: "Tree",
	50024: "TreeItem",
	50025: "Custom",
	50026: "Group",
	50027: "Custom",
	50028: "Thumb",
	50029: "DataGrid",
	50030: "DataItem",
	50031: "Document",
	50032: "Window",
	50033: "Pane",
	50034: "Header",
	50035: "HeaderItem",
	50036: "Table",
	50037: "TitleBar",
	50038: "Separator",
	50039: "SemanticZoom",
	50040: "AppBar",
}

// MSAARoleName maps an MSAA role code to its name.
func MSAARoleName(code int) string { return lookupRole(msaaRoles, code) }

// UIAControlTypeName maps a UIA control type id to its name.
func UIAControlTypeName(code int) string { return lookupRole(uiaControlTypes, code) }

func lookupRole(table map[int]string, code int) string {
	if name, ok := table[code]; ok {
		return name
	}
	return UnknownRole
}
