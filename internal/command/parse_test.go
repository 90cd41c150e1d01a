// Copyright 2025 Joseph Cumines
//
// Command parser unit tests

package command

import (
	"errors"
	"testing"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"selectprocess quoted", `selectprocess "Notepad"`, Command{Verb: VerbSelectProcess, Arg: "Notepad"}},
		{"selectprocess spaces", `SelectProcess  Untitled - Notepad `, Command{Verb: VerbSelectProcess, Arg: "Untitled - Notepad"}},
		{"click bare", "click", Command{Verb: VerbClick}},
		{"click path", `click path=//button[@name="OK"]`, Command{Verb: VerbClick, Path: `//button[@name="OK"]`, HasPath: true}},
		{"path with spaces in literal", `dblclick path=//button[@name="Save As"]`, Command{Verb: VerbDoubleClick, Path: `//button[@name="Save As"]`, HasPath: true}},
		{"path with spaces in predicate", `find path=//edit[@name = 'a b' and @value]`, Command{Verb: VerbFind, Path: `//edit[@name = 'a b' and @value]`, HasPath: true}},
		{"xpath alias", `find xpath=//*[@id="_1_5"]`, Command{Verb: VerbFind, Path: `//*[@id="_1_5"]`, HasPath: true}},
		{"sendkeys path and text", "sendkeys path=//edit text to type", Command{Verb: VerbSendKeys, Path: "//edit", HasPath: true, Arg: "text to type"}},
		{"sendkeys text verbatim", "sendkeys  Hello,  World ", Command{Verb: VerbSendKeys, Arg: "Hello,  World "}},
		{"sendkeys trailing newline", "sendkeys Hello\r\n", Command{Verb: VerbSendKeys, Arg: "Hello"}},
		{"getprop", "getprop path=//list name", Command{Verb: VerbGetProp, Path: "//list", HasPath: true, Arg: "name"}},
		{"select", "select 10  20", Command{Verb: VerbSelect, Arg: "10 20", X: 10, Y: 20}},
		{"provider", "provider MSAA", Command{Verb: VerbProvider, Arg: "msaa", Provider: a11y.KindMSAA}},
		{"highlights on", "highlights ON", Command{Verb: VerbHighlights, Arg: "on", On: true}},
		{"highlights off", "highlights 0", Command{Verb: VerbHighlights, Arg: "off"}},
		{"props path", "props path=//edit", Command{Verb: VerbProps, Path: "//edit", HasPath: true}},
		{"inspect", "  inspect", Command{Verb: VerbInspect}},
		{"status", "STATUS", Command{Verb: VerbStatus}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) =\n%+v\nwant\n%+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"", ErrUsage},
		{"   ", ErrUsage},
		{"explode", ErrUnknownVerb},
		{"selectprocess", ErrUsage},
		{`selectprocess ""`, ErrUsage},
		{"selectprocess path=//x notepad", ErrUsage},
		{"click now", ErrUsage},
		{"sendkeys", ErrUsage},
		{"sendkeys path=//edit", ErrUsage},
		{"getprop name", ErrUsage},
		{"getprop path=//edit", ErrUsage},
		{"getprop path=//edit two words", ErrUsage},
		{"find", ErrUsage},
		{"find path=//edit extra", ErrUsage},
		{"select 1", ErrUsage},
		{"select -1 5", ErrUsage},
		{"select a b", ErrUsage},
		{"provider atspi", ErrUsage},
		{"highlights maybe", ErrUsage},
		{"status now", ErrUsage},
	}
	for _, tt := range tests {
		if _, err := Parse(tt.line); !errors.Is(err, tt.want) {
			t.Errorf("Parse(%q) error = %v, want %v", tt.line, err, tt.want)
		}
	}
}

func TestParse_EmptyPathKept(t *testing.T) {
	cmd, err := Parse("click path=")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !cmd.HasPath || cmd.Path != "" {
		t.Errorf("Parse() = %+v, want empty path", cmd)
	}
}

func TestCommand_String(t *testing.T) {
	for _, line := range []string{
		`click path=//button[@name="OK"]`,
		"sendkeys path=//edit Hello there",
		"select 3 4",
		"status",
	} {
		cmd, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", line, err)
		}
		if cmd.String() != line {
			t.Errorf("String() = %q, want %q", cmd.String(), line)
		}
	}
}

func TestVerb_String(t *testing.T) {
	if VerbDoubleClick.String() != "dblclick" {
		t.Errorf("VerbDoubleClick.String() = %q", VerbDoubleClick.String())
	}
	if Verb(0).String() != "verb(0)" || Verb(99).String() != "verb(99)" {
		t.Error("invalid verbs not rendered numerically")
	}
	if got := len(Verbs()); got != 12 {
		t.Errorf("len(Verbs()) = %d, want 12", got)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNoProcessSelected, KindNoProcessSelected},
		{a11y.ErrStaleHandle, KindNoElementSelected},
		{ErrElementNotFound, KindElementNotFound},
		{ErrInvalidAddress, KindInvalidAddress},
		{ErrOSInput, KindOSInput},
		{a11y.ErrUnsupported, KindProviderFault},
		{ErrUnknownVerb, KindUnknownVerb},
		{ErrUsage, KindUsage},
		{errors.New("other"), KindInternal},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
