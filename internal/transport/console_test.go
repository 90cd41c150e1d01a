// Copyright 2025 Joseph Cumines
//
// Console transport unit tests

package transport

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsole_Serve(t *testing.T) {
	in := strings.NewReader("click\n\n   \n  sendkeys hi  \nstatus")
	var out bytes.Buffer
	c := NewConsole(in, &out)

	var lines []string
	err := c.Serve(func(line string) string {
		lines = append(lines, line)
		if line == "status" {
			return ""
		}
		return "ok: " + line
	})
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	if got := strings.Join(lines, "|"); got != "click|sendkeys hi|status" {
		t.Errorf("lines = %q", got)
	}
	want := "> ok: click\n> > > ok: sendkeys hi\n> > "
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestConsole_NoPrompt(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("a\n"), &out)
	c.Prompt = ""
	if err := c.Serve(func(line string) string { return line }); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if out.String() != "a\n" {
		t.Errorf("output = %q, want %q", out.String(), "a\n")
	}
}

func TestConsole_Println(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out)
	if err := c.Println("Console commands: click"); err != nil {
		t.Fatalf("Println() error = %v", err)
	}
	if out.String() != "Console commands: click\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestConsole_LongLines(t *testing.T) {
	long := strings.Repeat("a", 200<<10)
	tests := []struct {
		name      string
		input     string
		wantLines []string
		wantOut   string
	}{
		{"over default scanner limit", "sendkeys " + long + "\nstatus\n", []string{"sendkeys " + long, "status"}, ""},
		{"over max", strings.Repeat("b", MaxLineLength+1) + "\nstatus\n", []string{"status"}, "longer than"},
		{"over max at eof", "status\n" + strings.Repeat("b", MaxLineLength+5), []string{"status"}, "longer than"},
		{"exactly max", strings.Repeat("c", MaxLineLength) + "\n", []string{strings.Repeat("c", MaxLineLength)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConsole(strings.NewReader(tt.input), &out)
			c.Prompt = ""

			var lines []string
			if err := c.Serve(func(line string) string {
				lines = append(lines, line)
				return ""
			}); err != nil {
				t.Fatalf("Serve() error = %v", err)
			}
			if len(lines) != len(tt.wantLines) {
				t.Fatalf("got %d lines, want %d", len(lines), len(tt.wantLines))
			}
			for i := range lines {
				if lines[i] != tt.wantLines[i] {
					t.Errorf("line %d has length %d, want %d", i, len(lines[i]), len(tt.wantLines[i]))
				}
			}
			if tt.wantOut == "" && out.Len() != 0 {
				t.Errorf("output = %q", out.String())
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output = %q, missing %q", out.String(), tt.wantOut)
			}
		})
	}
}
