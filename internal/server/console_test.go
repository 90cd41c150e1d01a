// Copyright 2025 Joseph Cumines

package server

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeycumines/WinA11yInspector/internal/command"
	"github.com/joeycumines/WinA11yInspector/internal/transport"
)

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name   string
		res    command.Result
		want   []string
		absent string
	}{
		{"success", command.Result{OK: true, Log: "Clicked _1_2"}, []string{"Clicked _1_2"}, "\n"},
		{"value", command.Result{OK: true, Log: "Properties of _1", Value: "Name: x\n"}, []string{"Properties of _1", "\nName: x"}, ""},
		{"failure", command.Result{Log: "Error: no process selected", Err: command.ErrNoProcessSelected}, []string{"Error: no process selected"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatResult(tt.res)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("FormatResult() = %q, missing %q", got, w)
				}
			}
			if tt.absent != "" && strings.Contains(got, tt.absent) {
				t.Errorf("FormatResult() = %q, contains %q", got, tt.absent)
			}
			if strings.HasSuffix(got, "\n") {
				t.Errorf("FormatResult() = %q has a trailing newline", got)
			}
		})
	}
}

func TestConsoleBanner(t *testing.T) {
	banner := ConsoleBanner()
	for _, verb := range []string{"Console commands:", "click", "dblclick", "sendkeys"} {
		if !strings.Contains(banner, verb) {
			t.Errorf("banner %q missing %q", banner, verb)
		}
	}
}

func TestInspector_ServeConsole(t *testing.T) {
	i, os := newTestInspector(t)
	in := strings.NewReader("selectprocess Calculator\n\nselect 75 210\nclick\nfrobnicate\n")
	var out bytes.Buffer

	if err := i.ServeConsole(transport.NewConsole(in, &out)); err != nil {
		t.Fatalf("ServeConsole() error = %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"Console commands:",
		transport.DefaultPrompt,
		"4 elements",
		"Selected _1_3",
		"unknown verb",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("console output missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(strings.Join(os.Events(), "|"), "move 295,325") {
		t.Errorf("console click not at the selection: %v", os.Events())
	}
}
