// Copyright 2025 Joseph Cumines
//
// Interactive console over the command processor

package server

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joeycumines/WinA11yInspector/internal/command"
	"github.com/joeycumines/WinA11yInspector/internal/transport"
)

// Console output styles.
var (
	Green  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	Red    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	Yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	Info   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
)

// ConsoleBanner is printed when the console starts.
func ConsoleBanner() string {
	return Info.Render("Console commands: " + strings.Join(command.Verbs(), ", "))
}

// FormatResult renders res for the console: the log line colored by
// outcome, then the value (if any) unstyled.
func FormatResult(res command.Result) string {
	var b strings.Builder
	if res.OK {
		b.WriteString(Green.Render(res.Log))
	} else {
		b.WriteString(Red.Render(res.Log))
	}
	if res.Value != "" {
		b.WriteByte('\n')
		b.WriteString(strings.TrimRight(res.Value, "\n"))
	}
	return b.String()
}

// ServeConsole prints the banner then runs each console line through the
// inspector until input ends.
func (i *Inspector) ServeConsole(c *transport.Console) error {
	if err := c.Println(ConsoleBanner()); err != nil {
		return err
	}
	return c.Serve(func(line string) string {
		return FormatResult(i.processor.Execute(line))
	})
}
