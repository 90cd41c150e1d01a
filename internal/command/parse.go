// Copyright 2025 Joseph Cumines
//
// Command line parsing

package command

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
)

// Verb identifies a command.
type Verb int

const (
	VerbSelectProcess Verb = iota + 1
	VerbClick
	VerbDoubleClick
	VerbSendKeys
	VerbGetProp
	VerbFind
	VerbSelect
	VerbInspect
	VerbProps
	VerbProvider
	VerbHighlights
	VerbStatus
)

var verbNames = []string{
	VerbSelectProcess: "selectprocess",
	VerbClick:         "click",
	VerbDoubleClick:   "dblclick",
	VerbSendKeys:      "sendkeys",
	VerbGetProp:       "getprop",
	VerbFind:          "find",
	VerbSelect:        "select",
	VerbInspect:       "inspect",
	VerbProps:         "props",
	VerbProvider:      "provider",
	VerbHighlights:    "highlights",
	VerbStatus:        "status",
}

func (v Verb) String() string {
	if v > 0 && int(v) < len(verbNames) {
		return verbNames[v]
	}
	return "verb(" + strconv.Itoa(int(v)) + ")"
}

// Verbs returns every verb name, in declaration order.
func Verbs() []string {
	return append([]string(nil), verbNames[1:]...)
}

func lookupVerb(name string) (Verb, bool) {
	for v, n := range verbNames {
		if v > 0 && n == name {
			return Verb(v), true
		}
	}
	return 0, false
}

// Command is one parsed command line. Fields beyond Verb, Path and Arg
// are set only for the verbs that use them.
type Command struct {
	Verb    Verb
	Path    string
	HasPath bool
	Arg     string

	// X and Y are the window-client point of select.
	X, Y int
	// Provider is the backend of provider.
	Provider a11y.Kind
	// On is the mode of highlights.
	On bool
}

// String renders the command back into the command language.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Verb.String())
	if c.HasPath {
		b.WriteString(" path=")
		b.WriteString(c.Path)
	}
	if c.Arg != "" {
		b.WriteByte(' ')
		b.WriteString(c.Arg)
	}
	return b.String()
}

// Parse parses one line of the command language:
//
//	verb [path=<expr>] [argument]
//
// The verb is case-insensitive. The path expression ends at the first
// whitespace outside quotes and brackets; xpath= is accepted as an alias.
// The argument is the verbatim remainder after the separating whitespace.
// When only the arguments are malformed, the returned Command still carries
// the Verb.
func Parse(line string) (Command, error) {
	line = strings.TrimLeftFunc(strings.TrimRight(line, "\r\n"), unicode.IsSpace)
	if strings.TrimSpace(line) == "" {
		return Command{}, fmt.Errorf("%w: empty command", ErrUsage)
	}

	word, rest := cut(line)
	verb, ok := lookupVerb(strings.ToLower(word))
	if !ok {
		return Command{}, fmt.Errorf("%w: %q (verbs: %s)", ErrUnknownVerb, word, strings.Join(Verbs(), ", "))
	}
	cmd := Command{Verb: verb}

	if prefix, ok := pathPrefix(rest); ok {
		cmd.HasPath = true
		cmd.Path, rest = scanPath(rest[len(prefix):])
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	}
	cmd.Arg = rest

	if err := cmd.validate(); err != nil {
		return Command{Verb: verb}, err
	}
	return cmd, nil
}

// cut splits off the first whitespace-delimited word.
func cut(s string) (word, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}

func pathPrefix(s string) (string, bool) {
	for _, p := range []string{"path=", "xpath="} {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return s[:len(p)], true
		}
	}
	return "", false
}

// scanPath reads an expression up to the first whitespace that is outside
// quotes, brackets and parentheses.
func scanPath(s string) (expr, rest string) {
	var quote rune
	depth := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			if depth > 0 {
				depth--
			}
		case unicode.IsSpace(r) && depth == 0:
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func (c *Command) validate() error {
	usage := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrUsage, c.Verb, fmt.Sprintf(format, args...))
	}
	noPath := func() error {
		if c.HasPath {
			return usage("takes no path")
		}
		return nil
	}
	noArg := func() error {
		if strings.TrimSpace(c.Arg) != "" {
			return usage("unexpected argument %q", c.Arg)
		}
		c.Arg = ""
		return nil
	}

	switch c.Verb {
	case VerbSelectProcess:
		if err := noPath(); err != nil {
			return err
		}
		c.Arg = unquote(strings.TrimSpace(c.Arg))
		if c.Arg == "" {
			return usage("selectprocess <name>")
		}

	case VerbClick, VerbDoubleClick, VerbProps:
		return noArg()

	case VerbSendKeys:
		if c.Arg == "" {
			return usage("sendkeys [path=<expr>] <text>")
		}

	case VerbGetProp:
		if !c.HasPath {
			return usage("getprop path=<expr> <property>")
		}
		c.Arg = strings.TrimSpace(c.Arg)
		if c.Arg == "" || strings.ContainsFunc(c.Arg, unicode.IsSpace) {
			return usage("getprop path=<expr> <property>")
		}

	case VerbFind:
		if !c.HasPath {
			return usage("find path=<expr>")
		}
		return noArg()

	case VerbSelect:
		if err := noPath(); err != nil {
			return err
		}
		fields := strings.Fields(c.Arg)
		if len(fields) != 2 {
			return usage("select <x> <y>")
		}
		x, errX := strconv.Atoi(fields[0])
		y, errY := strconv.Atoi(fields[1])
		if errX != nil || errY != nil || x < 0 || y < 0 {
			return usage("coordinates must be non-negative integers, got %q", c.Arg)
		}
		c.X, c.Y = x, y
		c.Arg = fields[0] + " " + fields[1]

	case VerbProvider:
		if err := noPath(); err != nil {
			return err
		}
		k, err := a11y.ParseKind(c.Arg)
		if err != nil {
			return usage("%v", err)
		}
		c.Provider = k
		c.Arg = string(k)

	case VerbHighlights:
		if err := noPath(); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(c.Arg)) {
		case "on", "true", "1":
			c.On, c.Arg = true, "on"
		case "off", "false", "0":
			c.On, c.Arg = false, "off"
		default:
			return usage("highlights on|off")
		}

	case VerbInspect, VerbStatus:
		if err := noPath(); err != nil {
			return err
		}
		return noArg()
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
