// Copyright 2025 Joseph Cumines
//
// Package command parses and executes inspector commands.
//
// A Processor resolves each command's target through the current session
// generation (by path query or by the selection), then drives the input
// synthesizer. Commands are serialized: one runs at a time, process-wide.
// Every failure, including a panic, is reported as a Result rather than
// returned or propagated.
package command

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
	"github.com/joeycumines/WinA11yInspector/internal/session"
)

// NotFoundMarker is reported by getprop for attributes the element lacks.
const NotFoundMarker = "<not found>"

// Synthesizer performs input at screen points.
type Synthesizer interface {
	Click(target a11y.Window, x, y int) error
	DoubleClick(target a11y.Window, x, y int) error
	ClickAndType(target a11y.Window, x, y int, text string) error
}

// ProviderFactory constructs a provider of the given kind.
type ProviderFactory func(kind a11y.Kind) (a11y.Provider, error)

// Observer is notified after every command.
type Observer func(cmd Command, res Result, elapsed time.Duration)

// Result is the outcome of one command.
type Result struct {
	Err error
	// Log is the human-readable outcome line.
	Log string
	// ElementID is the resolved element, if any.
	ElementID string
	// Value carries verb output: getprop's value, props' report, status.
	Value string
	// Generation is the session generation ElementID belongs to. Element
	// ids are only unique within a generation.
	Generation uint64
	Verb       Verb
	OK         bool
}

// Kind returns the error kind of a failed Result.
func (r Result) Kind() string { return ErrorKind(r.Err) }

// Config configures a Processor.
type Config struct {
	State       *session.State
	Provider    a11y.Provider
	NewProvider ProviderFactory
	Input       Synthesizer
	Observers   []Observer
}

// Processor executes commands against the session.
type Processor struct {
	state       *session.State
	builder     *a11y.Builder
	newProvider ProviderFactory
	input       Synthesizer
	observers   []Observer
	mu          sync.Mutex
}

// NewProcessor returns a Processor. The session's provider kind is set to
// the provider's.
func NewProcessor(cfg Config) *Processor {
	cfg.State.SetProvider(cfg.Provider.Kind())
	return &Processor{
		state:       cfg.State,
		builder:     a11y.NewBuilder(cfg.Provider),
		newProvider: cfg.NewProvider,
		input:       cfg.Input,
		observers:   cfg.Observers,
	}
}

// State returns the session.
func (p *Processor) State() *session.State { return p.state }

// Execute parses and runs one command line. A malformed command for a
// verb that needs a target reports the missing process first.
func (p *Processor) Execute(line string) Result {
	cmd, err := Parse(line)
	if err != nil {
		if cmd.Verb != 0 && needsProcess(cmd.Verb) && p.state.ProcessName() == "" {
			err = ErrNoProcessSelected
		}
		res := fail(cmd.Verb, err)
		p.observe(cmd, res, 0)
		return res
	}
	return p.Run(cmd)
}

// Run executes a parsed command.
func (p *Processor) Run(cmd Command) (res Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error: command %q panicked: %v", cmd.String(), r)
			res = fail(cmd.Verb, fmt.Errorf("%w: panic: %v", ErrProviderFault, r))
		}
		if res.ElementID != "" && res.Generation == 0 {
			if g := p.state.Generation(); g != nil {
				res.Generation = g.Seq
			}
		}
		p.observe(cmd, res, time.Since(start))
	}()

	if needsProcess(cmd.Verb) && p.state.ProcessName() == "" {
		return fail(cmd.Verb, ErrNoProcessSelected)
	}

	switch cmd.Verb {
	case VerbSelectProcess:
		return p.selectProcess(cmd)
	case VerbClick, VerbDoubleClick, VerbSendKeys:
		return p.interact(cmd)
	case VerbGetProp:
		return p.getProp(cmd)
	case VerbFind:
		return p.find(cmd)
	case VerbSelect:
		return p.selectPoint(cmd)
	case VerbInspect:
		return p.inspect(cmd)
	case VerbProps:
		return p.props(cmd)
	case VerbProvider:
		return p.switchProvider(cmd)
	case VerbHighlights:
		p.state.SetShowAllHighlights(cmd.On)
		return ok(cmd.Verb, "", "Highlights "+cmd.Arg)
	case VerbStatus:
		return p.status(cmd)
	}
	return fail(cmd.Verb, fmt.Errorf("%w: %s", ErrUnknownVerb, cmd.Verb))
}

// SelectPoint selects the element at a window-client point.
func (p *Processor) SelectPoint(x, y int) Result {
	return p.Run(Command{Verb: VerbSelect, X: x, Y: y, Arg: fmt.Sprintf("%d %d", x, y)})
}

// Properties returns the property report of a captured element and makes
// it the selection. A non-zero generation must be the current one, since
// ids are reused across captures; zero means the current generation.
func (p *Processor) Properties(id string, generation uint64) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	g := p.state.Generation()
	if g == nil {
		return fail(VerbProps, ErrNoProcessSelected)
	}
	if generation != 0 && generation != g.Seq {
		return fail(VerbProps, fmt.Errorf("%w: %s is from generation %d, current is %d", ErrStaleHandle, id, generation, g.Seq))
	}
	if _, found := g.Snapshot.Node(id); !found {
		return fail(VerbProps, fmt.Errorf("%w: %s", ErrElementNotFound, id))
	}
	p.state.Select(g, id)
	res := p.report(g, id)
	res.Generation = g.Seq
	return res
}

// Close releases the current provider.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.builder.Release()
	return p.builder.Provider().Close()
}

func needsProcess(v Verb) bool {
	switch v {
	case VerbSelectProcess, VerbProvider, VerbHighlights, VerbStatus:
		return false
	}
	return true
}

func (p *Processor) observe(cmd Command, res Result, elapsed time.Duration) {
	for _, o := range p.observers {
		o(cmd, res, elapsed)
	}
}

func ok(verb Verb, id, line string) Result {
	return Result{Verb: verb, OK: true, ElementID: id, Log: line}
}

func fail(verb Verb, err error) Result {
	return Result{Verb: verb, Err: err, Log: "Error: " + err.Error()}
}

// capture recaptures w and publishes the result as the current
// generation.
func (p *Processor) capture(w a11y.Window) *session.Generation {
	snap := p.builder.Capture(w)
	rect, err := p.builder.Provider().WindowRect(w)
	if err != nil {
		log.Printf("Warning: window rect of %#x unavailable: %v", uintptr(w), err)
		if r := snap.Root(); r != nil {
			rect = r.Rect
		}
	}
	return p.state.Publish(session.Derive(snap, rect))
}

func (p *Processor) selectProcess(cmd Command) Result {
	prov := p.builder.Provider()
	w, err := prov.ResolveWindow(cmd.Arg)
	if err != nil {
		return fail(cmd.Verb, err)
	}
	title, err := prov.WindowTitle(w)
	if err != nil {
		log.Printf("Warning: title of window %#x unavailable: %v", uintptr(w), err)
	}
	p.state.SetTarget(cmd.Arg, title)
	g := p.capture(w)
	return ok(cmd.Verb, "", fmt.Sprintf("Selected process %q: window %q (%#x), %d elements",
		cmd.Arg, title, uintptr(w), g.Snapshot.Len()))
}

// target resolves the command's element and its rectangle.
func (p *Processor) target(cmd Command) (string, *session.Generation, a11y.Rect, error) {
	var (
		id string
		g  *session.Generation
	)
	if cmd.HasPath {
		g = p.state.Generation()
		if g == nil {
			return "", nil, a11y.Rect{}, ErrNoProcessSelected
		}
		var err error
		if id, err = g.Tree.FindID(cmd.Path); err != nil {
			return "", g, a11y.Rect{}, err
		}
	} else {
		var found bool
		if id, g, found = p.state.Selected(); !found {
			return "", g, a11y.Rect{}, ErrNoElementSelected
		}
	}
	rect := g.Snapshot.BoundingRect(id)
	if rect.IsZero() {
		return id, g, rect, fmt.Errorf("%w: %s has no bounding rectangle", ErrElementNotFound, id)
	}
	return id, g, rect, nil
}

func (p *Processor) interact(cmd Command) Result {
	id, g, rect, err := p.target(cmd)
	if err != nil {
		return fail(cmd.Verb, err)
	}
	if cmd.HasPath {
		p.state.Select(g, id)
	}
	x, y := rect.Center()

	var line string
	switch cmd.Verb {
	case VerbClick:
		err = p.input.Click(g.Window, x, y)
		line = fmt.Sprintf("Click performed on %s at (%d, %d)", id, x, y)
	case VerbDoubleClick:
		err = p.input.DoubleClick(g.Window, x, y)
		line = fmt.Sprintf("Double click performed on %s at (%d, %d)", id, x, y)
	case VerbSendKeys:
		err = p.input.ClickAndType(g.Window, x, y, cmd.Arg)
		line = fmt.Sprintf("Sent keys to %s: %s", id, cmd.Arg)
	}
	if err != nil {
		res := fail(cmd.Verb, err)
		res.ElementID = id
		return res
	}
	return ok(cmd.Verb, id, line)
}

func (p *Processor) getProp(cmd Command) Result {
	g := p.state.Generation()
	if g == nil {
		return fail(cmd.Verb, ErrNoProcessSelected)
	}
	// values read before input would be stale
	g = p.capture(g.Window)
	n, err := g.Tree.Find(cmd.Path)
	if err != nil {
		return fail(cmd.Verb, err)
	}
	v, found := n.Attr(cmd.Arg)
	if !found {
		v = NotFoundMarker
	}
	res := ok(cmd.Verb, n.ID, fmt.Sprintf("%s %s: %s", n.ID, cmd.Arg, v))
	res.Value = v
	return res
}

func (p *Processor) find(cmd Command) Result {
	id, g, _, err := p.target(cmd)
	if id == "" {
		return fail(cmd.Verb, err)
	}
	// find only needs the element to exist; a zero rect is fine here
	p.state.Select(g, id)
	n, _ := g.Snapshot.Node(id)
	res := ok(cmd.Verb, id, fmt.Sprintf("Found %s (%s %q)", id, n.Role, n.Name))
	res.Value = id
	return res
}

func (p *Processor) selectPoint(cmd Command) Result {
	g := p.state.Generation()
	if g == nil {
		return fail(cmd.Verb, ErrNoProcessSelected)
	}
	// the window may have moved since capture
	origin := g.WindowRect
	if r, err := p.builder.Provider().WindowRect(g.Window); err == nil {
		origin = r
	}
	id, found := g.Hits.Resolve(cmd.X, cmd.Y, origin)
	if !found {
		return fail(cmd.Verb, fmt.Errorf("%w: nothing at (%d, %d)", ErrElementNotFound, cmd.X, cmd.Y))
	}
	p.state.Select(g, id)
	n, _ := g.Snapshot.Node(id)
	res := ok(cmd.Verb, id, fmt.Sprintf("Selected %s (%s %q)", id, n.Role, n.Name))
	res.Value = id
	return res
}

func (p *Processor) inspect(cmd Command) Result {
	prev := p.state.Generation()
	if prev == nil {
		return fail(cmd.Verb, ErrNoProcessSelected)
	}
	g := p.capture(prev.Window)
	change := "changed"
	if g.Snapshot.Fingerprint() == prev.Snapshot.Fingerprint() {
		change = "unchanged"
	}
	return ok(cmd.Verb, "", fmt.Sprintf("Captured %d elements (generation %d, %s)", g.Snapshot.Len(), g.Seq, change))
}

func (p *Processor) props(cmd Command) Result {
	id, g, _, err := p.target(cmd)
	if id == "" {
		return fail(cmd.Verb, err)
	}
	if cmd.HasPath {
		p.state.Select(g, id)
	}
	return p.report(g, id)
}

func (p *Processor) report(g *session.Generation, id string) Result {
	report, err := g.Snapshot.Properties(id)
	if err != nil {
		return fail(VerbProps, err)
	}
	res := ok(VerbProps, id, "Properties of "+id)
	res.Value = report
	return res
}

func (p *Processor) switchProvider(cmd Command) Result {
	if cmd.Provider == p.builder.Provider().Kind() {
		return ok(cmd.Verb, "", "Provider already "+string(cmd.Provider))
	}
	if p.newProvider == nil {
		return fail(cmd.Verb, fmt.Errorf("%w: provider switching unavailable", ErrProviderFault))
	}
	prov, err := p.newProvider(cmd.Provider)
	if err != nil {
		return fail(cmd.Verb, err)
	}
	p.builder.Release()
	if err := p.builder.Provider().Close(); err != nil {
		log.Printf("Warning: closing %s provider: %v", p.builder.Provider().Kind(), err)
	}
	p.builder = a11y.NewBuilder(prov)
	p.state.SetProvider(prov.Kind())

	name := p.state.ProcessName()
	if name == "" {
		return ok(cmd.Verb, "", "Provider set to "+string(prov.Kind()))
	}
	w, err := prov.ResolveWindow(name)
	if err != nil {
		return fail(cmd.Verb, err)
	}
	g := p.capture(w)
	return ok(cmd.Verb, "", fmt.Sprintf("Provider set to %s, %d elements", prov.Kind(), g.Snapshot.Len()))
}

func (p *Processor) status(cmd Command) Result {
	st := p.state.Status()
	process := st.ProcessName
	if process == "" {
		process = "(none)"
	}
	selected := st.SelectedID
	if selected == "" {
		selected = "(none)"
	}
	highlights := "off"
	if st.ShowAllHighlights {
		highlights = "on"
	}
	value := fmt.Sprintf("process: %s\nwindow: %q (%#x)\nprovider: %s\ngeneration: %d\nelements: %d\nselected: %s\nhighlights: %s\n",
		process, st.WindowTitle, uintptr(st.Window), st.Provider, st.Seq, st.Elements, selected, highlights)
	res := ok(cmd.Verb, st.SelectedID, "Status")
	res.Value = value
	return res
}
