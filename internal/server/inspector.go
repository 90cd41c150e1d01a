// Copyright 2025 Joseph Cumines
//
// Inspector HTTP endpoints

package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joeycumines/WinA11yInspector/internal/command"
	"github.com/joeycumines/WinA11yInspector/internal/session"
	"github.com/joeycumines/WinA11yInspector/internal/transport"
)

// maxCommandBody bounds POST /command.
const maxCommandBody = 64 << 10

// Inspector serves the session over HTTP, MCP and gRPC. Every entry point
// funnels into the one Processor.
type Inspector struct {
	processor *command.Processor
}

// NewInspector returns an Inspector over p.
func NewInspector(p *command.Processor) *Inspector {
	return &Inspector{processor: p}
}

// Processor returns the processor commands run on.
func (i *Inspector) Processor() *command.Processor { return i.processor }

// RegisterHTTP mounts the inspector endpoints.
func (i *Inspector) RegisterHTTP(r chi.Router) {
	r.Get("/snapshot", i.handleSnapshot)
	r.Get("/props", i.handleProps)
	r.Get("/click", i.handleClick)
	r.Get("/overlay", i.handleOverlay)
	r.Get("/status", i.handleStatus)
	r.Post("/command", i.handleCommand)
}

// Health contributes session fields to /health.
func (i *Inspector) Health() map[string]any {
	st := i.processor.State().Status()
	return map[string]any{
		"provider":   string(st.Provider),
		"process":    st.ProcessName,
		"generation": st.Seq,
		"elements":   st.Elements,
	}
}

// snapshotStruct returns the current snapshot document, tagged with its
// generation. Before any capture it is an empty Root.
func (i *Inspector) snapshotStruct() (*structpb.Struct, error) {
	g := i.processor.State().Generation()
	if g == nil {
		return structpb.NewStruct(map[string]any{"Root": map[string]any{}})
	}
	doc, err := g.Snapshot.Struct()
	if err != nil {
		return nil, err
	}
	doc.Fields["generation"] = structpb.NewNumberValue(float64(g.Seq))
	return doc, nil
}

// parseGeneration reads an optional generation parameter; empty is zero.
func parseGeneration(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func (i *Inspector) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	doc, err := i.snapshotStruct()
	if err != nil {
		log.Printf("Error: snapshot document: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := protojson.MarshalOptions{Multiline: r.URL.Query().Has("pretty")}.Marshal(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// httpStatus maps a failed Result onto an HTTP status.
func httpStatus(res command.Result) int {
	switch res.Kind() {
	case "":
		return http.StatusOK
	case command.KindNoProcessSelected, command.KindNoElementSelected:
		return http.StatusConflict
	case command.KindElementNotFound:
		return http.StatusNotFound
	case command.KindInvalidAddress, command.KindUnknownVerb, command.KindUsage:
		return http.StatusBadRequest
	case command.KindOSInput, command.KindProviderFault:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (i *Inspector) handleProps(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	generation, err := parseGeneration(r.URL.Query().Get("generation"))
	if err != nil {
		http.Error(w, "generation must be a non-negative integer", http.StatusBadRequest)
		return
	}
	res := i.processor.Properties(id, generation)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !res.OK {
		w.WriteHeader(httpStatus(res))
		_, _ = io.WriteString(w, res.Log+"\n")
		return
	}
	_, _ = io.WriteString(w, res.Value)
}

func (i *Inspector) handleClick(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.Atoi(r.URL.Query().Get("x"))
	y, errY := strconv.Atoi(r.URL.Query().Get("y"))
	if errX != nil || errY != nil || x < 0 || y < 0 {
		http.Error(w, "x and y must be non-negative integers", http.StatusBadRequest)
		return
	}
	res := i.processor.SelectPoint(x, y)
	body := map[string]any{"id": nil}
	if res.OK {
		body["id"] = res.ElementID
		body["generation"] = res.Generation
	} else if res.Kind() != command.KindElementNotFound {
		// a miss is a normal answer; other failures are not
		transport.WriteJSON(w, httpStatus(res), resultBody(res))
		return
	}
	transport.WriteJSON(w, http.StatusOK, body)
}

type overlayRect struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// handleOverlay lists the highlightable rectangles in window-client
// coordinates, outermost first.
func (i *Inspector) handleOverlay(w http.ResponseWriter, r *http.Request) {
	state := i.processor.State()
	g := state.Generation()
	body := map[string]any{
		"showAll":  state.ShowAllHighlights(),
		"selected": nil,
		"rects":    []overlayRect{},
	}
	if g != nil {
		rects := make([]overlayRect, 0, g.Hits.Len())
		for _, e := range g.Hits.Overlay() {
			rects = append(rects, overlayRect{
				ID:     e.ID,
				X:      e.Rect.Left - g.WindowRect.Left,
				Y:      e.Rect.Top - g.WindowRect.Top,
				Width:  e.Rect.Width(),
				Height: e.Rect.Height(),
			})
		}
		body["rects"] = rects
		body["generation"] = g.Seq
		if id, _, ok := state.Selected(); ok {
			body["selected"] = id
		}
	}
	transport.WriteJSON(w, http.StatusOK, body)
}

func (i *Inspector) handleStatus(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, statusBody(i.processor.State().Status()))
}

// handleCommand runs the request body as one command line.
func (i *Inspector) handleCommand(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBody))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read body: %v", err), http.StatusBadRequest)
		return
	}
	res := i.processor.Execute(strings.TrimSpace(string(data)))
	transport.WriteJSON(w, httpStatus(res), resultBody(res))
}

// resultBody is the JSON form of a Result.
func resultBody(res command.Result) map[string]any {
	body := map[string]any{
		"ok":  res.OK,
		"log": res.Log,
	}
	if res.ElementID != "" {
		body["elementId"] = res.ElementID
	}
	if res.Generation != 0 {
		body["generation"] = res.Generation
	}
	if res.Value != "" {
		body["value"] = res.Value
	}
	if !res.OK {
		body["error"] = res.Kind()
	}
	return body
}

func statusBody(st session.Status) map[string]any {
	return map[string]any{
		"process":           st.ProcessName,
		"windowTitle":       st.WindowTitle,
		"window":            fmt.Sprintf("%#x", uintptr(st.Window)),
		"provider":          string(st.Provider),
		"generation":        st.Seq,
		"elements":          st.Elements,
		"selected":          st.SelectedID,
		"showAllHighlights": st.ShowAllHighlights,
	}
}

// MetricsObserver records command outcomes, and every newly published
// generation, into m.
func MetricsObserver(m *transport.MetricsRegistry, state *session.State) command.Observer {
	var lastSeq atomic.Uint64
	return func(cmd command.Command, res command.Result, elapsed time.Duration) {
		verb := res.Verb.String()
		status := "ok"
		if res.Verb == 0 {
			verb = "invalid"
		}
		if !res.OK {
			status = res.Kind()
		}
		m.RecordCommand(verb, status, elapsed)

		if g := state.Generation(); g != nil && lastSeq.Swap(g.Seq) != g.Seq {
			m.RecordCapture(string(g.Snapshot.Kind()), g.Seq, g.Snapshot.Len())
		}
	}
}
