package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/storyloom/server/internal/condition"
	"github.com/storyloom/server/internal/graph"
	"github.com/storyloom/server/internal/runner"
	"github.com/storyloom/server/internal/store"
	"github.com/storyloom/server/internal/validation"
	"github.com/storyloom/server/internal/vars"
)

// previewSession owns one runner for an interactive preview. Handlers
// serialize access through mu; the runner itself is single-threaded.
type previewSession struct {
	id      string
	runner  *runner.Runner
	watches []*condition.Watch
	mu      sync.Mutex

	subsMu sync.Mutex
	subs   map[chan runner.Event]struct{}
}

func newPreviewSession(id string, r *runner.Runner, watches []*condition.Watch) *previewSession {
	return &previewSession{
		id:      id,
		runner:  r,
		watches: watches,
		subs:    make(map[chan runner.Event]struct{}),
	}
}

// broadcast fans events out to websocket subscribers, dropping for slow
// consumers rather than blocking playback.
func (ps *previewSession) broadcast(events []runner.Event) {
	ps.subsMu.Lock()
	defer ps.subsMu.Unlock()
	for ch := range ps.subs {
		for _, e := range events {
			select {
			case ch <- e:
			default:
			}
		}
	}
}

func (ps *previewSession) subscribe() chan runner.Event {
	ch := make(chan runner.Event, 64)
	ps.subsMu.Lock()
	ps.subs[ch] = struct{}{}
	ps.subsMu.Unlock()
	return ch
}

func (ps *previewSession) unsubscribe(ch chan runner.Event) {
	ps.subsMu.Lock()
	delete(ps.subs, ch)
	ps.subsMu.Unlock()
}

// watchResult reports one watch expression's value after a call; a nil
// result means the expression errored or timed out.
type watchResult struct {
	Expression string `json:"expression"`
	Result     *bool  `json:"result"`
}

type sessionResponse struct {
	SessionID string                 `json:"sessionId"`
	State     runner.State           `json:"state"`
	Events    []runner.Event         `json:"events"`
	Variables map[string]interface{} `json:"variables"`
	Watches   []watchResult          `json:"watches,omitempty"`
}

func (ps *previewSession) response(events []runner.Event) sessionResponse {
	resp := sessionResponse{
		SessionID: ps.id,
		State:     ps.runner.GetState(),
		Events:    events,
		Variables: ps.runner.GetVariableSnapshot(),
	}
	for _, w := range ps.watches {
		wr := watchResult{Expression: w.Src}
		if v, err := w.Eval(resp.Variables); err == nil {
			wr.Result = &v
		}
		resp.Watches = append(resp.Watches, wr)
	}
	return resp
}

// createSession starts an interactive preview on one graph
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GraphID             int64                  `json:"graphId"`
		GameState           map[string]interface{} `json:"gameState,omitempty"`
		IncludeFalsyNumbers bool                   `json:"includeFalsyNumbers,omitempty"`
		Watch               []string               `json:"watch,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateGraphID(req.GraphID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid graph ID")
		return
	}

	g, err := s.store.GetGraph(req.GraphID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Graph not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}

	var watches []*condition.Watch
	for _, src := range req.Watch {
		cw, err := condition.CompileWatch(src)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		watches = append(watches, cw)
	}

	initial := vars.FlattenState(req.GameState, vars.FlattenOptions{IncludeFalsyNumbers: req.IncludeFalsyNumbers})

	// Inline resolver so storylet jumps work in preview; lookup failures
	// surface as runner MISSING_GRAPH faults.
	resolve := func(graphID int64) *graph.Graph {
		sub, err := s.store.GetGraph(graphID)
		if err != nil {
			return nil
		}
		return sub
	}

	sessionID := uuid.New().String()
	run := runner.New(g, initial, runner.WithResolver(resolve))
	ps := newPreviewSession(sessionID, run, watches)

	events := run.Step()
	ps.broadcast(events)

	s.sessionsMu.Lock()
	s.sessions[sessionID] = ps
	s.sessionsMu.Unlock()

	writeJSON(w, http.StatusCreated, Response{Success: true, Data: ps.response(events)})
}

// session looks up and validates the {id} route parameter.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*previewSession, bool) {
	sessionID := chi.URLParam(r, "id")
	if err := validation.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return nil, false
	}

	s.sessionsMu.RLock()
	ps, ok := s.sessions[sessionID]
	s.sessionsMu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return ps, true
}

// getSession returns current state and variables
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.session(w, r)
	if !ok {
		return
	}

	ps.mu.Lock()
	resp := ps.response(nil)
	ps.mu.Unlock()

	writeJSON(w, http.StatusOK, Response{Success: true, Data: resp})
}

// advanceSession moves past a WAITING_FOR_ADVANCE pause
func (s *Server) advanceSession(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.session(w, r)
	if !ok {
		return
	}

	ps.mu.Lock()
	events := ps.runner.Advance()
	resp := ps.response(events)
	ps.mu.Unlock()
	ps.broadcast(events)

	writeJSON(w, http.StatusOK, Response{Success: true, Data: resp})
}

// selectChoice resolves a WAITING_FOR_CHOICE pause
func (s *Server) selectChoice(w http.ResponseWriter, r *http.Request) {
	ps, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		ChoiceID string `json:"choiceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateChoiceID(req.ChoiceID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid choice ID")
		return
	}

	ps.mu.Lock()
	events := ps.runner.SelectChoice(req.ChoiceID)
	resp := ps.response(events)
	ps.mu.Unlock()
	ps.broadcast(events)

	writeJSON(w, http.StatusOK, Response{Success: true, Data: resp})
}

// deleteSession discards a preview session
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := validation.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	s.sessionsMu.Lock()
	delete(s.sessions, sessionID)
	s.sessionsMu.Unlock()

	writeJSON(w, http.StatusOK, Response{Success: true, Data: "Session discarded"})
}
