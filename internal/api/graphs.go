package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/storyloom/server/internal/graph"
	"github.com/storyloom/server/internal/script"
	"github.com/storyloom/server/internal/store"
	"github.com/storyloom/server/internal/validation"
)

// graphID parses and validates the {id} route parameter.
func graphID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || validation.ValidateGraphID(id) != nil {
		writeError(w, http.StatusBadRequest, "Invalid graph ID")
		return 0, false
	}
	return id, true
}

// createGraph stores a new graph document
func (s *Server) createGraph(w http.ResponseWriter, r *http.Request) {
	var g graph.Graph
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if g.ProjectID == "" {
		g.ProjectID = "default"
	}
	if err := validation.ValidateProjectID(g.ProjectID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	created, err := s.store.CreateGraph(&g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create graph")
		return
	}

	writeJSON(w, http.StatusCreated, Response{Success: true, Data: created})
}

// listGraphs lists graphs in a project, optionally filtered by kind
func (s *Server) listGraphs(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project")
	if projectID == "" {
		projectID = "default"
	}
	if err := validation.ValidateProjectID(projectID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	kind := graph.Kind(r.URL.Query().Get("kind"))
	switch kind {
	case "", graph.KindNarrative, graph.KindStorylet:
	default:
		writeError(w, http.StatusBadRequest, "Invalid graph kind")
		return
	}

	graphs, err := s.store.ListGraphs(projectID, kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list graphs")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: graphs})
}

// getGraph returns one graph document
func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := graphID(w, r)
	if !ok {
		return
	}

	g, err := s.store.GetGraph(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Graph not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: g})
}

// updateGraph applies a partial update
func (s *Server) updateGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := graphID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title       *string          `json:"title"`
		Kind        *graph.Kind      `json:"kind"`
		StartNodeID *string          `json:"startNodeId"`
		EndNodes    *[]graph.EndRef  `json:"endNodes"`
		Nodes       json.RawMessage  `json:"nodes"`
		Edges       *[]graph.Edge    `json:"edges"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := store.GraphUpdate{
		Title:       req.Title,
		Kind:        req.Kind,
		StartNodeID: req.StartNodeID,
		EndNodes:    req.EndNodes,
		Edges:       req.Edges,
	}
	if req.Nodes != nil {
		nodes, err := graph.UnmarshalNodeList(req.Nodes)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid nodes")
			return
		}
		update.Nodes = &nodes
	}

	updated, err := s.store.UpdateGraph(id, update)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Graph not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update graph")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: updated})
}

// deleteGraph removes a graph
func (s *Server) deleteGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := graphID(w, r)
	if !ok {
		return
	}

	err := s.store.DeleteGraph(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Graph not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete graph")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: "Graph deleted"})
}

// validateGraph runs the structural validation pass
func (s *Server) validateGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := graphID(w, r)
	if !ok {
		return
	}

	g, err := s.store.GetGraph(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Graph not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}

	issues := graph.Validate(g)
	if issues == nil {
		issues = []graph.Issue{}
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: issues})
}

// exportScript renders a graph as script text
func (s *Server) exportScript(w http.ResponseWriter, r *http.Request) {
	id, ok := graphID(w, r)
	if !ok {
		return
	}

	g, err := s.store.GetGraph(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Graph not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(script.Export(g)))
}

// importScript parses script text into a new stored graph
func (s *Server) importScript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"projectId"`
		Title     string `json:"title"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Missing script text")
		return
	}
	if req.ProjectID == "" {
		req.ProjectID = "default"
	}
	if err := validation.ValidateProjectID(req.ProjectID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	g, err := script.Import(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse script")
		return
	}
	g.ProjectID = req.ProjectID
	if req.Title != "" {
		g.Title = req.Title
	}

	created, err := s.store.CreateGraph(g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store graph")
		return
	}

	writeJSON(w, http.StatusCreated, Response{Success: true, Data: created})
}
