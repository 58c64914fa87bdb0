package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/storyloom/server/internal/compose"
	"github.com/storyloom/server/internal/store"
	"github.com/storyloom/server/internal/vars"
)

// Composition error codes surfaced to clients.
const (
	CodeRootGraphNotFound      = "ROOT_GRAPH_NOT_FOUND"
	CodeMissingReferencedGraph = "MISSING_REFERENCED_GRAPH"
	CodeCompositionBuildFailed = "COMPOSITION_BUILD_FAILED"
)

type composeRequest struct {
	RootGraphID int64                  `json:"rootGraphId"`
	GameState   map[string]interface{} `json:"gameState,omitempty"`
	Options     *struct {
		ResolveStorylets    *bool `json:"resolveStorylets,omitempty"`
		FailOnMissingGraph  *bool `json:"failOnMissingGraph,omitempty"`
		IncludeFalsyNumbers bool  `json:"includeFalsyNumbers,omitempty"`
	} `json:"options,omitempty"`
}

type composeSuccess struct {
	OK               bool                 `json:"ok"`
	RootGraphID      int64                `json:"rootGraphId"`
	Composition      *compose.Composition `json:"composition"`
	ResolvedGraphIDs []int64              `json:"resolvedGraphIds"`
	Diagnostics      []compose.Diagnostic `json:"diagnostics"`
}

type composeFailure struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildComposition resolves a root graph and its storylet references into
// one flattened composition document.
func (s *Server) buildComposition(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, composeFailure{Code: CodeCompositionBuildFailed, Message: "Invalid request body"})
		return
	}

	root, err := s.store.GetGraph(req.RootGraphID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, composeFailure{Code: CodeRootGraphNotFound, Message: "Root graph not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, composeFailure{Code: CodeCompositionBuildFailed, Message: "Failed to load root graph"})
		return
	}

	opts := compose.DefaultOptions()
	flatten := vars.FlattenOptions{}
	if req.Options != nil {
		if req.Options.ResolveStorylets != nil {
			opts.ResolveStorylets = *req.Options.ResolveStorylets
		}
		if req.Options.FailOnMissingGraph != nil {
			opts.FailOnMissingGraph = *req.Options.FailOnMissingGraph
		}
		flatten.IncludeFalsyNumbers = req.Options.IncludeFalsyNumbers
	}

	initial := vars.FlattenState(req.GameState, flatten)

	comp, err := compose.Build(r.Context(), root, s.store.Lookup, initial, opts)
	if err != nil {
		var missing *compose.MissingGraphError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusUnprocessableEntity, composeFailure{Code: CodeMissingReferencedGraph, Message: missing.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, composeFailure{Code: CodeCompositionBuildFailed, Message: "Composition build failed"})
		return
	}

	writeJSON(w, http.StatusOK, composeSuccess{
		OK:               true,
		RootGraphID:      root.ID,
		Composition:      comp,
		ResolvedGraphIDs: comp.ResolvedGraphIDs,
		Diagnostics:      comp.Diagnostics,
	})
}
