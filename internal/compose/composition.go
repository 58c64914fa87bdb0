package compose

import (
	"errors"
	"fmt"

	"github.com/storyloom/server/internal/graph"
)

// SchemaVersion stamps composition documents.
const SchemaVersion = "v1"

// TrackKind is a lane grouping cues for downstream rendering.
type TrackKind string

const (
	TrackSystem       TrackKind = "SYSTEM"
	TrackDialogue     TrackKind = "DIALOGUE"
	TrackChoice       TrackKind = "CHOICE"
	TrackPresentation TrackKind = "PRESENTATION"
)

// CueType tags one timestamped unit of the flattened timeline.
type CueType string

const (
	CueEnterNode CueType = "ENTER_NODE"
	CueLine      CueType = "LINE"
	CueChoices   CueType = "CHOICES"
	CueEnd       CueType = "END"
)

// Cue is one narrative event on the timeline.
type Cue struct {
	ID      string         `json:"id"`
	Type    CueType        `json:"type"`
	GraphID int64          `json:"graphId"`
	NodeID  string         `json:"nodeId"`
	SceneID string         `json:"sceneId"`
	Track   TrackKind      `json:"track"`
	AtMs    int64          `json:"atMs"`
	Speaker string         `json:"speaker,omitempty"`
	Text    string         `json:"text,omitempty"`
	Choices []graph.Choice `json:"choices,omitempty"`
	ExitKey string         `json:"exitKey,omitempty"`
}

// Scene groups the cues synthesized from one resolved graph.
type Scene struct {
	ID      string `json:"id"`
	GraphID int64  `json:"graphId"`
	Title   string `json:"title"`
	Index   int    `json:"index"`
}

// Track is an ordered lane of cue ids.
type Track struct {
	Kind   TrackKind `json:"kind"`
	CueIDs []string  `json:"cueIds"`
}

// ResolvedGraph carries one resolved graph's data for export.
type ResolvedGraph struct {
	GraphID int64        `json:"graphId"`
	Graph   *graph.Graph `json:"graph"`
}

// Diagnostic records a non-fatal resolution finding.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	GraphID int64  `json:"graphId,omitempty"`
	NodeID  string `json:"nodeId,omitempty"`
}

// Diagnostic codes.
const (
	DiagMissingGraph    = "missing_graph"
	DiagRepeatReference = "repeat_reference"
	DiagDanglingNode    = "dangling_node"
	DiagNoStartNode     = "no_start_node"
	DiagWalkCycle       = "walk_cycle"
)

// Composition is the flattened, render-ready document produced by
// resolving a root graph and all its storylet references.
type Composition struct {
	Schema           string          `json:"schema"`
	RootGraphID      int64           `json:"rootGraphId"`
	Entry            string          `json:"entry"`
	ResolvedGraphIDs []int64         `json:"resolvedGraphIds"`
	Scenes           []Scene         `json:"scenes"`
	Tracks           []Track         `json:"tracks"`
	Cues             []Cue           `json:"cues"`
	Graphs           []ResolvedGraph `json:"graphs"`
	Diagnostics      []Diagnostic    `json:"diagnostics"`
}

// ErrMalformedRoot is returned before any resolution attempt when the root
// graph has no usable start node.
var ErrMalformedRoot = errors.New("root graph has no start node")

// MissingGraphError is the fatal form of an unresolved storylet reference.
type MissingGraphError struct {
	GraphID int64
}

func (e *MissingGraphError) Error() string {
	return fmt.Sprintf("Referenced graph %d not found", e.GraphID)
}
