package graph

import (
	"encoding/json"
	"fmt"
)

// Kind separates top-level narratives from reusable storylet sub-graphs.
type Kind string

const (
	KindNarrative Kind = "NARRATIVE"
	KindStorylet  Kind = "STORYLET"
)

// EdgeKind is advisory for editor rendering. Control flow comes from node
// data (choice targets, block targets, default-next), never from edges.
type EdgeKind string

const (
	EdgeFlow      EdgeKind = "FLOW"
	EdgeChoice    EdgeKind = "CHOICE"
	EdgeCondition EdgeKind = "CONDITION"
	EdgeDefault   EdgeKind = "DEFAULT"
	EdgeVisual    EdgeKind = "VISUAL"
)

// Edge is a directed reference between two node ids.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// EndRef names a terminal node, optionally tagged with an exit key.
type EndRef struct {
	NodeID  string `json:"nodeId"`
	ExitKey string `json:"exitKey,omitempty"`
}

// Graph is one authored dialogue graph. An empty graph (no nodes) is valid
// and has no start node.
type Graph struct {
	ID          int64    `json:"id"`
	ProjectID   string   `json:"projectId,omitempty"`
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	StartNodeID string   `json:"startNodeId,omitempty"`
	EndNodes    []EndRef `json:"endNodes,omitempty"`
	Nodes       []Node   `json:"-"`
	Edges       []Edge   `json:"edges"`
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) Node {
	for _, n := range g.Nodes {
		if n.GetID() == id {
			return n
		}
	}
	return nil
}

// Start returns the start node, or nil for an empty or malformed graph.
func (g *Graph) Start() Node {
	if g.StartNodeID == "" {
		return nil
	}
	return g.Node(g.StartNodeID)
}

// AddNode appends a node, rejecting duplicate ids.
func (g *Graph) AddNode(n Node) error {
	if g.Node(n.GetID()) != nil {
		return fmt.Errorf("node %s already exists", n.GetID())
	}
	g.Nodes = append(g.Nodes, n)
	return nil
}

// AddEdge appends an edge after checking both endpoints exist.
func (g *Graph) AddEdge(from, to string, kind EdgeKind) error {
	if g.Node(from) == nil {
		return fmt.Errorf("source node %s not found", from)
	}
	if g.Node(to) == nil {
		return fmt.Errorf("target node %s not found", to)
	}
	g.Edges = append(g.Edges, Edge{From: from, To: to, Kind: kind})
	return nil
}

// graphJSON is the wire/storage shape: nodes serialized through the flat
// adapter so stored documents keep the original single-record node form.
type graphJSON struct {
	ID          int64      `json:"id"`
	ProjectID   string     `json:"projectId,omitempty"`
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title"`
	StartNodeID string     `json:"startNodeId,omitempty"`
	EndNodes    []EndRef   `json:"endNodes,omitempty"`
	Nodes       []flatNode `json:"nodes"`
	Edges       []Edge     `json:"edges"`
}

// MarshalJSON implements json.Marshaler.
func (g *Graph) MarshalJSON() ([]byte, error) {
	flat := make([]flatNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		flat = append(flat, flattenNode(n))
	}
	return json.Marshal(graphJSON{
		ID:          g.ID,
		ProjectID:   g.ProjectID,
		Kind:        g.Kind,
		Title:       g.Title,
		StartNodeID: g.StartNodeID,
		EndNodes:    g.EndNodes,
		Nodes:       flat,
		Edges:       g.Edges,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw graphJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	nodes := make([]Node, 0, len(raw.Nodes))
	for _, f := range raw.Nodes {
		n, err := f.node()
		if err != nil {
			return err
		}
		nodes = append(nodes, n)
	}
	g.ID = raw.ID
	g.ProjectID = raw.ProjectID
	g.Kind = raw.Kind
	g.Title = raw.Title
	g.StartNodeID = raw.StartNodeID
	g.EndNodes = raw.EndNodes
	g.Nodes = nodes
	g.Edges = raw.Edges
	return nil
}
