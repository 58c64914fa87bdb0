package graph

import (
	"encoding/json"
	"fmt"

	"github.com/storyloom/server/internal/vars"
)

// flatNode is the persistence-boundary node shape: every possible field on
// one record, discriminated by Type. The editor's storage format predates
// the typed model, so graphs round-trip through this adapter unchanged.
type flatNode struct {
	ID                string                 `json:"id"`
	Type              NodeType               `json:"type"`
	SetFlags          []vars.FlagWrite       `json:"setFlags,omitempty"`
	Presentation      map[string]interface{} `json:"presentation,omitempty"`
	RuntimeDirectives map[string]interface{} `json:"runtimeDirectives,omitempty"`

	Speaker           string             `json:"speaker,omitempty"`
	Text              string             `json:"text,omitempty"`
	DefaultNextNodeID string             `json:"defaultNextNodeId,omitempty"`
	Choices           []Choice           `json:"choices,omitempty"`
	ConditionalBlocks []ConditionalBlock `json:"conditionalBlocks,omitempty"`
	TargetGraphID     int64              `json:"targetGraphId,omitempty"`
	Mode              StoryletMode       `json:"mode,omitempty"`
	ReturnToNodeID    string             `json:"returnToNodeId,omitempty"`
	ExitKey           string             `json:"exitKey,omitempty"`
	Title             string             `json:"title,omitempty"`
}

// flattenNode serializes a typed node back to the flat storage shape.
func flattenNode(n Node) flatNode {
	f := flatNode{
		ID:                n.GetID(),
		Type:              n.Type(),
		SetFlags:          n.GetSetFlags(),
		Presentation:      n.GetPresentation(),
		RuntimeDirectives: n.GetRuntimeDirectives(),
	}
	switch t := n.(type) {
	case *CharacterNode:
		f.Speaker = t.Speaker
		f.Text = t.Text
		f.DefaultNextNodeID = t.DefaultNextNodeID
	case *PlayerNode:
		f.Choices = t.Choices
	case *ConditionalNode:
		f.ConditionalBlocks = t.Blocks
	case *StoryletNode:
		f.TargetGraphID = t.TargetGraphID
		f.Mode = t.Mode
		f.ReturnToNodeID = t.ReturnToNodeID
	case *EndNode:
		f.ExitKey = t.ExitKey
	case *SectionNode:
		f.Title = t.Title
		f.DefaultNextNodeID = t.DefaultNextNodeID
	}
	return f
}

// node converts a flat record into its typed variant.
func (f flatNode) node() (Node, error) {
	base := BaseNode{
		ID:                f.ID,
		SetFlags:          f.SetFlags,
		Presentation:      f.Presentation,
		RuntimeDirectives: f.RuntimeDirectives,
	}
	switch f.Type {
	case NodeCharacter:
		return &CharacterNode{
			BaseNode:          base,
			Speaker:           f.Speaker,
			Text:              f.Text,
			DefaultNextNodeID: f.DefaultNextNodeID,
		}, nil
	case NodePlayer:
		return &PlayerNode{BaseNode: base, Choices: f.Choices}, nil
	case NodeConditional:
		return &ConditionalNode{BaseNode: base, Blocks: f.ConditionalBlocks}, nil
	case NodeStorylet:
		mode := f.Mode
		if mode == "" {
			mode = ModeJump
		}
		return &StoryletNode{
			BaseNode:       base,
			TargetGraphID:  f.TargetGraphID,
			Mode:           mode,
			ReturnToNodeID: f.ReturnToNodeID,
		}, nil
	case NodeEnd:
		return &EndNode{BaseNode: base, ExitKey: f.ExitKey}, nil
	case NodeAct, NodeChapter, NodePage:
		return &SectionNode{
			BaseNode:          base,
			Kind:              f.Type,
			Title:             f.Title,
			DefaultNextNodeID: f.DefaultNextNodeID,
		}, nil
	default:
		return nil, fmt.Errorf("unknown node type %q for node %s", f.Type, f.ID)
	}
}

// MarshalNode serializes one node in the flat storage shape.
func MarshalNode(n Node) ([]byte, error) {
	return json.Marshal(flattenNode(n))
}

// UnmarshalNode parses one flat-shape node record.
func UnmarshalNode(data []byte) (Node, error) {
	var f flatNode
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.node()
}

// UnmarshalNodeList parses a JSON array of flat-shape node records.
func UnmarshalNodeList(data []byte) ([]Node, error) {
	var flats []flatNode
	if err := json.Unmarshal(data, &flats); err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(flats))
	for _, f := range flats {
		n, err := f.node()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
