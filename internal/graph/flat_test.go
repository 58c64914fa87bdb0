package graph

import (
	"reflect"
	"testing"

	"github.com/storyloom/server/internal/condition"
	"github.com/storyloom/server/internal/vars"
)

// TestNodeRoundTrip tests flat serialization of every node variant
func TestNodeRoundTrip(t *testing.T) {
	nodes := []Node{
		&CharacterNode{
			BaseNode: BaseNode{
				ID:       "n1",
				SetFlags: []vars.FlagWrite{{Flag: "met", Value: true}},
				Presentation: map[string]interface{}{
					"position": map[string]interface{}{"x": 10.0, "y": 20.0},
				},
			},
			Speaker:           "Merchant",
			Text:              "Welcome.",
			DefaultNextNodeID: "n2",
		},
		&PlayerNode{
			BaseNode: BaseNode{ID: "n2"},
			Choices: []Choice{
				{
					ID:           "c1",
					Text:         "Buy",
					TargetNodeID: "n3",
					Conditions:   []condition.Condition{{Flag: "gold", Operator: condition.OpGreaterEqual, Value: 10.0}},
					SetFlags:     []vars.FlagWrite{{Flag: "bought", Value: true}},
				},
				{ID: "c2", Text: "Leave"},
			},
		},
		&ConditionalNode{
			BaseNode: BaseNode{ID: "n3"},
			Blocks: []ConditionalBlock{
				{
					ID:         "b1",
					Kind:       BlockIf,
					Conditions: []condition.Condition{{Flag: "met", Operator: condition.OpIsSet}},
					Speaker:    "Merchant",
					Content:    "Back again?",
					NextNodeID: "n4",
				},
				{ID: "b2", Kind: BlockElse, NextNodeID: "n4"},
			},
		},
		&StoryletNode{
			BaseNode:       BaseNode{ID: "n4"},
			TargetGraphID:  20,
			Mode:           ModeDetourReturn,
			ReturnToNodeID: "n5",
		},
		&EndNode{BaseNode: BaseNode{ID: "n5"}, ExitKey: "sold"},
		&SectionNode{BaseNode: BaseNode{ID: "n6"}, Kind: NodeAct, Title: "Act One", DefaultNextNodeID: "n1"},
	}

	for _, original := range nodes {
		data, err := MarshalNode(original)
		if err != nil {
			t.Fatalf("Failed to marshal %s: %v", original.GetID(), err)
		}
		restored, err := UnmarshalNode(data)
		if err != nil {
			t.Fatalf("Failed to unmarshal %s: %v", original.GetID(), err)
		}
		if !reflect.DeepEqual(original, restored) {
			t.Errorf("Round trip mismatch for %s:\n want %+v\n got  %+v", original.GetID(), original, restored)
		}
	}
}

// TestUnmarshalUnknownType tests rejection of unknown node types
func TestUnmarshalUnknownType(t *testing.T) {
	_, err := UnmarshalNode([]byte(`{"id":"x","type":"TELEPORT"}`))
	if err == nil {
		t.Error("Expected error for unknown node type")
	}
}

// TestStoryletModeDefault tests that an absent mode defaults to JUMP
func TestStoryletModeDefault(t *testing.T) {
	n, err := UnmarshalNode([]byte(`{"id":"s1","type":"STORYLET","targetGraphId":7}`))
	if err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	sn, ok := n.(*StoryletNode)
	if !ok {
		t.Fatalf("Expected StoryletNode, got %T", n)
	}
	if sn.Mode != ModeJump {
		t.Errorf("Expected JUMP default, got %s", sn.Mode)
	}
}

// TestGraphJSONRoundTrip tests the document-level codec used by storage
func TestGraphJSONRoundTrip(t *testing.T) {
	g := &Graph{
		ID:          10,
		ProjectID:   "proj-1",
		Kind:        KindNarrative,
		Title:       "Market",
		StartNodeID: "n1",
		EndNodes:    []EndRef{{NodeID: "n5", ExitKey: "sold"}},
		Nodes: []Node{
			&CharacterNode{BaseNode: BaseNode{ID: "n1"}, Speaker: "Merchant", Text: "Hi", DefaultNextNodeID: "n5"},
			&EndNode{BaseNode: BaseNode{ID: "n5"}, ExitKey: "sold"},
		},
		Edges: []Edge{{From: "n1", To: "n5", Kind: EdgeDefault}},
	}

	data, err := g.MarshalJSON()
	if err != nil {
		t.Fatalf("Failed to marshal graph: %v", err)
	}

	var restored Graph
	if err := restored.UnmarshalJSON(data); err != nil {
		t.Fatalf("Failed to unmarshal graph: %v", err)
	}
	if !reflect.DeepEqual(g, &restored) {
		t.Errorf("Graph round trip mismatch:\n want %+v\n got  %+v", g, &restored)
	}
}

// TestAddNodeDuplicate tests duplicate id rejection
func TestAddNodeDuplicate(t *testing.T) {
	g := &Graph{}
	if err := g.AddNode(&EndNode{BaseNode: BaseNode{ID: "n1"}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := g.AddNode(&EndNode{BaseNode: BaseNode{ID: "n1"}}); err == nil {
		t.Error("Expected duplicate id to be rejected")
	}
}

// TestAddEdgeMissingEndpoint tests endpoint existence checks
func TestAddEdgeMissingEndpoint(t *testing.T) {
	g := &Graph{Nodes: []Node{&EndNode{BaseNode: BaseNode{ID: "n1"}}}}
	if err := g.AddEdge("n1", "ghost", EdgeFlow); err == nil {
		t.Error("Expected error for missing target node")
	}
	if err := g.AddEdge("ghost", "n1", EdgeFlow); err == nil {
		t.Error("Expected error for missing source node")
	}
}
