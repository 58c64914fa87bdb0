package script

import (
	"reflect"
	"strings"
	"testing"

	"github.com/storyloom/server/internal/condition"
	"github.com/storyloom/server/internal/graph"
	"github.com/storyloom/server/internal/vars"
)

// scriptableGraph builds a graph whose generated ids match what an import
// produces, so the export/import cycle is comparable field for field.
func scriptableGraph() *graph.Graph {
	return &graph.Graph{
		Kind:        graph.KindNarrative,
		Title:       "Market",
		StartNodeID: "n1",
		EndNodes:    []graph.EndRef{{NodeID: "n5", ExitKey: "done"}},
		Nodes: []graph.Node{
			&graph.CharacterNode{
				BaseNode: graph.BaseNode{
					ID:       "n1",
					SetFlags: []vars.FlagWrite{{Flag: "met", Op: "=", Value: true}},
				},
				Speaker:           "Merchant",
				Text:              "Welcome\nCome in.",
				DefaultNextNodeID: "n2",
			},
			&graph.PlayerNode{
				BaseNode: graph.BaseNode{ID: "n2"},
				Choices: []graph.Choice{
					{
						ID:           "n2_c1",
						Text:         "Buy",
						TargetNodeID: "n3",
						Conditions:   []condition.Condition{{Flag: "gold", Operator: condition.OpGreaterEqual, Value: 10.0}},
						SetFlags:     []vars.FlagWrite{{Flag: "bought", Op: "=", Value: true}},
					},
					{ID: "n2_c2", Text: "Leave", TargetNodeID: "n5"},
				},
			},
			&graph.ConditionalNode{
				BaseNode: graph.BaseNode{ID: "n3"},
				Blocks: []graph.ConditionalBlock{
					{
						ID:         "n3_b1",
						Kind:       graph.BlockIf,
						Conditions: []condition.Condition{{Flag: "bought", Operator: condition.OpIsSet}},
						Speaker:    "Merchant",
						Content:    "A pleasure.",
						NextNodeID: "n4",
					},
					{ID: "n3_b2", Kind: graph.BlockElse, NextNodeID: "n5"},
				},
			},
			&graph.StoryletNode{
				BaseNode:       graph.BaseNode{ID: "n4"},
				TargetGraphID:  20,
				Mode:           graph.ModeDetourReturn,
				ReturnToNodeID: "n5",
			},
			&graph.EndNode{BaseNode: graph.BaseNode{ID: "n5"}, ExitKey: "done"},
		},
		Edges: []graph.Edge{
			{From: "n1", To: "n2", Kind: graph.EdgeDefault},
			{From: "n2", To: "n3", Kind: graph.EdgeChoice},
			{From: "n2", To: "n5", Kind: graph.EdgeChoice},
			{From: "n3", To: "n4", Kind: graph.EdgeCondition},
			{From: "n3", To: "n5", Kind: graph.EdgeCondition},
			{From: "n4", To: "n5", Kind: graph.EdgeFlow},
		},
	}
}

// TestExportFormat tests the rendered text of each construct
func TestExportFormat(t *testing.T) {
	text := Export(scriptableGraph())

	fragments := []string{
		"title: Market",
		":: n1",
		"<<set $met = true>>",
		"Merchant: Welcome",
		"Merchant: Come in.",
		"<<next n2>>",
		"-> Buy <<if $gold >= 10>> <<set $bought = true>> => n3",
		"-> Leave => n5",
		"<<if $bought>>",
		"Merchant: A pleasure.",
		"<<next n4>>",
		"<<else>>",
		"<<endif>>",
		"<<detour graph:20 -> n5>>",
		"<<end done>>",
	}
	for _, f := range fragments {
		if !strings.Contains(text, f) {
			t.Errorf("Expected export to contain %q, got:\n%s", f, text)
		}
	}
}

// TestExportImportRoundTrip tests that the text cycle preserves the graph
func TestExportImportRoundTrip(t *testing.T) {
	original := scriptableGraph()

	imported, err := Import(Export(original))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !reflect.DeepEqual(original, imported) {
		t.Errorf("Round trip mismatch:\n want %+v\n got  %+v", original, imported)
	}
}

// TestExportIdempotence tests that a second cycle produces identical text
func TestExportIdempotence(t *testing.T) {
	first := Export(scriptableGraph())

	imported, err := Import(first)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	second := Export(imported)

	if first != second {
		t.Errorf("Export not stable across a cycle:\n first:\n%s\n second:\n%s", first, second)
	}
}

// TestExportStripsPresentation tests that editor metadata never reaches text
func TestExportStripsPresentation(t *testing.T) {
	g := &graph.Graph{
		StartNodeID: "n1",
		Nodes: []graph.Node{
			&graph.CharacterNode{
				BaseNode: graph.BaseNode{
					ID:                "n1",
					Presentation:      map[string]interface{}{"color": "#ff0000", "x": 120.0},
					RuntimeDirectives: map[string]interface{}{"voice": "gravelly"},
				},
				Speaker: "Guard",
				Text:    "Halt",
			},
		},
	}

	text := Export(g)
	for _, leak := range []string{"#ff0000", "120", "gravelly", "presentation"} {
		if strings.Contains(text, leak) {
			t.Errorf("Presentation data leaked into text: %q in\n%s", leak, text)
		}
	}

	imported, err := Import(text)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported.Nodes[0].GetPresentation() != nil {
		t.Error("Expected no presentation data after round trip")
	}
}

// TestImportFirstBlockIsStart tests start-node selection
func TestImportFirstBlockIsStart(t *testing.T) {
	g, err := Import(":: intro\nNarrator: Once upon a time\n\n:: finale\n<<end>>\n")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if g.StartNodeID != "intro" {
		t.Errorf("Expected intro as start, got %q", g.StartNodeID)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(g.Nodes))
	}
}

// TestImportDuplicateBlock tests the only fatal import error
func TestImportDuplicateBlock(t *testing.T) {
	_, err := Import(":: a\nX: hi\n\n:: a\nX: again\n")
	if err == nil {
		t.Error("Expected error for duplicate block id")
	}
}

// TestImportLenient tests that garbage lines and malformed commands are skipped
func TestImportLenient(t *testing.T) {
	text := ":: n1\n<<set $broken>>\n<<frobnicate>>\nGuard: Halt\n<<next n2>>\n\n:: n2\n<<end>>\n"

	g, err := Import(text)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	n, ok := g.Nodes[0].(*graph.CharacterNode)
	if !ok {
		t.Fatalf("Expected CharacterNode, got %T", g.Nodes[0])
	}
	if len(n.SetFlags) != 0 {
		t.Errorf("Expected malformed set dropped, got %+v", n.SetFlags)
	}
	if n.Text != "Halt" || n.DefaultNextNodeID != "n2" {
		t.Errorf("Unexpected node: %+v", n)
	}
}

// TestImportSetOperators tests the compound assignment spellings
func TestImportSetOperators(t *testing.T) {
	text := ":: n1\n<<set $gold += 5>>\n<<set $gold -= 2>>\n<<set $name = \"Ada\">>\nGuard: Halt\n"

	g, err := Import(text)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	want := []vars.FlagWrite{
		{Flag: "gold", Op: "+=", Value: 5.0},
		{Flag: "gold", Op: "-=", Value: 2.0},
		{Flag: "name", Op: "=", Value: "Ada"},
	}
	got := g.Nodes[0].GetSetFlags()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

// TestImportSections tests act/chapter/page commands
func TestImportSections(t *testing.T) {
	text := ":: a1\n<<act The Beginning>>\n<<next c1>>\n\n:: c1\n<<chapter First Steps>>\n"

	g, err := Import(text)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	act, ok := g.Nodes[0].(*graph.SectionNode)
	if !ok || act.Kind != graph.NodeAct {
		t.Fatalf("Expected ACT section, got %+v", g.Nodes[0])
	}
	if act.Title != "The Beginning" || act.DefaultNextNodeID != "c1" {
		t.Errorf("Unexpected act node: %+v", act)
	}

	ch, ok := g.Nodes[1].(*graph.SectionNode)
	if !ok || ch.Kind != graph.NodeChapter || ch.Title != "First Steps" {
		t.Errorf("Expected CHAPTER section, got %+v", g.Nodes[1])
	}
}

// TestImportDanglingTargetPreserved tests that unknown targets survive import
func TestImportDanglingTargetPreserved(t *testing.T) {
	g, err := Import(":: n1\nGuard: Halt\n<<next ghost>>\n")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	n := g.Nodes[0].(*graph.CharacterNode)
	if n.DefaultNextNodeID != "ghost" {
		t.Errorf("Expected dangling target kept verbatim, got %q", n.DefaultNextNodeID)
	}
	if len(g.Edges) != 0 {
		t.Errorf("Expected no edge to a missing node, got %+v", g.Edges)
	}
}

// TestImportEmpty tests empty input
func TestImportEmpty(t *testing.T) {
	g, err := Import("")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(g.Nodes) != 0 || g.StartNodeID != "" {
		t.Errorf("Expected empty graph, got %+v", g)
	}
}
