package graph

import "testing"

func hasIssue(issues []Issue, code string, severity Severity) bool {
	for _, i := range issues {
		if i.Code == code && i.Severity == severity {
			return true
		}
	}
	return false
}

// TestValidateEmptyGraph tests that an empty graph passes
func TestValidateEmptyGraph(t *testing.T) {
	if issues := Validate(&Graph{ID: 1}); len(issues) != 0 {
		t.Errorf("Expected no issues for an empty graph, got %+v", issues)
	}
}

// TestValidateMissingStart tests the missing start node error
func TestValidateMissingStart(t *testing.T) {
	g := &Graph{
		ID:    1,
		Nodes: []Node{&EndNode{BaseNode: BaseNode{ID: "n1"}}},
	}

	issues := Validate(g)
	if !hasIssue(issues, IssueMissingStart, SeverityError) {
		t.Errorf("Expected missing_start error, got %+v", issues)
	}

	// A start id pointing at a nonexistent node is just as missing.
	g.StartNodeID = "ghost"
	issues = Validate(g)
	if !hasIssue(issues, IssueMissingStart, SeverityError) {
		t.Errorf("Expected missing_start error for dangling start id, got %+v", issues)
	}
}

// TestValidateInvalidEdge tests dangling edge endpoint detection
func TestValidateInvalidEdge(t *testing.T) {
	g := &Graph{
		ID:          1,
		StartNodeID: "n1",
		Nodes:       []Node{&EndNode{BaseNode: BaseNode{ID: "n1"}}},
		Edges:       []Edge{{From: "n1", To: "ghost", Kind: EdgeFlow}},
	}

	issues := Validate(g)
	if !hasIssue(issues, IssueInvalidEdge, SeverityError) {
		t.Errorf("Expected invalid_edge error, got %+v", issues)
	}
}

// TestValidateElseNotLast tests conditional block ordering
func TestValidateElseNotLast(t *testing.T) {
	g := &Graph{
		ID:          1,
		StartNodeID: "n1",
		Nodes: []Node{
			&ConditionalNode{
				BaseNode: BaseNode{ID: "n1"},
				Blocks: []ConditionalBlock{
					{ID: "b1", Kind: BlockElse},
					{ID: "b2", Kind: BlockIf},
				},
			},
		},
	}

	issues := Validate(g)
	if !hasIssue(issues, IssueInvalidConditional, SeverityError) {
		t.Errorf("Expected invalid_conditional error, got %+v", issues)
	}
}

// TestValidateOrphanedNode tests the no-connections warning
func TestValidateOrphanedNode(t *testing.T) {
	g := &Graph{
		ID:          1,
		StartNodeID: "n1",
		Nodes: []Node{
			&CharacterNode{BaseNode: BaseNode{ID: "n1"}, Text: "Hi", DefaultNextNodeID: "n2"},
			&EndNode{BaseNode: BaseNode{ID: "n2"}},
			&EndNode{BaseNode: BaseNode{ID: "lonely"}},
		},
	}

	issues := Validate(g)
	if !hasIssue(issues, IssueOrphanedNode, SeverityWarning) {
		t.Errorf("Expected orphaned_node warning, got %+v", issues)
	}
	for _, i := range issues {
		if i.Code == IssueOrphanedNode {
			if len(i.NodeIDs) != 1 || i.NodeIDs[0] != "lonely" {
				t.Errorf("Expected only lonely flagged, got %v", i.NodeIDs)
			}
		}
	}
}

// TestValidateDisconnectedSubgraph tests unreachable connected components
func TestValidateDisconnectedSubgraph(t *testing.T) {
	g := &Graph{
		ID:          1,
		StartNodeID: "n1",
		Nodes: []Node{
			&CharacterNode{BaseNode: BaseNode{ID: "n1"}, Text: "Hi", DefaultNextNodeID: "n2"},
			&EndNode{BaseNode: BaseNode{ID: "n2"}},
			// Connected to each other but not to the start node.
			&CharacterNode{BaseNode: BaseNode{ID: "a"}, Text: "Off", DefaultNextNodeID: "b"},
			&EndNode{BaseNode: BaseNode{ID: "b"}},
		},
	}

	issues := Validate(g)
	if !hasIssue(issues, IssueDisconnectedSubgraph, SeverityWarning) {
		t.Errorf("Expected disconnected_subgraph warning, got %+v", issues)
	}
	if hasIssue(issues, IssueOrphanedNode, SeverityWarning) {
		t.Errorf("Linked nodes must not be reported as orphans: %+v", issues)
	}
}

// TestValidateHierarchy tests structural ordering warnings
func TestValidateHierarchy(t *testing.T) {
	g := &Graph{
		ID:          1,
		StartNodeID: "ch1",
		Nodes: []Node{
			&SectionNode{BaseNode: BaseNode{ID: "ch1"}, Kind: NodeChapter, Title: "One", DefaultNextNodeID: "end"},
			&EndNode{BaseNode: BaseNode{ID: "end"}},
		},
	}

	issues := Validate(g)
	if !hasIssue(issues, IssueInvalidHierarchy, SeverityWarning) {
		t.Errorf("Expected invalid_hierarchy warning for chapter before act, got %+v", issues)
	}
}

// TestValidateHierarchyInOrder tests that proper nesting passes
func TestValidateHierarchyInOrder(t *testing.T) {
	g := &Graph{
		ID:          1,
		StartNodeID: "act1",
		Nodes: []Node{
			&SectionNode{BaseNode: BaseNode{ID: "act1"}, Kind: NodeAct, DefaultNextNodeID: "ch1"},
			&SectionNode{BaseNode: BaseNode{ID: "ch1"}, Kind: NodeChapter, DefaultNextNodeID: "pg1"},
			&SectionNode{BaseNode: BaseNode{ID: "pg1"}, Kind: NodePage, DefaultNextNodeID: "end"},
			&EndNode{BaseNode: BaseNode{ID: "end"}},
		},
	}

	issues := Validate(g)
	if hasIssue(issues, IssueInvalidHierarchy, SeverityWarning) {
		t.Errorf("Expected no hierarchy warnings, got %+v", issues)
	}
}

// TestValidateHappyPath tests a well-formed graph
func TestValidateHappyPath(t *testing.T) {
	g := &Graph{
		ID:          1,
		StartNodeID: "n1",
		Nodes: []Node{
			&CharacterNode{BaseNode: BaseNode{ID: "n1"}, Text: "Hi", DefaultNextNodeID: "n2"},
			&PlayerNode{BaseNode: BaseNode{ID: "n2"}, Choices: []Choice{
				{ID: "c1", Text: "Bye", TargetNodeID: "n3"},
			}},
			&EndNode{BaseNode: BaseNode{ID: "n3"}},
		},
		Edges: []Edge{
			{From: "n1", To: "n2", Kind: EdgeDefault},
			{From: "n2", To: "n3", Kind: EdgeChoice},
		},
	}

	if issues := Validate(g); len(issues) != 0 {
		t.Errorf("Expected no issues, got %+v", issues)
	}
}
