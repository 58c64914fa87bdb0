package graph

import "fmt"

// Severity grades a validation issue. Errors block commit/compile,
// warnings are advisory only.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes reported by Validate.
const (
	IssueMissingStart         = "missing_start"
	IssueOrphanedNode         = "orphaned_node"
	IssueDisconnectedSubgraph = "disconnected_subgraph"
	IssueInvalidHierarchy     = "invalid_hierarchy"
	IssueInvalidEdge          = "invalid_edge"
	IssueInvalidConditional   = "invalid_conditional"
)

// Issue is one structural problem found in a graph. Validation never
// throws; it reports, and the editor renders the result inline.
type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeIDs  []string `json:"nodeIds,omitempty"`
}

// Successors returns the data-level successor ids of a node: the ids the
// runner can actually move to. Storylet JUMP targets live in another graph
// and are not included.
func Successors(n Node) []string {
	var out []string
	add := func(id string) {
		if id != "" {
			out = append(out, id)
		}
	}
	switch t := n.(type) {
	case *CharacterNode:
		add(t.DefaultNextNodeID)
	case *PlayerNode:
		for _, c := range t.Choices {
			add(c.TargetNodeID)
		}
	case *ConditionalNode:
		for _, b := range t.Blocks {
			add(b.NextNodeID)
		}
	case *StoryletNode:
		add(t.ReturnToNodeID)
	case *SectionNode:
		add(t.DefaultNextNodeID)
	}
	return out
}

// Validate runs the structural validation pass. The runner and resolver
// never call this; it exists for the editor boundary.
func Validate(g *Graph) []Issue {
	var issues []Issue

	if len(g.Nodes) == 0 {
		return nil // empty graph is valid
	}

	if g.Start() == nil {
		issues = append(issues, Issue{
			Code:     IssueMissingStart,
			Severity: SeverityError,
			Message:  fmt.Sprintf("graph %d has no valid start node", g.ID),
		})
	}

	// Dangling edge endpoints.
	for _, e := range g.Edges {
		if g.Node(e.From) == nil || g.Node(e.To) == nil {
			issues = append(issues, Issue{
				Code:     IssueInvalidEdge,
				Severity: SeverityError,
				Message:  fmt.Sprintf("edge %s -> %s references a missing node", e.From, e.To),
				NodeIDs:  []string{e.From, e.To},
			})
		}
	}

	// Conditional block ordering: at most one else, and it must be last.
	for _, n := range g.Nodes {
		cn, ok := n.(*ConditionalNode)
		if !ok {
			continue
		}
		for i, b := range cn.Blocks {
			if b.Kind == BlockElse && i != len(cn.Blocks)-1 {
				issues = append(issues, Issue{
					Code:     IssueInvalidConditional,
					Severity: SeverityError,
					Message:  fmt.Sprintf("node %s has an else block before the end", cn.ID),
					NodeIDs:  []string{cn.ID},
				})
				break
			}
		}
	}

	// Connectivity over edges plus data-level successors.
	linked := make(map[string]bool)
	for _, e := range g.Edges {
		linked[e.From] = true
		linked[e.To] = true
	}
	for _, n := range g.Nodes {
		succ := Successors(n)
		if len(succ) > 0 {
			linked[n.GetID()] = true
		}
		for _, id := range succ {
			linked[id] = true
		}
	}

	var orphans []string
	for _, n := range g.Nodes {
		if !linked[n.GetID()] && n.GetID() != g.StartNodeID {
			orphans = append(orphans, n.GetID())
		}
	}
	if len(orphans) > 0 {
		issues = append(issues, Issue{
			Code:     IssueOrphanedNode,
			Severity: SeverityWarning,
			Message:  "nodes have no connections",
			NodeIDs:  orphans,
		})
	}

	// Reachability from the start node.
	if start := g.Start(); start != nil {
		reached := reachableFrom(g, start.GetID())
		var unreachable []string
		for _, n := range g.Nodes {
			if !reached[n.GetID()] {
				unreachable = append(unreachable, n.GetID())
			}
		}
		if len(unreachable) > 0 {
			issues = append(issues, Issue{
				Code:     IssueDisconnectedSubgraph,
				Severity: SeverityWarning,
				Message:  "nodes are unreachable from the start node",
				NodeIDs:  unreachable,
			})
		}

		issues = append(issues, checkHierarchy(g, start.GetID())...)
	}

	return issues
}

// reachableFrom walks edges and data successors breadth-first.
func reachableFrom(g *Graph, startID string) map[string]bool {
	adjacent := make(map[string][]string)
	for _, e := range g.Edges {
		adjacent[e.From] = append(adjacent[e.From], e.To)
	}
	for _, n := range g.Nodes {
		adjacent[n.GetID()] = append(adjacent[n.GetID()], Successors(n)...)
	}

	reached := map[string]bool{startID: true}
	queue := []string{startID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adjacent[id] {
			if !reached[next] && g.Node(next) != nil {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	return reached
}

// checkHierarchy flags structural nodes appearing out of order in flow
// order: a CHAPTER before any ACT, or a PAGE before any CHAPTER.
func checkHierarchy(g *Graph, startID string) []Issue {
	var issues []Issue
	seenAct, seenChapter := false, false
	visited := make(map[string]bool)

	var walk func(id string)
	walk = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		n := g.Node(id)
		if n == nil {
			return
		}
		switch n.Type() {
		case NodeAct:
			seenAct = true
		case NodeChapter:
			if !seenAct {
				issues = append(issues, Issue{
					Code:     IssueInvalidHierarchy,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("chapter node %s appears before any act", id),
					NodeIDs:  []string{id},
				})
			}
			seenChapter = true
		case NodePage:
			if !seenChapter {
				issues = append(issues, Issue{
					Code:     IssueInvalidHierarchy,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("page node %s appears before any chapter", id),
					NodeIDs:  []string{id},
				})
			}
		}
		for _, next := range Successors(n) {
			walk(next)
		}
	}
	walk(startID)
	return issues
}
