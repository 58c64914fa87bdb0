package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/storyloom/server/internal/condition"
	"github.com/storyloom/server/internal/graph"
	"github.com/storyloom/server/internal/vars"
)

var (
	headerRe  = regexp.MustCompile(`^::\s*(\S+)\s*$`)
	titleRe   = regexp.MustCompile(`^title:\s*(.+)$`)
	setRe     = regexp.MustCompile(`<<set \$(\w+)\s*([+\-*/=]+)\s*(.+?)>>`)
	nextRe    = regexp.MustCompile(`^<<next\s+(\S+)>>$`)
	ifRe      = regexp.MustCompile(`^<<if\s+(.+?)>>$`)
	elseifRe  = regexp.MustCompile(`^<<elseif\s+(.+?)>>$`)
	elseRe    = regexp.MustCompile(`^<<else>>$`)
	endifRe   = regexp.MustCompile(`^<<endif>>$`)
	jumpRe    = regexp.MustCompile(`^<<jump\s+graph:(\d+)>>$`)
	detourRe  = regexp.MustCompile(`^<<detour\s+graph:(\d+)(?:\s*->\s*(\S+))?>>$`)
	endRe     = regexp.MustCompile(`^<<end(?:\s+(\S+))?>>$`)
	sectionRe = regexp.MustCompile(`^<<(act|chapter|page)(?:\s+(.*?))?>>$`)
	speakerRe = regexp.MustCompile(`^([^:<>-][^:]*):\s?(.*)$`)

	choiceIfRe     = regexp.MustCompile(`<<if\s+(.+?)>>`)
	choiceTargetRe = regexp.MustCompile(`\s*=>\s*(\S+)\s*$`)
)

// Import parses script text back into a graph. The parser is lenient:
// malformed <<set>> commands are skipped and unparseable condition clauses
// are dropped, never fatal. The first block becomes the start node.
func Import(text string) (*graph.Graph, error) {
	g := &graph.Graph{Kind: graph.KindNarrative}

	lines := strings.Split(text, "\n")
	var blocks []scriptBlock
	var current *scriptBlock

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := headerRe.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, scriptBlock{id: m[1]})
			current = &blocks[len(blocks)-1]
			continue
		}
		if current == nil {
			if m := titleRe.FindStringSubmatch(line); m != nil {
				g.Title = m[1]
			}
			continue // preamble text outside any block
		}
		current.lines = append(current.lines, line)
	}

	if len(blocks) == 0 {
		return g, nil
	}

	for _, block := range blocks {
		node := block.node()
		if node == nil {
			continue
		}
		if err := g.AddNode(node); err != nil {
			return nil, fmt.Errorf("block %s: %w", block.id, err)
		}
		if end, ok := node.(*graph.EndNode); ok {
			g.EndNodes = append(g.EndNodes, graph.EndRef{NodeID: end.ID, ExitKey: end.ExitKey})
		}
	}
	g.StartNodeID = blocks[0].id

	synthesizeEdges(g)
	return g, nil
}

type scriptBlock struct {
	id    string
	lines []string
}

// node classifies a block by its content and builds the typed node.
func (b *scriptBlock) node() graph.Node {
	base := graph.BaseNode{ID: b.id}
	body := b.lines

	// Leading <<set>> commands are node-level flag writes.
	for len(body) > 0 {
		w, ok := parseSet(body[0])
		if !ok || !strings.HasPrefix(body[0], "<<set") {
			break
		}
		base.SetFlags = append(base.SetFlags, w)
		body = body[1:]
	}

	if len(body) == 0 {
		return &graph.CharacterNode{BaseNode: base}
	}

	first := body[0]
	switch {
	case ifRe.MatchString(first):
		return parseConditional(base, body)
	case jumpRe.MatchString(first):
		m := jumpRe.FindStringSubmatch(first)
		id, _ := strconv.ParseInt(m[1], 10, 64)
		return &graph.StoryletNode{BaseNode: base, TargetGraphID: id, Mode: graph.ModeJump}
	case detourRe.MatchString(first):
		m := detourRe.FindStringSubmatch(first)
		id, _ := strconv.ParseInt(m[1], 10, 64)
		return &graph.StoryletNode{BaseNode: base, TargetGraphID: id, Mode: graph.ModeDetourReturn, ReturnToNodeID: m[2]}
	case endRe.MatchString(first):
		m := endRe.FindStringSubmatch(first)
		return &graph.EndNode{BaseNode: base, ExitKey: m[1]}
	case sectionRe.MatchString(first):
		m := sectionRe.FindStringSubmatch(first)
		n := &graph.SectionNode{BaseNode: base, Kind: graph.NodeType(strings.ToUpper(m[1])), Title: m[2]}
		for _, line := range body[1:] {
			if nm := nextRe.FindStringSubmatch(line); nm != nil {
				n.DefaultNextNodeID = nm[1]
			}
		}
		return n
	case strings.HasPrefix(first, "-> "):
		return parsePlayer(base, body)
	default:
		return parseCharacter(base, body)
	}
}

// parseCharacter merges consecutive speaker lines into one text block.
func parseCharacter(base graph.BaseNode, body []string) graph.Node {
	n := &graph.CharacterNode{BaseNode: base}
	var textLines []string
	for _, line := range body {
		if m := nextRe.FindStringSubmatch(line); m != nil {
			n.DefaultNextNodeID = m[1]
			continue
		}
		if w, ok := parseSet(line); ok {
			n.SetFlags = append(n.SetFlags, w)
			continue
		}
		if m := speakerRe.FindStringSubmatch(line); m != nil {
			if n.Speaker == "" {
				n.Speaker = strings.TrimSpace(m[1])
			}
			textLines = append(textLines, m[2])
		}
		// anything else is skipped, not fatal
	}
	n.Text = strings.Join(textLines, "\n")
	return n
}

// parsePlayer reads "->" choice lines: display text plus optional inline
// <<if>>, <<set>>, and "=>" target fragments.
func parsePlayer(base graph.BaseNode, body []string) graph.Node {
	n := &graph.PlayerNode{BaseNode: base}
	for _, line := range body {
		if !strings.HasPrefix(line, "-> ") {
			continue
		}
		rest := strings.TrimPrefix(line, "-> ")

		c := graph.Choice{ID: fmt.Sprintf("%s_c%d", base.ID, len(n.Choices)+1)}

		if m := choiceTargetRe.FindStringSubmatch(rest); m != nil {
			c.TargetNodeID = m[1]
			rest = choiceTargetRe.ReplaceAllString(rest, "")
		}
		if m := choiceIfRe.FindStringSubmatch(rest); m != nil {
			c.Conditions = condition.Parse(m[1])
			rest = choiceIfRe.ReplaceAllString(rest, "")
		}
		for _, m := range setRe.FindAllStringSubmatch(rest, -1) {
			c.SetFlags = append(c.SetFlags, vars.FlagWrite{Flag: m[1], Op: m[2], Value: condition.ParseLiteral(m[3])})
		}
		rest = setRe.ReplaceAllString(rest, "")

		c.Text = strings.TrimSpace(rest)
		n.Choices = append(n.Choices, c)
	}
	return n
}

// parseConditional reads an <<if>>...<<endif>> block sequence.
func parseConditional(base graph.BaseNode, body []string) graph.Node {
	n := &graph.ConditionalNode{BaseNode: base}
	var block *graph.ConditionalBlock

	flush := func() {
		if block != nil {
			n.Blocks = append(n.Blocks, *block)
			block = nil
		}
	}
	open := func(kind graph.BlockKind, conds []condition.Condition) {
		flush()
		block = &graph.ConditionalBlock{
			ID:         fmt.Sprintf("%s_b%d", base.ID, len(n.Blocks)+1),
			Kind:       kind,
			Conditions: conds,
		}
	}

	for _, line := range body {
		switch {
		case ifRe.MatchString(line):
			open(graph.BlockIf, condition.Parse(ifRe.FindStringSubmatch(line)[1]))
		case elseifRe.MatchString(line):
			open(graph.BlockElseIf, condition.Parse(elseifRe.FindStringSubmatch(line)[1]))
		case elseRe.MatchString(line):
			open(graph.BlockElse, nil)
		case endifRe.MatchString(line):
			flush()
		default:
			if block == nil {
				continue
			}
			if m := nextRe.FindStringSubmatch(line); m != nil {
				block.NextNodeID = m[1]
				continue
			}
			if w, ok := parseSet(line); ok {
				block.SetFlags = append(block.SetFlags, w)
				continue
			}
			if m := speakerRe.FindStringSubmatch(line); m != nil {
				if block.Speaker == "" {
					block.Speaker = strings.TrimSpace(m[1])
				}
				if block.Content != "" {
					block.Content += "\n"
				}
				block.Content += m[2]
			}
		}
	}
	flush()
	return n
}

// parseSet matches one <<set $flag op value>> command. Lines that look
// like a set but do not match the grammar are skipped by the callers.
func parseSet(line string) (vars.FlagWrite, bool) {
	m := setRe.FindStringSubmatch(line)
	if m == nil {
		return vars.FlagWrite{}, false
	}
	return vars.FlagWrite{Flag: m[1], Op: m[2], Value: condition.ParseLiteral(m[3])}, true
}

// synthesizeEdges rebuilds advisory edges from the data-level successors.
// Targets are preserved verbatim even when dangling; only edges to
// existing nodes are synthesized, validation reports the rest.
func synthesizeEdges(g *graph.Graph) {
	for _, n := range g.Nodes {
		switch t := n.(type) {
		case *graph.CharacterNode:
			addEdge(g, t.ID, t.DefaultNextNodeID, graph.EdgeDefault)
		case *graph.PlayerNode:
			for _, c := range t.Choices {
				addEdge(g, t.ID, c.TargetNodeID, graph.EdgeChoice)
			}
		case *graph.ConditionalNode:
			for _, b := range t.Blocks {
				addEdge(g, t.ID, b.NextNodeID, graph.EdgeCondition)
			}
		case *graph.StoryletNode:
			addEdge(g, t.ID, t.ReturnToNodeID, graph.EdgeFlow)
		case *graph.SectionNode:
			addEdge(g, t.GetID(), t.DefaultNextNodeID, graph.EdgeDefault)
		}
	}
}

func addEdge(g *graph.Graph, from, to string, kind graph.EdgeKind) {
	if to == "" || g.Node(to) == nil {
		return
	}
	g.Edges = append(g.Edges, graph.Edge{From: from, To: to, Kind: kind})
}
