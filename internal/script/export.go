// Package script converts between the graph model and the plain-text
// script format. The text format is the portable, human-editable surface:
// speaker-prefixed lines, "->" choice menus, <<if/elseif/else/endif>>
// blocks, and <<set $flag = value>> commands. Presentation and runtime
// metadata never crosses this boundary.
package script

import (
	"fmt"
	"strings"

	"github.com/storyloom/server/internal/condition"
	"github.com/storyloom/server/internal/graph"
	"github.com/storyloom/server/internal/vars"
)

// Export renders a graph as script text. Node ids and jump targets are
// preserved verbatim so an import reproduces the same flow topology;
// presentation and runtime-directive fields are stripped.
func Export(g *graph.Graph) string {
	var b strings.Builder

	if g.Title != "" {
		fmt.Fprintf(&b, "title: %s\n\n", g.Title)
	}

	for i, n := range g.Nodes {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, ":: %s\n", n.GetID())
		writeSetCommands(&b, n.GetSetFlags())

		switch t := n.(type) {
		case *graph.CharacterNode:
			writeSpeakerLines(&b, t.Speaker, t.Text)
			writeNext(&b, t.DefaultNextNodeID)

		case *graph.PlayerNode:
			for _, c := range t.Choices {
				writeChoice(&b, c)
			}

		case *graph.ConditionalNode:
			writeConditional(&b, t)

		case *graph.StoryletNode:
			if t.Mode == graph.ModeDetourReturn {
				if t.ReturnToNodeID != "" {
					fmt.Fprintf(&b, "<<detour graph:%d -> %s>>\n", t.TargetGraphID, t.ReturnToNodeID)
				} else {
					fmt.Fprintf(&b, "<<detour graph:%d>>\n", t.TargetGraphID)
				}
			} else {
				fmt.Fprintf(&b, "<<jump graph:%d>>\n", t.TargetGraphID)
			}

		case *graph.EndNode:
			if t.ExitKey != "" {
				fmt.Fprintf(&b, "<<end %s>>\n", t.ExitKey)
			} else {
				b.WriteString("<<end>>\n")
			}

		case *graph.SectionNode:
			fmt.Fprintf(&b, "<<%s %s>>\n", strings.ToLower(string(t.Kind)), t.Title)
			writeNext(&b, t.DefaultNextNodeID)
		}
	}

	return b.String()
}

// writeSpeakerLines repeats the speaker prefix for every content line.
func writeSpeakerLines(b *strings.Builder, speaker, text string) {
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(b, "%s: %s\n", speaker, line)
	}
}

func writeNext(b *strings.Builder, nextID string) {
	if nextID != "" {
		fmt.Fprintf(b, "<<next %s>>\n", nextID)
	}
}

func writeSetCommands(b *strings.Builder, writes []vars.FlagWrite) {
	for _, w := range writes {
		op := w.Op
		if op == "" {
			op = "="
		}
		fmt.Fprintf(b, "<<set $%s %s %s>>\n", w.Flag, op, condition.FormatLiteral(w.Value))
	}
}

func writeChoice(b *strings.Builder, c graph.Choice) {
	fmt.Fprintf(b, "-> %s", c.Text)
	if len(c.Conditions) > 0 {
		fmt.Fprintf(b, " <<if %s>>", condition.Format(c.Conditions))
	}
	for _, w := range c.SetFlags {
		op := w.Op
		if op == "" {
			op = "="
		}
		fmt.Fprintf(b, " <<set $%s %s %s>>", w.Flag, op, condition.FormatLiteral(w.Value))
	}
	if c.TargetNodeID != "" {
		fmt.Fprintf(b, " => %s", c.TargetNodeID)
	}
	b.WriteString("\n")
}

func writeConditional(b *strings.Builder, n *graph.ConditionalNode) {
	for _, block := range n.Blocks {
		switch block.Kind {
		case graph.BlockElse:
			b.WriteString("<<else>>\n")
		case graph.BlockElseIf:
			fmt.Fprintf(b, "<<elseif %s>>\n", condition.Format(block.Conditions))
		default:
			fmt.Fprintf(b, "<<if %s>>\n", condition.Format(block.Conditions))
		}
		writeSetCommands(b, block.SetFlags)
		if block.Content != "" {
			writeSpeakerLines(b, block.Speaker, block.Content)
		}
		writeNext(b, block.NextNodeID)
	}
	b.WriteString("<<endif>>\n")
}
