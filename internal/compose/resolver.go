package compose

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storyloom/server/internal/condition"
	"github.com/storyloom/server/internal/graph"
	"github.com/storyloom/server/internal/vars"
)

// LookupFunc fetches a referenced graph by id. Returning (nil, nil) means
// the graph does not exist; a non-nil error aborts the whole build.
type LookupFunc func(ctx context.Context, graphID int64) (*graph.Graph, error)

// Options selects the resolution policy.
type Options struct {
	ResolveStorylets   bool
	FailOnMissingGraph bool
}

// DefaultOptions resolves storylets and treats missing references as fatal.
func DefaultOptions() Options {
	return Options{ResolveStorylets: true, FailOnMissingGraph: true}
}

// Logical cue durations in milliseconds. The clock is authoring-time
// pacing, not wall time.
const (
	enterNodeMs = 250
	lineMs      = 2000
	choicesMs   = 1500
)

// builder is the per-call resolution context. Each Build call owns its own
// builder, so concurrent builds share no mutable state.
type builder struct {
	lookup    LookupFunc
	opts      Options
	visited   map[int64]bool
	comp      *Composition
	store     *vars.Store
	clock     int64
	trackCues map[TrackKind][]string
}

// Build flattens a root graph and all transitively referenced storylets
// into one composition document. The initial snapshot seeds conditional
// and choice evaluation along the linear walk.
func Build(ctx context.Context, root *graph.Graph, lookup LookupFunc, initial map[string]interface{}, opts Options) (*Composition, error) {
	if root == nil || root.Start() == nil {
		return nil, ErrMalformedRoot
	}

	b := &builder{
		lookup:  lookup,
		opts:    opts,
		visited: map[int64]bool{root.ID: true},
		comp: &Composition{
			Schema:      SchemaVersion,
			RootGraphID: root.ID,
			Entry:       root.StartNodeID,
		},
		store:     vars.NewStore(initial),
		trackCues: make(map[TrackKind][]string),
	}

	if err := b.resolveGraph(ctx, root); err != nil {
		return nil, err
	}

	for _, kind := range []TrackKind{TrackSystem, TrackDialogue, TrackChoice, TrackPresentation} {
		b.comp.Tracks = append(b.comp.Tracks, Track{Kind: kind, CueIDs: b.trackCues[kind]})
	}
	return b.comp, nil
}

// resolveGraph synthesizes one scene for a graph and walks it linearly,
// descending into storylet references as it finds them.
func (b *builder) resolveGraph(ctx context.Context, g *graph.Graph) error {
	b.comp.ResolvedGraphIDs = append(b.comp.ResolvedGraphIDs, g.ID)
	b.comp.Graphs = append(b.comp.Graphs, ResolvedGraph{GraphID: g.ID, Graph: g})

	scene := Scene{
		ID:      fmt.Sprintf("scene-%d", g.ID),
		GraphID: g.ID,
		Title:   g.Title,
		Index:   len(b.comp.Scenes),
	}
	b.comp.Scenes = append(b.comp.Scenes, scene)

	if g.Start() == nil {
		b.diag(Diagnostic{Code: DiagNoStartNode, Message: fmt.Sprintf("graph %d has no start node", g.ID), GraphID: g.ID})
		return nil
	}

	return b.walk(ctx, g, scene.ID)
}

// walk mirrors what the graph runner would emit when driving the graph
// linearly along default and first-eligible-choice edges.
func (b *builder) walk(ctx context.Context, g *graph.Graph, sceneID string) error {
	seen := make(map[string]bool)
	nodeID := g.StartNodeID

	for nodeID != "" {
		if seen[nodeID] {
			b.diag(Diagnostic{Code: DiagWalkCycle, Message: fmt.Sprintf("walk revisited node %s", nodeID), GraphID: g.ID, NodeID: nodeID})
			return nil
		}
		seen[nodeID] = true

		node := g.Node(nodeID)
		if node == nil {
			b.diag(Diagnostic{Code: DiagDanglingNode, Message: fmt.Sprintf("node %s not found in graph %d", nodeID, g.ID), GraphID: g.ID, NodeID: nodeID})
			return nil
		}

		b.store.ApplyAll(node.GetSetFlags())

		switch n := node.(type) {
		case *graph.CharacterNode:
			b.cue(Cue{Type: CueEnterNode, Track: TrackSystem, GraphID: g.ID, NodeID: n.ID, SceneID: sceneID}, enterNodeMs)
			b.cue(Cue{Type: CueLine, Track: TrackDialogue, GraphID: g.ID, NodeID: n.ID, SceneID: sceneID, Speaker: n.Speaker, Text: n.Text}, lineMs)
			nodeID = n.DefaultNextNodeID

		case *graph.PlayerNode:
			var eligible []graph.Choice
			for _, c := range n.Choices {
				if len(c.Conditions) == 0 || condition.Evaluate(c.Conditions, b.store) {
					eligible = append(eligible, c)
				}
			}
			b.cue(Cue{Type: CueChoices, Track: TrackChoice, GraphID: g.ID, NodeID: n.ID, SceneID: sceneID, Choices: eligible}, choicesMs)
			nodeID = ""
			if len(eligible) > 0 {
				b.store.ApplyAll(eligible[0].SetFlags)
				nodeID = eligible[0].TargetNodeID
			}

		case *graph.ConditionalNode:
			nodeID = b.walkConditional(n, g, sceneID)

		case *graph.StoryletNode:
			next, err := b.walkStorylet(ctx, n, g)
			if err != nil {
				return err
			}
			nodeID = next

		case *graph.EndNode:
			b.cue(Cue{Type: CueEnd, Track: TrackSystem, GraphID: g.ID, NodeID: n.ID, SceneID: sceneID, ExitKey: n.ExitKey}, 0)
			return nil

		case *graph.SectionNode:
			b.cue(Cue{Type: CueEnterNode, Track: TrackPresentation, GraphID: g.ID, NodeID: n.GetID(), SceneID: sceneID, Text: n.Title}, enterNodeMs)
			nodeID = n.DefaultNextNodeID

		default:
			nodeID = ""
		}
	}
	return nil
}

// walkConditional applies the first satisfied block and returns the id the
// walk continues at.
func (b *builder) walkConditional(n *graph.ConditionalNode, g *graph.Graph, sceneID string) string {
	for i := range n.Blocks {
		block := &n.Blocks[i]
		if block.Kind != graph.BlockElse && !condition.Evaluate(block.Conditions, b.store) {
			continue
		}
		b.store.ApplyAll(block.SetFlags)
		if block.Content != "" {
			b.cue(Cue{Type: CueLine, Track: TrackDialogue, GraphID: g.ID, NodeID: n.ID, SceneID: sceneID, Speaker: block.Speaker, Text: block.Content}, lineMs)
		}
		return block.NextNodeID
	}
	return ""
}

// walkStorylet resolves one storylet reference per the configured policy
// and returns where the current walk continues (empty for a jump).
func (b *builder) walkStorylet(ctx context.Context, n *graph.StoryletNode, g *graph.Graph) (string, error) {
	continueAt := ""
	if n.Mode == graph.ModeDetourReturn {
		continueAt = n.ReturnToNodeID
	}

	if !b.opts.ResolveStorylets {
		return continueAt, nil
	}

	if b.visited[n.TargetGraphID] {
		// Re-resolution is skipped on cyclic references, but the
		// reference itself is still recorded for diagnostics.
		b.diag(Diagnostic{Code: DiagRepeatReference, Message: fmt.Sprintf("graph %d already resolved", n.TargetGraphID), GraphID: g.ID, NodeID: n.ID})
		return continueAt, nil
	}

	target, err := b.lookup(ctx, n.TargetGraphID)
	if err != nil {
		return "", fmt.Errorf("resolving graph %d: %w", n.TargetGraphID, err)
	}
	if target == nil {
		if b.opts.FailOnMissingGraph {
			return "", &MissingGraphError{GraphID: n.TargetGraphID}
		}
		b.diag(Diagnostic{Code: DiagMissingGraph, Message: fmt.Sprintf("Referenced graph %d not found", n.TargetGraphID), GraphID: g.ID, NodeID: n.ID})
		return continueAt, nil
	}

	b.visited[n.TargetGraphID] = true
	if err := b.resolveGraph(ctx, target); err != nil {
		return "", err
	}
	return continueAt, nil
}

// cue stamps a cue at the current logical clock and appends it to its
// track lane.
func (b *builder) cue(c Cue, durationMs int64) {
	c.ID = uuid.New().String()
	c.AtMs = b.clock
	b.clock += durationMs
	b.comp.Cues = append(b.comp.Cues, c)
	b.trackCues[c.Track] = append(b.trackCues[c.Track], c.ID)
}

func (b *builder) diag(d Diagnostic) {
	b.comp.Diagnostics = append(b.comp.Diagnostics, d)
}
