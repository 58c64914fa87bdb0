package runner

import (
	"fmt"

	"github.com/storyloom/server/internal/condition"
	"github.com/storyloom/server/internal/graph"
	"github.com/storyloom/server/internal/vars"
)

// Status is the runner's public state.
type Status string

const (
	StatusRunning           Status = "RUNNING"
	StatusWaitingForAdvance Status = "WAITING_FOR_ADVANCE"
	StatusWaitingForChoice  Status = "WAITING_FOR_CHOICE"
	StatusEnded             Status = "ENDED"
	StatusError             Status = "ERROR"
)

// State is the snapshot returned by GetState.
type State struct {
	Status  Status `json:"status"`
	NodeID  string `json:"nodeId,omitempty"`
	GraphID int64  `json:"graphId"`
}

// ResolveFunc is an optional inline storylet lookup. Without one, the
// runner only supports statically-resolved graphs and a STORYLET node is a
// fault; cross-graph flattening is the composition resolver's job.
type ResolveFunc func(graphID int64) *graph.Graph

// Runner is a single-session, synchronous interpreter for one dialogue
// graph. All operations run to completion; the waiting statuses park the
// interpreter until the host calls the next method. A runner must not be
// shared between goroutines.
type Runner struct {
	graph    *graph.Graph
	store    *vars.Store
	resolve  ResolveFunc
	status   Status
	current  string
	eligible []graph.Choice
	returns  []returnPoint
}

// returnPoint records where a DETOUR_RETURN storylet resumes.
type returnPoint struct {
	graph  *graph.Graph
	nodeID string
}

// Option configures a Runner.
type Option func(*Runner)

// WithResolver supplies an inline synchronous storylet resolver.
func WithResolver(fn ResolveFunc) Option {
	return func(r *Runner) { r.resolve = fn }
}

// New creates a runner positioned at the graph's start node, with a flag
// store seeded from the initial snapshot.
func New(g *graph.Graph, initial map[string]interface{}, opts ...Option) *Runner {
	r := &Runner{
		graph:   g,
		store:   vars.NewStore(initial),
		status:  StatusRunning,
		current: g.StartNodeID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetState returns the current status and position.
func (r *Runner) GetState() State {
	return State{Status: r.status, NodeID: r.current, GraphID: r.graph.ID}
}

// GetVariableSnapshot returns a read-only copy of the flag store.
func (r *Runner) GetVariableSnapshot() map[string]interface{} {
	return r.store.Snapshot()
}

// Step produces the events for the current node and parks the runner in
// the appropriate waiting state. Valid only before the first wait or after
// construction.
func (r *Runner) Step() []Event {
	if r.status != StatusRunning {
		return r.rejected("step")
	}
	var events []Event
	r.stepCurrent(&events)
	return events
}

// Advance moves past a WAITING_FOR_ADVANCE pause to the current node's
// default-next and steps again.
func (r *Runner) Advance() []Event {
	if r.status != StatusWaitingForAdvance {
		return r.rejected("advance")
	}
	var events []Event
	node := r.graph.Node(r.current)
	next := ""
	if node != nil {
		next = graph.DefaultNext(node)
	}
	if next == "" {
		r.end(&events, "")
		return events
	}
	r.status = StatusRunning
	r.moveTo(&events, next)
	return events
}

// SelectChoice resolves a WAITING_FOR_CHOICE pause. Choosing an id that
// was not among the last-emitted eligible choices is a fatal runner fault.
func (r *Runner) SelectChoice(choiceID string) []Event {
	if r.status != StatusWaitingForChoice {
		return r.rejected("selectChoice")
	}
	var events []Event
	var chosen *graph.Choice
	for i := range r.eligible {
		if r.eligible[i].ID == choiceID {
			chosen = &r.eligible[i]
			break
		}
	}
	if chosen == nil {
		r.fail(&events, CodeInvalidChoice, fmt.Sprintf("choice %s is not available at node %s", choiceID, r.current))
		return events
	}

	r.applyFlags(&events, chosen.SetFlags)
	r.eligible = nil
	r.status = StatusRunning

	if chosen.TargetNodeID == "" {
		r.end(&events, "")
		return events
	}
	r.moveTo(&events, chosen.TargetNodeID)
	return events
}

// moveTo repositions the runner and steps, faulting on dangling ids.
func (r *Runner) moveTo(events *[]Event, nodeID string) {
	if r.graph.Node(nodeID) == nil {
		r.fail(events, CodeMissingNode, fmt.Sprintf("node %s not found in graph %d", nodeID, r.graph.ID))
		return
	}
	r.current = nodeID
	r.stepCurrent(events)
}

// stepCurrent interprets the node at the current position.
func (r *Runner) stepCurrent(events *[]Event) {
	node := r.graph.Node(r.current)
	if node == nil {
		r.fail(events, CodeMissingNode, fmt.Sprintf("node %s not found in graph %d", r.current, r.graph.ID))
		return
	}

	r.applyFlags(events, node.GetSetFlags())

	switch n := node.(type) {
	case *graph.CharacterNode:
		*events = append(*events, r.event(EventEnterNode, n.ID))
		line := r.event(EventLine, n.ID)
		line.Speaker = n.Speaker
		line.Text = n.Text
		*events = append(*events, line)
		wait := r.event(EventWaitForUser, n.ID)
		wait.Reason = "advance"
		*events = append(*events, wait)
		r.status = StatusWaitingForAdvance

	case *graph.PlayerNode:
		r.eligible = r.eligible[:0]
		for _, c := range n.Choices {
			if len(c.Conditions) == 0 || condition.Evaluate(c.Conditions, r.store) {
				r.eligible = append(r.eligible, c)
			}
		}
		ev := r.event(EventChoices, n.ID)
		ev.Choices = append([]graph.Choice(nil), r.eligible...)
		*events = append(*events, ev)
		r.status = StatusWaitingForChoice

	case *graph.ConditionalNode:
		r.stepConditional(events, n)

	case *graph.StoryletNode:
		r.stepStorylet(events, n)

	case *graph.EndNode:
		r.end(events, n.ExitKey)

	case *graph.SectionNode:
		*events = append(*events, r.event(EventEnterNode, n.GetID()))
		if n.DefaultNextNodeID == "" {
			r.end(events, "")
			return
		}
		r.moveTo(events, n.DefaultNextNodeID)

	default:
		r.fail(events, CodeMissingNode, fmt.Sprintf("node %s has unsupported type %s", node.GetID(), node.Type()))
	}
}

// stepConditional selects the first satisfied block in declaration order,
// falling back to a trailing else. No satisfied block ends the thread.
func (r *Runner) stepConditional(events *[]Event, n *graph.ConditionalNode) {
	var block *graph.ConditionalBlock
	for i := range n.Blocks {
		b := &n.Blocks[i]
		if b.Kind == graph.BlockElse {
			if block == nil {
				block = b
			}
			break
		}
		if condition.Evaluate(b.Conditions, r.store) {
			block = b
			break
		}
	}
	if block == nil {
		r.end(events, "")
		return
	}

	r.applyFlags(events, block.SetFlags)
	if block.Content != "" {
		line := r.event(EventLine, n.ID)
		line.Speaker = block.Speaker
		line.Text = block.Content
		*events = append(*events, line)
	}
	if block.NextNodeID != "" {
		r.moveTo(events, block.NextNodeID)
		return
	}
	wait := r.event(EventWaitForUser, n.ID)
	wait.Reason = "advance"
	*events = append(*events, wait)
	r.status = StatusWaitingForAdvance
}

// stepStorylet transfers control into a referenced graph when an inline
// resolver is available.
func (r *Runner) stepStorylet(events *[]Event, n *graph.StoryletNode) {
	if r.resolve == nil {
		r.fail(events, CodeUnresolvedStorylet, fmt.Sprintf("node %s references graph %d but no resolver is configured", n.ID, n.TargetGraphID))
		return
	}
	target := r.resolve(n.TargetGraphID)
	if target == nil {
		r.fail(events, CodeMissingGraph, fmt.Sprintf("Referenced graph %d not found", n.TargetGraphID))
		return
	}
	if n.Mode == graph.ModeDetourReturn {
		r.returns = append(r.returns, returnPoint{graph: r.graph, nodeID: n.ReturnToNodeID})
	}
	r.graph = target
	if target.StartNodeID == "" {
		r.fail(events, CodeMissingNode, fmt.Sprintf("graph %d has no start node", target.ID))
		return
	}
	r.moveTo(events, target.StartNodeID)
}

// end terminates the session, or resumes a pending detour return.
func (r *Runner) end(events *[]Event, exitKey string) {
	for len(r.returns) > 0 {
		rp := r.returns[len(r.returns)-1]
		r.returns = r.returns[:len(r.returns)-1]
		r.graph = rp.graph
		if rp.nodeID != "" {
			r.status = StatusRunning
			r.moveTo(events, rp.nodeID)
			return
		}
	}
	ev := r.event(EventEnd, r.current)
	ev.ExitKey = exitKey
	*events = append(*events, ev)
	r.status = StatusEnded
}

// applyFlags applies flag writes and reports them with one SET_VARIABLES
// event carrying the post-write values.
func (r *Runner) applyFlags(events *[]Event, writes []vars.FlagWrite) {
	if len(writes) == 0 {
		return
	}
	r.store.ApplyAll(writes)
	ev := r.event(EventSetVariables, r.current)
	ev.Variables = make(map[string]interface{}, len(writes))
	for _, w := range writes {
		if v, ok := r.store.Get(w.Flag); ok {
			ev.Variables[w.Flag] = v
		}
	}
	*events = append(*events, ev)
}

// rejected reports an illegal transition without poisoning the session.
func (r *Runner) rejected(op string) []Event {
	ev := r.event(EventError, r.current)
	ev.Code = CodeInvalidState
	ev.Message = fmt.Sprintf("%s is not valid while %s", op, r.status)
	return []Event{ev}
}

// fail emits a fatal ERROR event. The session is non-recoverable; the
// caller must discard it.
func (r *Runner) fail(events *[]Event, code, message string) {
	ev := r.event(EventError, r.current)
	ev.Code = code
	ev.Message = message
	*events = append(*events, ev)
	r.status = StatusError
}
