package graph

import (
	"github.com/storyloom/server/internal/condition"
	"github.com/storyloom/server/internal/vars"
)

// NodeType tags the node variants of the dialogue graph.
type NodeType string

const (
	NodeCharacter   NodeType = "CHARACTER"
	NodePlayer      NodeType = "PLAYER"
	NodeConditional NodeType = "CONDITIONAL"
	NodeStorylet    NodeType = "STORYLET"
	NodeEnd         NodeType = "END"

	// Structural narrative nodes. The composition layer uses them for
	// hierarchy; the runner treats them as pass-through.
	NodeAct     NodeType = "ACT"
	NodeChapter NodeType = "CHAPTER"
	NodePage    NodeType = "PAGE"
)

// StoryletMode selects how control transfers into a referenced graph.
type StoryletMode string

const (
	ModeJump         StoryletMode = "JUMP"
	ModeDetourReturn StoryletMode = "DETOUR_RETURN"
)

// Node is the base interface for all graph nodes.
type Node interface {
	GetID() string
	Type() NodeType
	GetSetFlags() []vars.FlagWrite
	GetPresentation() map[string]interface{}
	GetRuntimeDirectives() map[string]interface{}
}

// BaseNode contains the fields every node variant carries. Presentation and
// RuntimeDirectives are editor/playback metadata: the runner never reads
// them and the script exporter strips them.
type BaseNode struct {
	ID                string                 `json:"id"`
	SetFlags          []vars.FlagWrite       `json:"setFlags,omitempty"`
	Presentation      map[string]interface{} `json:"presentation,omitempty"`
	RuntimeDirectives map[string]interface{} `json:"runtimeDirectives,omitempty"`
}

func (n *BaseNode) GetID() string                                { return n.ID }
func (n *BaseNode) GetSetFlags() []vars.FlagWrite                { return n.SetFlags }
func (n *BaseNode) GetPresentation() map[string]interface{}      { return n.Presentation }
func (n *BaseNode) GetRuntimeDirectives() map[string]interface{} { return n.RuntimeDirectives }

// CharacterNode is one spoken line.
type CharacterNode struct {
	BaseNode
	Speaker           string `json:"speaker"`
	Text              string `json:"text"`
	DefaultNextNodeID string `json:"defaultNextNodeId,omitempty"`
}

func (n *CharacterNode) Type() NodeType { return NodeCharacter }

// Choice is one player response option. An empty target terminates the
// thread when the choice is taken.
type Choice struct {
	ID           string                `json:"id"`
	Text         string                `json:"text"`
	TargetNodeID string                `json:"targetNodeId,omitempty"`
	Conditions   []condition.Condition `json:"conditions,omitempty"`
	SetFlags     []vars.FlagWrite      `json:"setFlags,omitempty"`
}

// PlayerNode presents an ordered list of choices.
type PlayerNode struct {
	BaseNode
	Choices []Choice `json:"choices"`
}

func (n *PlayerNode) Type() NodeType { return NodePlayer }

// BlockKind distinguishes the branches of a conditional node.
type BlockKind string

const (
	BlockIf     BlockKind = "if"
	BlockElseIf BlockKind = "elseif"
	BlockElse   BlockKind = "else"
)

// ConditionalBlock is one branch of a conditional node. Blocks evaluate in
// declaration order and the first satisfied one wins; only an "else" block
// may omit conditions.
type ConditionalBlock struct {
	ID         string                `json:"id"`
	Kind       BlockKind             `json:"type"`
	Conditions []condition.Condition `json:"conditions,omitempty"`
	Speaker    string                `json:"speaker,omitempty"`
	Content    string                `json:"content,omitempty"`
	NextNodeID string                `json:"nextNodeId,omitempty"`
	SetFlags   []vars.FlagWrite      `json:"setFlags,omitempty"`
}

// ConditionalNode branches on flag conditions.
type ConditionalNode struct {
	BaseNode
	Blocks []ConditionalBlock `json:"conditionalBlocks"`
}

func (n *ConditionalNode) Type() NodeType { return NodeConditional }

// StoryletNode calls into another graph. In DETOUR_RETURN mode control
// comes back to ReturnToNodeID when the called graph ends.
type StoryletNode struct {
	BaseNode
	TargetGraphID  int64        `json:"targetGraphId"`
	Mode           StoryletMode `json:"mode"`
	ReturnToNodeID string       `json:"returnToNodeId,omitempty"`
}

func (n *StoryletNode) Type() NodeType { return NodeStorylet }

// EndNode terminates a graph, optionally naming the exit taken.
type EndNode struct {
	BaseNode
	ExitKey string `json:"exitKey,omitempty"`
}

func (n *EndNode) Type() NodeType { return NodeEnd }

// SectionNode is a structural ACT/CHAPTER/PAGE marker.
type SectionNode struct {
	BaseNode
	Kind              NodeType `json:"-"`
	Title             string   `json:"title,omitempty"`
	DefaultNextNodeID string   `json:"defaultNextNodeId,omitempty"`
}

func (n *SectionNode) Type() NodeType { return n.Kind }

// DefaultNext returns the node id a plain advance continues to, or "" when
// the variant has no data-level successor of its own.
func DefaultNext(n Node) string {
	switch t := n.(type) {
	case *CharacterNode:
		return t.DefaultNextNodeID
	case *SectionNode:
		return t.DefaultNextNodeID
	case *StoryletNode:
		return t.ReturnToNodeID
	default:
		return ""
	}
}
