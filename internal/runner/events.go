package runner

import (
	"time"

	"github.com/storyloom/server/internal/graph"
)

// EventType tags the discrete playback events a runner emits.
type EventType string

const (
	EventEnterNode    EventType = "ENTER_NODE"
	EventLine         EventType = "LINE"
	EventChoices      EventType = "CHOICES"
	EventSetVariables EventType = "SET_VARIABLES"
	EventWaitForUser  EventType = "WAIT_FOR_USER"
	EventEnd          EventType = "END"
	EventError        EventType = "ERROR"
)

// Error codes carried by ERROR events.
const (
	CodeInvalidChoice      = "INVALID_CHOICE"
	CodeInvalidState       = "INVALID_STATE"
	CodeMissingNode        = "MISSING_NODE"
	CodeMissingGraph       = "MISSING_GRAPH"
	CodeUnresolvedStorylet = "UNRESOLVED_STORYLET"
)

// Event is one unit of the runner's output stream. The event stream is the
// only channel by which the interpreter communicates progress.
type Event struct {
	Type      EventType `json:"type"`
	GraphID   int64     `json:"graphId"`
	NodeID    string    `json:"nodeId,omitempty"`
	Timestamp int64     `json:"timestamp"` // unix milliseconds

	Speaker   string                 `json:"speaker,omitempty"`
	Text      string                 `json:"text,omitempty"`
	Choices   []graph.Choice         `json:"choices,omitempty"`
	Variables map[string]interface{} `json:"variables,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	ExitKey   string                 `json:"exitKey,omitempty"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

func (r *Runner) event(t EventType, nodeID string) Event {
	return Event{
		Type:      t,
		GraphID:   r.graph.ID,
		NodeID:    nodeID,
		Timestamp: time.Now().UnixMilli(),
	}
}
