package events

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeStart is published once when a turn begins.
	EventTypeStart EventType = "start"
	// EventTypeNodeUpdate carries the update a graph node produced.
	EventTypeNodeUpdate EventType = "node-update"

	// Model requested a tool call
	EventTypeToolCall EventType = "tool-call"

	// Execution-phase events (backend tools run locally)
	EventTypeToolCallExecute         EventType = "tool-call-execute"
	EventTypeToolCallExecutionResult EventType = "tool-call-execution-result"

	EventTypeInterrupt EventType = "interrupt"
	EventTypeFinal     EventType = "final"
	EventTypeError     EventType = "error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// store payload if the event was deserialized from JSON (see NewEventFromJson)
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

// SetPayload stores the raw JSON payload on the event implementation.
func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

var _ Event = &EventImpl{}

// EventMetadata correlates an event with the run, node and hop it came from.
type EventMetadata struct {
	ID      uuid.UUID `json:"message_id" yaml:"message_id"`
	RunID   string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	GraphID string    `json:"graph_id,omitempty" yaml:"graph_id,omitempty"`
	Node    string    `json:"node,omitempty" yaml:"node,omitempty"`
	Hop     int       `json:"hop,omitempty" yaml:"hop,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.RunID != "" {
		e.Str("run_id", em.RunID)
	}
	if em.GraphID != "" {
		e.Str("graph_id", em.GraphID)
	}
	if em.Node != "" {
		e.Str("node", em.Node)
	}
	if em.Hop != 0 {
		e.Int("hop", em.Hop)
	}
}

type EventStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventStart {
	return &EventStart{
		EventImpl: EventImpl{Type_: EventTypeStart, Metadata_: metadata},
	}
}

var _ Event = &EventStart{}

type EventNodeUpdate struct {
	EventImpl
	Node   string       `json:"node"`
	Update state.Update `json:"update"`
}

func NewNodeUpdateEvent(metadata EventMetadata, node string, update state.Update) *EventNodeUpdate {
	return &EventNodeUpdate{
		EventImpl: EventImpl{Type_: EventTypeNodeUpdate, Metadata_: metadata},
		Node:      node,
		Update:    update,
	}
}

var _ Event = &EventNodeUpdate{}

type ToolCall struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Input string `json:"input" yaml:"input"`
}

type ToolResult struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Result string `json:"result" yaml:"result"`
}

type EventToolCall struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
}

func NewToolCallEvent(metadata EventMetadata, toolCall ToolCall) *EventToolCall {
	return &EventToolCall{
		EventImpl: EventImpl{Type_: EventTypeToolCall, Metadata_: metadata},
		ToolCall:  toolCall,
	}
}

var _ Event = &EventToolCall{}

type EventToolCallExecute struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
}

func NewToolCallExecuteEvent(metadata EventMetadata, toolCall ToolCall) *EventToolCallExecute {
	return &EventToolCallExecute{
		EventImpl: EventImpl{Type_: EventTypeToolCallExecute, Metadata_: metadata},
		ToolCall:  toolCall,
	}
}

var _ Event = &EventToolCallExecute{}

type EventToolCallExecutionResult struct {
	EventImpl
	ToolResult ToolResult `json:"tool_result"`
}

func NewToolCallExecutionResultEvent(metadata EventMetadata, toolResult ToolResult) *EventToolCallExecutionResult {
	return &EventToolCallExecutionResult{
		EventImpl:  EventImpl{Type_: EventTypeToolCallExecutionResult, Metadata_: metadata},
		ToolResult: toolResult,
	}
}

var _ Event = &EventToolCallExecutionResult{}

type EventInterrupt struct {
	EventImpl
	Interrupt state.Interrupt `json:"interrupt"`
}

func NewInterruptEvent(metadata EventMetadata, interrupt state.Interrupt) *EventInterrupt {
	return &EventInterrupt{
		EventImpl: EventImpl{Type_: EventTypeInterrupt, Metadata_: metadata},
		Interrupt: interrupt,
	}
}

var _ Event = &EventInterrupt{}

// EventFinal carries the authoritative state at the end of a turn.
type EventFinal struct {
	EventImpl
	State *state.State `json:"state"`
}

func NewFinalEvent(metadata EventMetadata, st *state.State) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata},
		State:     st,
	}
}

var _ Event = &EventFinal{}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

var _ Event = &EventError{}

// NewEventFromJson decodes a serialized event into its typed form.
func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("empty event payload")
	}
	e.payload = b

	switch e.Type_ {
	case EventTypeStart:
		return decodeTyped[EventStart](e)
	case EventTypeNodeUpdate:
		return decodeTyped[EventNodeUpdate](e)
	case EventTypeToolCall:
		return decodeTyped[EventToolCall](e)
	case EventTypeToolCallExecute:
		return decodeTyped[EventToolCallExecute](e)
	case EventTypeToolCallExecutionResult:
		return decodeTyped[EventToolCallExecutionResult](e)
	case EventTypeInterrupt:
		return decodeTyped[EventInterrupt](e)
	case EventTypeFinal:
		return decodeTyped[EventFinal](e)
	case EventTypeError:
		return decodeTyped[EventError](e)
	}
	return e, nil
}

func decodeTyped[T any, PT interface {
	*T
	Event
	SetPayload([]byte)
}](e Event) (Event, error) {
	ret, ok := ToTypedEvent[T](e)
	if !ok {
		return nil, fmt.Errorf("could not cast event to %s", e.Type())
	}
	p := PT(ret)
	p.SetPayload(e.Payload())
	return p, nil
}

// ToTypedEvent re-decodes the raw payload of e into T.
func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil || ret == nil {
		return nil, false
	}
	return ret, true
}
