// Package state holds the canonical mutable record threaded through the
// agent loop: conversation history, document items, plan tracker and the
// bookkeeping fields used to steer the next model call.
package state

import (
	"encoding/json"

	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/huandu/go-clone"
)

// ItemType is the closed set of document item types.
type ItemType string

const (
	ItemTypeProject ItemType = "project"
	ItemTypeEntity  ItemType = "entity"
	ItemTypeNote    ItemType = "note"
	ItemTypeChart   ItemType = "chart"
)

// ItemTypes lists every valid item type, in prompt order.
var ItemTypes = []ItemType{ItemTypeProject, ItemTypeEntity, ItemTypeNote, ItemTypeChart}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	for _, it := range ItemTypes {
		if it == t {
			return true
		}
	}
	return false
}

// Item is a document entry. Data holds the type-specific payload
// (checklist for projects, tags for entities, text for notes, metrics for charts).
type Item struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Subtitle string         `json:"subtitle" yaml:"subtitle"`
	Type     ItemType       `json:"type" yaml:"type"`
	Data     map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// StepStatus is the status of a single plan step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepBlocked    StepStatus = "blocked"
	StepFailed     StepStatus = "failed"
)

// Valid reports whether s is a known step status.
func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepInProgress, StepCompleted, StepBlocked, StepFailed:
		return true
	}
	return false
}

// Terminal reports whether a step in status s needs no further work.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepFailed
}

// Step is one entry of the plan checklist.
type Step struct {
	Title  string     `json:"title" yaml:"title"`
	Status StepStatus `json:"status" yaml:"status"`
	Note   string     `json:"note,omitempty" yaml:"note,omitempty"`
}

// PlanStatus is the overall plan status. The zero value means no plan is active.
type PlanStatus string

const (
	PlanStatusNone       PlanStatus = ""
	PlanStatusInProgress PlanStatus = "in_progress"
	PlanStatusCompleted  PlanStatus = "completed"
)

// NoStep is the CurrentStepIndex value when no step is active.
const NoStep = -1

// CloneSteps returns an independent copy of steps.
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// StepsEqual compares two step lists field by field.
func StepsEqual(a, b []Step) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CopilotKit is the envelope through which the client forwards its actions.
type CopilotKit struct {
	Actions []any `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// State is the full mutable record threaded through one external request.
type State struct {
	Messages []turns.Message `json:"messages" yaml:"messages"`

	// Tools and CopilotKit.Actions are the frontend tool specs supplied by the
	// caller, either decoded JSON/YAML objects or typed tools.Spec values.
	Tools      []any      `json:"tools,omitempty" yaml:"tools,omitempty"`
	CopilotKit CopilotKit `json:"copilotkit,omitempty" yaml:"copilotkit,omitempty"`

	Items             []Item `json:"items" yaml:"items"`
	GlobalTitle       string `json:"globalTitle" yaml:"globalTitle"`
	GlobalDescription string `json:"globalDescription" yaml:"globalDescription"`

	PlanSteps        []Step     `json:"planSteps" yaml:"planSteps"`
	CurrentStepIndex int        `json:"currentStepIndex" yaml:"currentStepIndex"`
	PlanStatus       PlanStatus `json:"planStatus" yaml:"planStatus"`

	LastAction       string `json:"lastAction" yaml:"lastAction"`
	ItemsCreated     int    `json:"itemsCreated" yaml:"itemsCreated"`
	LastToolGuidance string `json:"__last_tool_guidance,omitempty" yaml:"__last_tool_guidance,omitempty"`
	ChosenItemID     string `json:"chosen_item_id,omitempty" yaml:"chosen_item_id,omitempty"`

	Interrupt *Interrupt               `json:"interrupt,omitempty" yaml:"interrupt,omitempty"`
	Resume    map[InterruptType]Answer `json:"resume,omitempty" yaml:"resume,omitempty"`
}

// New returns an empty state with no active plan step.
func New() *State {
	return &State{CurrentStepIndex: NoStep}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	return clone.Clone(s).(*State)
}

// FindItem looks up an item by id.
func (s *State) FindItem(id string) (Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// UnmarshalJSON fills in CurrentStepIndex = NoStep when the field is absent.
func (s *State) UnmarshalJSON(b []byte) error {
	type alias State
	a := alias{CurrentStepIndex: NoStep}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*s = State(a)
	return nil
}
