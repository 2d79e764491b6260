package state

import (
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/huandu/go-clone"
)

// Update is a sparse delta produced by one hop of the agent loop.
//
// Nil pointer fields are left untouched when the update is applied; Messages
// are appended. Callers merge updates sparingly so that a hop never clobbers
// fields it did not mean to change.
type Update struct {
	Messages []turns.Message `json:"messages,omitempty"`

	Items             *[]Item `json:"items,omitempty"`
	GlobalTitle       *string `json:"globalTitle,omitempty"`
	GlobalDescription *string `json:"globalDescription,omitempty"`
	ItemsCreated      *int    `json:"itemsCreated,omitempty"`
	LastAction        *string `json:"lastAction,omitempty"`

	PlanSteps        *[]Step     `json:"planSteps,omitempty"`
	CurrentStepIndex *int        `json:"currentStepIndex,omitempty"`
	PlanStatus       *PlanStatus `json:"planStatus,omitempty"`

	// LastToolGuidance set to a pointer to "" clears the guidance.
	LastToolGuidance *string `json:"__last_tool_guidance,omitempty"`
	ChosenItemID     *string `json:"chosen_item_id,omitempty"`

	Interrupt      *Interrupt               `json:"interrupt,omitempty"`
	ClearInterrupt bool                     `json:"-"`
	Resume         map[InterruptType]Answer `json:"resume,omitempty"`
}

// IsEmpty reports whether applying u would change nothing.
func (u Update) IsEmpty() bool {
	return len(u.Messages) == 0 &&
		u.Items == nil && u.GlobalTitle == nil && u.GlobalDescription == nil &&
		u.ItemsCreated == nil && u.LastAction == nil &&
		u.PlanSteps == nil && u.CurrentStepIndex == nil && u.PlanStatus == nil &&
		u.LastToolGuidance == nil && u.ChosenItemID == nil &&
		u.Interrupt == nil && !u.ClearInterrupt && len(u.Resume) == 0
}

// Merge returns u overlaid with other: fields set on other win and messages
// are concatenated in order.
func (u Update) Merge(other Update) Update {
	out := u
	if len(other.Messages) > 0 {
		out.Messages = append(append([]turns.Message{}, u.Messages...), other.Messages...)
	}
	if other.Items != nil {
		out.Items = other.Items
	}
	if other.GlobalTitle != nil {
		out.GlobalTitle = other.GlobalTitle
	}
	if other.GlobalDescription != nil {
		out.GlobalDescription = other.GlobalDescription
	}
	if other.ItemsCreated != nil {
		out.ItemsCreated = other.ItemsCreated
	}
	if other.LastAction != nil {
		out.LastAction = other.LastAction
	}
	if other.PlanSteps != nil {
		out.PlanSteps = other.PlanSteps
	}
	if other.CurrentStepIndex != nil {
		out.CurrentStepIndex = other.CurrentStepIndex
	}
	if other.PlanStatus != nil {
		out.PlanStatus = other.PlanStatus
	}
	if other.LastToolGuidance != nil {
		out.LastToolGuidance = other.LastToolGuidance
	}
	if other.ChosenItemID != nil {
		out.ChosenItemID = other.ChosenItemID
	}
	if other.Interrupt != nil {
		out.Interrupt = other.Interrupt
		out.ClearInterrupt = false
	}
	if other.ClearInterrupt {
		out.Interrupt = nil
		out.ClearInterrupt = true
	}
	if len(other.Resume) > 0 {
		merged := make(map[InterruptType]Answer, len(u.Resume)+len(other.Resume))
		for k, v := range u.Resume {
			merged[k] = v
		}
		for k, v := range other.Resume {
			merged[k] = v
		}
		out.Resume = merged
	}
	return out
}

// Apply merges u into the authoritative state s.
func (s *State) Apply(u Update) {
	if len(u.Messages) > 0 {
		s.Messages = append(s.Messages, turns.CloneMessages(u.Messages)...)
	}
	if u.Items != nil {
		s.Items = clone.Clone(*u.Items).([]Item)
	}
	if u.GlobalTitle != nil {
		s.GlobalTitle = *u.GlobalTitle
	}
	if u.GlobalDescription != nil {
		s.GlobalDescription = *u.GlobalDescription
	}
	if u.ItemsCreated != nil {
		s.ItemsCreated = *u.ItemsCreated
	}
	if u.LastAction != nil {
		s.LastAction = *u.LastAction
	}
	if u.PlanSteps != nil {
		s.PlanSteps = CloneSteps(*u.PlanSteps)
	}
	if u.CurrentStepIndex != nil {
		s.CurrentStepIndex = *u.CurrentStepIndex
	}
	if u.PlanStatus != nil {
		s.PlanStatus = *u.PlanStatus
	}
	if u.LastToolGuidance != nil {
		s.LastToolGuidance = *u.LastToolGuidance
	}
	if u.ChosenItemID != nil {
		s.ChosenItemID = *u.ChosenItemID
	}
	if u.ClearInterrupt {
		s.Interrupt = nil
	}
	if u.Interrupt != nil {
		ir := *u.Interrupt
		s.Interrupt = &ir
	}
	if len(u.Resume) > 0 {
		if s.Resume == nil {
			s.Resume = map[InterruptType]Answer{}
		}
		for k, v := range u.Resume {
			s.Resume[k] = v
		}
	}
}

// Preserve returns the full shared-state bundle of s as an update, so a hop
// can hand every shared field back to the runtime unchanged.
func Preserve(s *State) Update {
	items := clone.Clone(s.Items).([]Item)
	if items == nil {
		items = []Item{}
	}
	steps := CloneSteps(s.PlanSteps)
	if steps == nil {
		steps = []Step{}
	}
	title := s.GlobalTitle
	description := s.GlobalDescription
	created := s.ItemsCreated
	lastAction := s.LastAction
	index := s.CurrentStepIndex
	status := s.PlanStatus
	return Update{
		Items:             &items,
		GlobalTitle:       &title,
		GlobalDescription: &description,
		ItemsCreated:      &created,
		LastAction:        &lastAction,
		PlanSteps:         &steps,
		CurrentStepIndex:  &index,
		PlanStatus:        &status,
	}
}

// Ptr returns a pointer to v. Handy when building updates by hand.
func Ptr[T any](v T) *T {
	return &v
}
