// Package plan projects the plan tracker forward from the tool-call requests
// of a model response, before any tool has run.
package plan

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-go-golems/canvas-agent/pkg/inference/tools"
	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrBadStepIndex = errors.New("step_index is not an integer in range")
	ErrBadStatus    = errors.New("status is not a known step status")
	ErrBadSteps     = errors.New("steps is not a list")
)

// Project returns the plan fields that change when the tool calls on
// response take effect, applied in request order. Calls whose arguments do
// not make sense are skipped. The returned update is empty when nothing
// changes; steps is never modified.
func Project(response *turns.Message, steps []state.Step, index int, status state.PlanStatus) state.Update {
	u, skipped := ProjectWithSkips(response, steps, index, status)
	for _, err := range skipped {
		log.Debug().Err(err).Msg("plan projection skipped a tool call")
	}
	return u
}

// ProjectWithSkips is Project that also returns why individual calls were ignored.
func ProjectWithSkips(response *turns.Message, steps []state.Step, index int, status state.PlanStatus) (state.Update, []error) {
	if response == nil || len(response.ToolCalls) == 0 {
		return state.Update{}, nil
	}

	p := projection{
		steps:  state.CloneSteps(steps),
		index:  index,
		status: status,
	}
	var skipped []error
	for _, tc := range response.ToolCalls {
		args, err := tc.Arguments()
		if err != nil {
			// unparseable arguments read as an empty object
			args = map[string]any{}
		}
		if err := p.apply(tc.Name, args); err != nil {
			skipped = append(skipped, errors.Wrapf(err, "%s (%s)", tc.Name, tc.ID))
		}
	}

	var u state.Update
	if !state.StepsEqual(p.steps, steps) {
		newSteps := p.steps
		if newSteps == nil {
			newSteps = []state.Step{}
		}
		u.PlanSteps = &newSteps
	}
	if p.index != index {
		u.CurrentStepIndex = state.Ptr(p.index)
	}
	if p.status != status {
		u.PlanStatus = state.Ptr(p.status)
	}
	return u, skipped
}

type projection struct {
	steps  []state.Step
	index  int
	status state.PlanStatus
}

func (p *projection) apply(name string, args map[string]any) error {
	switch name {
	case tools.ToolSetPlan:
		raw, ok := args["steps"]
		if !ok || raw == nil {
			p.steps = []state.Step{}
			return nil
		}
		list, ok := raw.([]any)
		if !ok {
			return ErrBadSteps
		}
		steps := make([]state.Step, 0, len(list))
		for _, s := range list {
			title, ok := s.(string)
			if !ok {
				title = fmt.Sprint(s)
			}
			steps = append(steps, state.Step{Title: title, Status: state.StepPending})
		}
		p.steps = steps
		if len(steps) > 0 {
			p.steps[0].Status = state.StepInProgress
			p.index = 0
			p.status = state.PlanStatusInProgress
		}

	case tools.ToolUpdatePlanProgress:
		idx, ok := integral(args["step_index"])
		if !ok || idx < 0 || idx >= len(p.steps) {
			return ErrBadStepIndex
		}
		s, _ := args["status"].(string)
		newStatus := state.StepStatus(s)
		if !newStatus.Valid() {
			return ErrBadStatus
		}
		p.steps[idx].Status = newStatus
		if note, ok := args["note"].(string); ok && note != "" {
			p.steps[idx].Note = note
		}
		if newStatus == state.StepInProgress {
			p.index = idx
			p.status = state.PlanStatusInProgress
		}

	case tools.ToolCompletePlan:
		p.status = state.PlanStatusCompleted
		for i := range p.steps {
			p.steps[i].Status = state.StepCompleted
		}
	}
	return nil
}

// integral accepts JSON numbers with no fractional part.
func integral(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
