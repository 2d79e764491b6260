package tools

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	ToolGetWeather         = "get_weather"
	ToolSetPlan            = "set_plan"
	ToolUpdatePlanProgress = "update_plan_progress"
	ToolCompletePlan       = "complete_plan"
)

type GetWeatherInput struct {
	Location string `json:"location" jsonschema:"required,description=The location to get the weather for"`
}

func getWeather(in GetWeatherInput) string {
	return fmt.Sprintf("The weather for %s is 70 degrees.", in.Location)
}

type SetPlanInput struct {
	Steps []string `json:"steps" jsonschema:"required,description=Ordered step titles of the plan"`
}

type SetPlanResult struct {
	Initialized bool     `json:"initialized"`
	Steps       []string `json:"steps"`
}

func setPlan(in SetPlanInput) SetPlanResult {
	steps := in.Steps
	if steps == nil {
		steps = []string{}
	}
	return SetPlanResult{Initialized: true, Steps: steps}
}

type UpdatePlanProgressInput struct {
	StepIndex int     `json:"step_index" jsonschema:"required,description=Zero-based index of the step to update"`
	Status    string  `json:"status" jsonschema:"required,enum=pending,enum=in_progress,enum=completed,enum=blocked,enum=failed"`
	Note      *string `json:"note,omitempty" jsonschema:"oneof_type=string;null,description=Optional short note about the step"`
}

type UpdatePlanProgressResult struct {
	Updated bool    `json:"updated"`
	Index   int     `json:"index"`
	Status  string  `json:"status"`
	Note    *string `json:"note"`
}

func updatePlanProgress(in UpdatePlanProgressInput) UpdatePlanProgressResult {
	return UpdatePlanProgressResult{Updated: true, Index: in.StepIndex, Status: in.Status, Note: in.Note}
}

type CompletePlanResult struct {
	Completed bool `json:"completed"`
}

func completePlan() CompletePlanResult {
	return CompletePlanResult{Completed: true}
}

// DefaultBackendTools builds the server-side tools. Their results are pure
// values; the plan effects are projected by the router from the call arguments.
func DefaultBackendTools() ([]*ToolDefinition, error) {
	type entry struct {
		name, description string
		fn                interface{}
	}
	entries := []entry{
		{ToolGetWeather, "Get the weather for a given location.", getWeather},
		{ToolSetPlan, "Initialize a plan with step descriptions.", setPlan},
		{ToolUpdatePlanProgress, "Update a plan step's status and optionally add a note.", updatePlanProgress},
		{ToolCompletePlan, "Mark the plan as completed.", completePlan},
	}

	ret := make([]*ToolDefinition, 0, len(entries))
	for _, e := range entries {
		def, err := NewToolFromFunc(e.name, e.description, e.fn)
		if err != nil {
			return nil, errors.Wrapf(err, "backend tool %s", e.name)
		}
		ret = append(ret, def)
	}
	return ret, nil
}
