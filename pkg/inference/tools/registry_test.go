package tools

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func fn(name string) map[string]any {
	return map[string]any{"type": "function", "function": map[string]any{"name": name}}
}

func names(t *testing.T, specs []Spec) []string {
	ret := make([]string, 0, len(specs))
	for _, s := range specs {
		n, err := s.ResolveName()
		require.NoError(t, err)
		ret = append(ret, n)
	}
	return ret
}

func TestClassify(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	require.Len(t, FrontendAllowList, 26)

	require.Equal(t, ClassBackend, r.ClassifyName("set_plan"))
	require.Equal(t, ClassFrontend, r.ClassifyName("createItem"))
	require.Equal(t, ClassUnknown, r.ClassifyName("launchMissiles"))
	require.Equal(t, ClassFrontend, r.Classify(ActionSpec{Name: "deleteItem"}))
	require.Equal(t, ClassUnknown, r.Classify(RawSpec{}))
	require.True(t, r.IsBackend("get_weather"))
	require.False(t, r.IsBackend("setGlobalTitle"))
}

func TestPrepareFrontendTools_OrderDedupAllowList(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	tools := []any{
		fn("setGlobalTitle"),
		map[string]any{"description": "no name"},
		fn("notAllowed"),
		fn("createItem"),
	}
	actions := []any{
		ActionSpec{Name: "createItem", Description: "duplicate, dropped"},
		map[string]any{"name": "deleteItem"},
		fn("setGlobalTitle"),
	}
	out := r.PrepareFrontendTools(tools, actions)
	require.Equal(t, []string{"setGlobalTitle", "createItem", "deleteItem"}, names(t, out))

	// first occurrence wins
	require.IsType(t, FunctionSpec{}, out[1])
}

func TestPrepareFrontendTools_Cap(t *testing.T) {
	allow := make([]string, 0, 200)
	tools := make([]any, 0, 200)
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("tool%03d", i)
		allow = append(allow, name)
		tools = append(tools, fn(name))
	}
	r, err := NewRegistry(WithFrontendAllowList(allow...))
	require.NoError(t, err)

	out := r.PrepareFrontendTools(tools, nil)
	require.Len(t, out, MaxFrontendTools)
	require.Equal(t, "tool000", names(t, out)[0])
	require.Equal(t, "tool109", names(t, out)[109])

	r, err = NewRegistry(WithFrontendAllowList(allow...), WithMaxFrontendTools(5))
	require.NoError(t, err)
	require.Len(t, r.PrepareFrontendTools(tools, nil), 5)
}

func TestNewRegistryRejectsOverlap(t *testing.T) {
	_, err := NewRegistry(WithFrontendAllowList("set_plan"))
	require.Error(t, err)
}

func TestBackendSpecs(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	specs, err := r.BackendSpecs()
	require.NoError(t, err)
	require.Equal(t, []string{ToolGetWeather, ToolSetPlan, ToolUpdatePlanProgress, ToolCompletePlan}, names(t, specs))
}
