package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeSpecPicksRepresentation(t *testing.T) {
	spec, err := DecodeSpec(json.RawMessage(`{"type":"function","function":{"name":"setGlobalTitle","description":"d","parameters":{"type":"object"}}}`))
	require.NoError(t, err)
	require.IsType(t, FunctionSpec{}, spec)
	name, err := spec.ResolveName()
	require.NoError(t, err)
	require.Equal(t, "setGlobalTitle", name)

	spec, err = DecodeSpec(json.RawMessage(`{"name":"createItem","parameters":[{"name":"type","type":"string","description":"card type"},{"name":"name","required":false}]}`))
	require.NoError(t, err)
	require.IsType(t, ActionSpec{}, spec)
	args, err := spec.ResolveArgs()
	require.NoError(t, err)
	require.Equal(t, "object", args["type"])
	require.Equal(t, []any{"type"}, args["required"])
	require.Contains(t, args["properties"], "name")

	spec, err = DecodeSpec(json.RawMessage(`{"function":{"description":"no name"},"name":"deleteItem"}`))
	require.NoError(t, err)
	require.IsType(t, RawSpec{}, spec)
	name, err = spec.ResolveName()
	require.NoError(t, err)
	require.Equal(t, "deleteItem", name)
}

func TestResolveNameSkipReasons(t *testing.T) {
	for _, v := range []any{
		nil,
		map[string]any{},
		map[string]any{"name": ""},
		map[string]any{"function": map[string]any{"name": "  "}},
		"not json",
		42,
	} {
		_, err := ResolveName(v)
		require.Error(t, err, "%v", v)
	}

	name, err := ResolveName(ActionSpec{Name: "setItemName"})
	require.NoError(t, err)
	require.Equal(t, "setItemName", name)

	name, err = ResolveName(map[string]any{"function": map[string]any{"name": "setNoteField1"}, "name": "other"})
	require.NoError(t, err)
	require.Equal(t, "setNoteField1", name)
}
