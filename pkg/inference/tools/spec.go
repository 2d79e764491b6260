package tools

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoToolName is the skip reason for a tool representation without a usable name.
var ErrNoToolName = errors.New("tool has no resolvable name")

// Spec is the accessor capability shared by every tool representation the
// caller may send: OpenAI function objects, CopilotKit actions and opaque
// decoded JSON maps.
type Spec interface {
	// ResolveName returns the tool name or ErrNoToolName.
	ResolveName() (string, error)
	// ResolveArgs returns the JSON schema of the tool's parameters.
	ResolveArgs() (map[string]any, error)
	// ResolveDescription returns the human description, possibly empty.
	ResolveDescription() string
}

// FunctionDef is the inner object of the OpenAI function tool shape.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// FunctionSpec is `{"type":"function","function":{name,description,parameters}}`.
type FunctionSpec struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

func NewFunctionSpec(name, description string, parameters map[string]any) FunctionSpec {
	return FunctionSpec{
		Type:     "function",
		Function: FunctionDef{Name: name, Description: description, Parameters: parameters},
	}
}

func (f FunctionSpec) ResolveName() (string, error) {
	return nonEmptyName(f.Function.Name)
}

func (f FunctionSpec) ResolveArgs() (map[string]any, error) {
	if f.Function.Parameters == nil {
		return emptyObjectSchema(), nil
	}
	return f.Function.Parameters, nil
}

func (f FunctionSpec) ResolveDescription() string {
	return f.Function.Description
}

// ActionParameter is one entry of a CopilotKit action parameter list.
type ActionParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Required    *bool  `json:"required,omitempty"`
}

// ActionSpec is a CopilotKit action `{name,description,parameters}`. Parameters
// is either a JSON schema object or a list of ActionParameter entries.
type ActionSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

func (a ActionSpec) ResolveName() (string, error) {
	return nonEmptyName(a.Name)
}

func (a ActionSpec) ResolveArgs() (map[string]any, error) {
	switch p := a.Parameters.(type) {
	case nil:
		return emptyObjectSchema(), nil
	case map[string]any:
		return p, nil
	case []ActionParameter:
		return schemaFromParameters(p), nil
	}
	b, err := json.Marshal(a.Parameters)
	if err != nil {
		return nil, errors.Wrapf(err, "action %s parameters", a.Name)
	}
	var params []ActionParameter
	if err := json.Unmarshal(b, &params); err != nil {
		return nil, errors.Wrapf(err, "action %s parameters", a.Name)
	}
	return schemaFromParameters(params), nil
}

func (a ActionSpec) ResolveDescription() string {
	return a.Description
}

// RawSpec is an arbitrary decoded JSON object. The name is looked up as
// function.name, then name.
type RawSpec map[string]any

func (r RawSpec) ResolveName() (string, error) {
	if fn, ok := r["function"].(map[string]any); ok {
		if name, ok := fn["name"].(string); ok && strings.TrimSpace(name) != "" {
			return name, nil
		}
	}
	if name, ok := r["name"].(string); ok {
		return nonEmptyName(name)
	}
	return "", ErrNoToolName
}

func (r RawSpec) ResolveArgs() (map[string]any, error) {
	if fn, ok := r["function"].(map[string]any); ok {
		if params, ok := fn["parameters"].(map[string]any); ok {
			return params, nil
		}
	}
	if r["parameters"] != nil {
		return ActionSpec{Parameters: r["parameters"]}.ResolveArgs()
	}
	return emptyObjectSchema(), nil
}

func (r RawSpec) ResolveDescription() string {
	if fn, ok := r["function"].(map[string]any); ok {
		if d, ok := fn["description"].(string); ok {
			return d
		}
	}
	d, _ := r["description"].(string)
	return d
}

// DecodeSpec picks the representation for a serialized tool.
func DecodeSpec(raw json.RawMessage) (Spec, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "decode tool spec")
	}
	if m == nil {
		return nil, ErrNoToolName
	}
	return specFromMap(m), nil
}

// SpecFrom adapts any supported tool value to a Spec.
func SpecFrom(v any) (Spec, error) {
	switch t := v.(type) {
	case nil:
		return nil, ErrNoToolName
	case Spec:
		return t, nil
	case map[string]any:
		return specFromMap(t), nil
	case json.RawMessage:
		return DecodeSpec(t)
	case []byte:
		return DecodeSpec(t)
	case string:
		return DecodeSpec(json.RawMessage(t))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "encode tool spec %T", v)
	}
	return DecodeSpec(b)
}

// ResolveName resolves the name of any supported tool value.
func ResolveName(v any) (string, error) {
	spec, err := SpecFrom(v)
	if err != nil {
		return "", err
	}
	return spec.ResolveName()
}

func specFromMap(m map[string]any) Spec {
	if fn, ok := m["function"].(map[string]any); ok {
		name, _ := fn["name"].(string)
		if name != "" {
			desc, _ := fn["description"].(string)
			params, _ := fn["parameters"].(map[string]any)
			return NewFunctionSpec(name, desc, params)
		}
	}
	if _, hasFunction := m["function"]; !hasFunction {
		if name, ok := m["name"].(string); ok && name != "" {
			desc, _ := m["description"].(string)
			return ActionSpec{Name: name, Description: desc, Parameters: m["parameters"]}
		}
	}
	return RawSpec(m)
}

func nonEmptyName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNoToolName
	}
	return name, nil
}

func emptyObjectSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func schemaFromParameters(params []ActionParameter) map[string]any {
	properties := map[string]any{}
	required := []any{}
	for _, p := range params {
		if p.Name == "" {
			continue
		}
		prop := map[string]any{"type": jsonType(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required == nil || *p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonType(t string) string {
	switch strings.ToLower(t) {
	case "number", "integer", "boolean", "object", "array", "string":
		return strings.ToLower(t)
	case "":
		return "string"
	}
	if strings.HasSuffix(t, "[]") {
		return "array"
	}
	return "string"
}
