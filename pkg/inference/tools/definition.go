package tools

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// ErrInvalidArguments is returned when a call's arguments do not match the
// tool's schema or do not decode into its input type.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// ToolDefinition represents a backend tool the model can call.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
	Function    ToolFunc           `json:"-"`

	validator *gojsonschema.Schema
}

// ToolFunc wraps the actual function with a pre-compiled executor.
type ToolFunc struct {
	Fn         interface{}                                        `json:"-"`
	executor   func(context.Context, []byte) (interface{}, error) `json:"-"`
	inputType  reflect.Type                                       `json:"-"`
	outputType reflect.Type                                       `json:"-"`
}

// NewToolFromFunc creates a ToolDefinition from a Go function.
//
// Supported signatures are func() R, func(In) R, func(context.Context) R and
// func(context.Context, In) R, where R is either a result or (result, error).
func NewToolFromFunc(name, description string, fn interface{}) (*ToolDefinition, error) {
	funcType := reflect.TypeOf(fn)
	if funcType == nil || funcType.Kind() != reflect.Func {
		return nil, errors.New("provided value is not a function")
	}

	if funcType.NumOut() == 0 || funcType.NumOut() > 2 {
		return nil, errors.New("function must return (result) or (result, error)")
	}
	if funcType.NumOut() == 2 {
		errorType := reflect.TypeOf((*error)(nil)).Elem()
		if !funcType.Out(1).Implements(errorType) {
			return nil, errors.New("second return value must be an error")
		}
	}

	inType, err := inputTypeOf(funcType)
	if err != nil {
		return nil, err
	}

	schema, err := generateSchema(inType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate schema")
	}

	td := &ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  schema,
		Function: ToolFunc{
			Fn:         fn,
			executor:   createExecutor(fn, funcType, inType),
			inputType:  inType,
			outputType: funcType.Out(0),
		},
	}
	params, err := td.ParametersMap()
	if err != nil {
		return nil, err
	}
	td.validator, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(params))
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema of %s", name)
	}
	return td, nil
}

// ValidateArguments checks JSON-encoded call arguments against the parameter
// schema. Violations are reported wrapped in ErrInvalidArguments.
func (td *ToolDefinition) ValidateArguments(args []byte) error {
	if td.validator == nil {
		return nil
	}
	res, err := td.validator.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return errors.Wrap(ErrInvalidArguments, err.Error())
	}
	if res.Valid() {
		return nil
	}
	descs := make([]string, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		descs = append(descs, desc.String())
	}
	return errors.Wrap(ErrInvalidArguments, strings.Join(descs, "; "))
}

// ParametersMap returns the parameter schema as a plain JSON object.
func (td *ToolDefinition) ParametersMap() (map[string]any, error) {
	if td.Parameters == nil {
		return map[string]any{"type": "object"}, nil
	}
	b, err := json.Marshal(td.Parameters)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal schema of %s", td.Name)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrapf(err, "decode schema of %s", td.Name)
	}
	return out, nil
}

// Spec returns the definition in the OpenAI function shape.
func (td *ToolDefinition) Spec() (FunctionSpec, error) {
	params, err := td.ParametersMap()
	if err != nil {
		return FunctionSpec{}, err
	}
	return NewFunctionSpec(td.Name, td.Description, params), nil
}

// ExecuteWithContext calls the tool function with JSON-encoded arguments.
func (tf *ToolFunc) ExecuteWithContext(ctx context.Context, args []byte) (interface{}, error) {
	if tf.executor == nil {
		return nil, errors.New("tool function not properly initialized")
	}
	return tf.executor(ctx, args)
}

// ToolResult is the outcome of one executed tool call.
type ToolResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Result   interface{}   `json:"result"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Content renders the result as tool message content: strings verbatim,
// everything else as JSON.
func (r ToolResult) Content() (string, error) {
	if r.Error != "" {
		return "Error: " + r.Error, nil
	}
	switch v := r.Result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	b, err := json.Marshal(r.Result)
	if err != nil {
		return "", errors.Wrapf(err, "marshal result of %s", r.Name)
	}
	return string(b), nil
}

func inputTypeOf(funcType reflect.Type) (reflect.Type, error) {
	switch funcType.NumIn() {
	case 0:
		return nil, nil
	case 1:
		if funcType.In(0) == contextType {
			return nil, nil
		}
		return funcType.In(0), nil
	case 2:
		if funcType.In(0) != contextType {
			return nil, errors.New("two-arg tool function must be (context.Context, Input)")
		}
		return funcType.In(1), nil
	default:
		return nil, errors.New("function must take exactly one parameter (Input) or (context.Context, Input)")
	}
}

// generateSchema creates a JSON schema for the input type, inlined so that
// providers without $ref support accept it.
func generateSchema(inType reflect.Type) (*jsonschema.Schema, error) {
	if inType == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}

	inputInstance := reflect.New(inType).Elem().Interface()
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	schema := reflector.Reflect(inputInstance)
	schema.Version = ""

	if schema.Type == "" && schema.Ref == "" {
		schema.Type = "object"
	}

	return schema, nil
}

func createExecutor(fn interface{}, funcType reflect.Type, inType reflect.Type) func(context.Context, []byte) (interface{}, error) {
	funcValue := reflect.ValueOf(fn)
	takesContext := funcType.NumIn() > 0 && funcType.In(0) == contextType

	return func(ctx context.Context, args []byte) (interface{}, error) {
		log.Debug().
			Str("func_type", funcType.String()).
			Int("args_len", len(args)).
			Msg("tools: executing")

		in := make([]reflect.Value, 0, 2)
		if takesContext {
			in = append(in, reflect.ValueOf(ctx))
		}
		if inType != nil {
			input := reflect.New(inType).Interface()
			if len(args) > 0 {
				if err := json.Unmarshal(args, input); err != nil {
					log.Debug().Err(err).Str("input_type", inType.String()).Str("args", string(args)).Msg("tools: failed to unmarshal arguments")
					return nil, errors.Wrap(ErrInvalidArguments, err.Error())
				}
			}
			in = append(in, reflect.ValueOf(input).Elem())
		}

		return extractResults(funcValue.Call(in))
	}
}

// extractResults extracts the result and error from function call results
func extractResults(results []reflect.Value) (interface{}, error) {
	switch len(results) {
	case 1:
		return results[0].Interface(), nil
	case 2:
		result := results[0].Interface()
		errInterface := results[1].Interface()
		if errInterface == nil {
			return result, nil
		}
		if err, ok := errInterface.(error); ok {
			return result, err
		}
		return result, errors.Errorf("unexpected error type: %T", errInterface)
	}
	return nil, errors.Errorf("unexpected number of return values: %d", len(results))
}
