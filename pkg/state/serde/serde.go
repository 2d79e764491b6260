// Package serde loads and saves agent state fixtures as YAML or JSON.
package serde

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NormalizeState applies serde defaults without reordering anything: messages
// without an id get one, and a plan without steps has no active step.
func NormalizeState(s *state.State) {
	if s == nil {
		return
	}
	turns.EnsureIDs(s.Messages)
	for i := range s.Messages {
		m := &s.Messages[i]
		if m.Kind == "" {
			m.Kind = turns.KindHuman
		}
	}
	if len(s.PlanSteps) == 0 && s.PlanStatus == state.PlanStatusNone {
		s.CurrentStepIndex = state.NoStep
	}
}

// ToYAML marshals a state to YAML.
func ToYAML(s *state.State) ([]byte, error) {
	if s == nil {
		return []byte("{}\n"), nil
	}
	return yaml.Marshal(s)
}

// FromYAML unmarshals a state from YAML.
func FromYAML(b []byte) (*state.State, error) {
	s := state.New()
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, errors.Wrap(err, "decode state yaml")
	}
	NormalizeState(s)
	return s, nil
}

// FromJSON unmarshals a state from JSON. A body wrapped as {"input": {...}}
// is unwrapped first.
func FromJSON(b []byte) (*state.State, error) {
	var envelope struct {
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(b, &envelope); err == nil && len(envelope.Input) > 0 && strings.HasPrefix(strings.TrimSpace(string(envelope.Input)), "{") {
		b = envelope.Input
	}
	s := state.New()
	if err := json.Unmarshal(b, s); err != nil {
		return nil, errors.Wrap(err, "decode state json")
	}
	NormalizeState(s)
	return s, nil
}

// SaveStateYAML writes a state to a YAML file.
func SaveStateYAML(path string, s *state.State) error {
	data, err := ToYAML(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadState reads a state file; .json files are decoded as JSON, everything else as YAML.
func LoadState(path string) (*state.State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read state file %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FromJSON(b)
	}
	return FromYAML(b)
}
