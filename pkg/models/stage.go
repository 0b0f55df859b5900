package models

import (
	"fmt"
	"strings"
)

// Field is a form field a stage may require before it can be entered.
type Field struct {
	Name     string `json:"name"               validate:"required"`
	Label    string `json:"label,omitempty"`
	Required bool   `json:"required"`
}

// StageDefinition is a named state of an application with its allowed next states,
// field requirements and ordered criteria-gated actions. Immutable after load.
type StageDefinition struct {
	Name               string
	Label              string
	AllowedTransitions []string
	RequiredFields     []Field
	Actions            []ActionSpec
}

// AllowsTransitionTo reports whether stage is an allowed next state.
func (s StageDefinition) AllowsTransitionTo(stage string) bool {
	for _, allowed := range s.AllowedTransitions {
		if allowed == stage {
			return true
		}
	}

	return false
}

// IsTerminal reports whether the stage has no allowed next states.
func (s StageDefinition) IsTerminal() bool {
	return len(s.AllowedTransitions) == 0
}

// MissingFields returns the names of required fields that are absent or blank in record.
func (s StageDefinition) MissingFields(record Record) []string {
	var missing []string

	for _, field := range s.RequiredFields {
		if !field.Required {
			continue
		}

		value, ok := record.Lookup(field.Name)
		if !ok || IsBlank(value) {
			missing = append(missing, field.Name)
		}
	}

	return missing
}

// Check validates the stage and every embedded action. Any invalid action fails the whole stage.
func (s StageDefinition) Check() error {
	var errs []ValidationError

	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "is required"})
	}

	for i, field := range s.RequiredFields {
		if strings.TrimSpace(field.Name) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("required_fields[%d].name", i), Message: "is required"})
		}
	}

	for i, action := range s.Actions {
		for _, actionErr := range action.Validate() {
			actionErr.Field = fmt.Sprintf("actions[%d].%s", i, actionErr.Field)
			errs = append(errs, actionErr)
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return &ValidationErrors{Subject: fmt.Sprintf("stage %q", s.Name), Errors: errs}
}

// StageDefinitionFromMap builds a stage from its configuration map.
func StageDefinitionFromMap(raw map[string]any) (StageDefinition, error) {
	name, _ := raw["name"].(string)

	stage := StageDefinition{
		Name:  name,
		Label: stringValue(raw, "label"),
	}

	if transitions, ok := raw["allowed_transitions"]; ok && transitions != nil {
		list, ok := transitions.([]any)
		if !ok {
			return StageDefinition{}, fmt.Errorf("stage %q: allowed_transitions must be a list: %w", name, ErrConfiguration)
		}

		for _, item := range list {
			target, ok := item.(string)
			if !ok {
				return StageDefinition{}, fmt.Errorf("stage %q: allowed transition must be a string: %w", name, ErrConfiguration)
			}

			stage.AllowedTransitions = append(stage.AllowedTransitions, target)
		}
	}

	if fields, ok := raw["required_fields"]; ok && fields != nil {
		list, ok := fields.([]any)
		if !ok {
			return StageDefinition{}, fmt.Errorf("stage %q: required_fields must be a list: %w", name, ErrConfiguration)
		}

		for _, item := range list {
			stage.RequiredFields = append(stage.RequiredFields, fieldFromAny(item))
		}
	}

	actions, err := ActionSpecsFromList(raw["actions"])
	if err != nil {
		return StageDefinition{}, fmt.Errorf("stage %q: %w", name, err)
	}

	stage.Actions = actions

	return stage, nil
}

// ToMap returns the configuration map form of the stage.
func (s StageDefinition) ToMap() map[string]any {
	transitions := make([]any, 0, len(s.AllowedTransitions))
	for _, target := range s.AllowedTransitions {
		transitions = append(transitions, target)
	}

	fields := make([]any, 0, len(s.RequiredFields))
	for _, field := range s.RequiredFields {
		fields = append(fields, map[string]any{
			"name":     field.Name,
			"label":    field.Label,
			"required": field.Required,
		})
	}

	actions := make([]any, 0, len(s.Actions))
	for _, action := range s.Actions {
		actions = append(actions, action.ToMap())
	}

	return map[string]any{
		"name":                s.Name,
		"label":               s.Label,
		"allowed_transitions": transitions,
		"required_fields":     fields,
		"actions":             actions,
	}
}

// A required field may be configured as a bare name (required) or as an object.
func fieldFromAny(item any) Field {
	switch typed := item.(type) {
	case string:
		return Field{Name: typed, Required: true}
	case map[string]any:
		field := Field{
			Name:     stringValue(typed, "name"),
			Label:    stringValue(typed, "label"),
			Required: true,
		}
		if required, ok := typed["required"].(bool); ok {
			field.Required = required
		}

		return field
	default:
		return Field{}
	}
}
