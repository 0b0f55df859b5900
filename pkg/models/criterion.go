package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Criterion is one field/operator/value rule. Value is always a list; a scalar in
// configuration becomes a one-element list.
type Criterion struct {
	Field    string `json:"field"    validate:"required" yaml:"field"`
	Operator string `json:"operator" validate:"required" yaml:"operator"`
	Value    Values `json:"value"                        yaml:"value"`
}

// Values holds criterion candidates and accepts either a scalar or a list when decoded.
type Values []any

func (v *Values) UnmarshalJSON(data []byte) error {
	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		*v = list

		return nil
	}

	var single any
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}

	*v = ToValues(single)

	return nil
}

func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var list []any
		if err := node.Decode(&list); err != nil {
			return err
		}

		*v = list

		return nil
	}

	var single any
	if err := node.Decode(&single); err != nil {
		return err
	}

	*v = ToValues(single)

	return nil
}

// ToValues coerces a configured value to a candidate list.
func ToValues(raw any) Values {
	switch typed := raw.(type) {
	case nil:
		return Values{}
	case []any:
		return Values(typed)
	case []string:
		values := make(Values, 0, len(typed))
		for _, s := range typed {
			values = append(values, s)
		}

		return values
	case Values:
		return typed
	default:
		return Values{raw}
	}
}

// CanonicalOperator returns the operator's canonical form or an UnsupportedOperatorError.
func (c Criterion) CanonicalOperator() (Operator, error) {
	op, ok := ParseOperator(c.Operator)
	if !ok {
		return "", &UnsupportedOperatorError{Field: c.Field, Operator: c.Operator}
	}

	return op, nil
}

// Validate checks the criterion's static invariants.
func (c Criterion) Validate() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.Field) == "" {
		errs = append(errs, ValidationError{Field: "field", Message: "is required"})
	}

	op, ok := ParseOperator(c.Operator)
	if !ok {
		errs = append(errs, ValidationError{Field: "operator", Message: fmt.Sprintf("unsupported operator %q", c.Operator)})
	}

	if op == OperatorRegex {
		for _, candidate := range c.Value {
			pattern, isString := candidate.(string)
			if !isString {
				continue
			}

			if _, err := CompilePattern(pattern); err != nil {
				errs = append(errs, ValidationError{
					Field:   "value",
					Message: fmt.Sprintf("invalid pattern %q: %v", pattern, err),
					Err:     &InvalidPatternError{Field: c.Field, Pattern: pattern, Err: err},
				})
			}
		}
	}

	return errs
}

// CriterionFromMap builds a criterion from its configuration map.
func CriterionFromMap(raw map[string]any) (Criterion, error) {
	field, ok := raw["field"].(string)
	if !ok {
		return Criterion{}, fmt.Errorf("criterion field must be a string: %w", ErrConfiguration)
	}

	operator, ok := raw["operator"].(string)
	if !ok {
		return Criterion{}, fmt.Errorf("criterion %q operator must be a string: %w", field, ErrConfiguration)
	}

	return Criterion{
		Field:    field,
		Operator: operator,
		Value:    ToValues(raw["value"]),
	}, nil
}

// ToMap returns the configuration map form of the criterion.
func (c Criterion) ToMap() map[string]any {
	value := make([]any, len(c.Value))
	copy(value, c.Value)

	return map[string]any{
		"field":    c.Field,
		"operator": c.Operator,
		"value":    value,
	}
}

// CriteriaFromList builds a criteria list from configuration data.
func CriteriaFromList(raw any) ([]Criterion, error) {
	if raw == nil {
		return nil, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("criteria must be a list, got %T: %w", raw, ErrConfiguration)
	}

	criteria := make([]Criterion, 0, len(list))

	for i, item := range list {
		itemMap, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("criterion %d must be an object: %w", i, ErrConfiguration)
		}

		criterion, err := CriterionFromMap(itemMap)
		if err != nil {
			return nil, err
		}

		criteria = append(criteria, criterion)
	}

	return criteria, nil
}

// CriteriaToList returns the configuration list form of a criteria list.
func CriteriaToList(criteria []Criterion) []any {
	list := make([]any, 0, len(criteria))
	for _, criterion := range criteria {
		list = append(list, criterion.ToMap())
	}

	return list
}
