package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ActionSpec is one criteria-gated action attached to a stage or a payment purpose.
// Type is a free label; ConfigType is the dispatch key.
type ActionSpec struct {
	Type       string
	ConfigType ConfigType
	Config     ActionConfig
	Criteria   []Criterion
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}

	return v
}

// ActionSpecFromMap builds an action spec from its configuration map.
func ActionSpecFromMap(raw map[string]any) (ActionSpec, error) {
	actionType, _ := raw["type"].(string)

	configTypeRaw, ok := raw["config_type"].(string)
	if !ok {
		return ActionSpec{}, fmt.Errorf("action %q: config_type must be a string: %w", actionType, ErrConfiguration)
	}

	configType := ConfigType(configTypeRaw)

	configMap, _ := raw["config"].(map[string]any)
	if configMap == nil {
		configMap = map[string]any{}
	}

	config, err := ActionConfigFromMap(configType, configMap)
	if err != nil {
		return ActionSpec{}, fmt.Errorf("action %q: %w", actionType, err)
	}

	criteria, err := CriteriaFromList(raw["criteria"])
	if err != nil {
		return ActionSpec{}, fmt.Errorf("action %q: %w", actionType, err)
	}

	return ActionSpec{
		Type:       actionType,
		ConfigType: configType,
		Config:     config,
		Criteria:   criteria,
	}, nil
}

// ToMap returns the configuration map form of the action spec.
func (a ActionSpec) ToMap() map[string]any {
	config := map[string]any{}
	if a.Config != nil {
		config = a.Config.ToMap()
	}

	return map[string]any{
		"type":        a.Type,
		"config_type": string(a.ConfigType),
		"config":      config,
		"criteria":    CriteriaToList(a.Criteria),
	}
}

// ActionSpecsFromList builds an ordered action list from configuration data.
func ActionSpecsFromList(raw any) ([]ActionSpec, error) {
	if raw == nil {
		return nil, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("actions must be a list, got %T: %w", raw, ErrConfiguration)
	}

	actions := make([]ActionSpec, 0, len(list))

	for i, item := range list {
		itemMap, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("action %d must be an object: %w", i, ErrConfiguration)
		}

		action, err := ActionSpecFromMap(itemMap)
		if err != nil {
			return nil, err
		}

		actions = append(actions, action)
	}

	return actions, nil
}

// Validate returns every problem with the action spec; an empty result means the spec is valid.
func (a ActionSpec) Validate() []ValidationError {
	var errs []ValidationError

	if !isKnownConfigType(a.ConfigType) {
		errs = append(errs, ValidationError{
			Field:   "config_type",
			Message: fmt.Sprintf("unknown config type %q", a.ConfigType),
		})
	}

	switch {
	case a.Config == nil:
		errs = append(errs, ValidationError{Field: "config", Message: "is required"})
	case a.Config.ConfigType() != a.ConfigType:
		errs = append(errs, ValidationError{
			Field:   "config",
			Message: fmt.Sprintf("%s config given for config type %q", a.Config.ConfigType(), a.ConfigType),
		})
	default:
		errs = append(errs, validateConfig(a.Config)...)
	}

	for i, criterion := range a.Criteria {
		for _, criterionErr := range criterion.Validate() {
			criterionErr.Field = fmt.Sprintf("criteria[%d].%s", i, criterionErr.Field)
			errs = append(errs, criterionErr)
		}
	}

	return errs
}

// Check returns a ValidationErrors error when the action spec is invalid.
func (a ActionSpec) Check() error {
	errs := a.Validate()
	if len(errs) == 0 {
		return nil
	}

	subject := "action"
	if a.Type != "" {
		subject = fmt.Sprintf("action %q", a.Type)
	}

	return &ValidationErrors{Subject: subject, Errors: errs}
}

// Label returns Type, falling back to the config type.
func (a ActionSpec) Label() string {
	if a.Type != "" {
		return a.Type
	}

	return string(a.ConfigType)
}

func validateConfig(config ActionConfig) []ValidationError {
	err := configValidator.Struct(config)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []ValidationError{{Field: "config", Message: err.Error()}}
	}

	errs := make([]ValidationError, 0, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		errs = append(errs, ValidationError{
			Field:   "config." + fieldErr.Field(),
			Message: validationMessage(fieldErr),
		})
	}

	return errs
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		return "must not be empty"
	default:
		return "failed " + fieldErr.Tag() + " validation"
	}
}

func isKnownConfigType(configType ConfigType) bool {
	for _, known := range ConfigTypes {
		if known == configType {
			return true
		}
	}

	return false
}
