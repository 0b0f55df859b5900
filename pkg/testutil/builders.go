// Package testutil provides stage and action builders for tests.
package testutil

import (
	"github.com/dukex/regflow/pkg/models"
)

// CreateTestStage creates a stage with no transitions, fields or actions that can be overridden.
func CreateTestStage(name string, overrides ...func(*models.StageDefinition)) models.StageDefinition {
	stage := models.StageDefinition{Name: name}

	for _, override := range overrides {
		override(&stage)
	}

	return stage
}

func WithTransitions(targets ...string) func(*models.StageDefinition) {
	return func(s *models.StageDefinition) {
		s.AllowedTransitions = append(s.AllowedTransitions, targets...)
	}
}

// WithRequiredFields marks every name as a required field.
func WithRequiredFields(names ...string) func(*models.StageDefinition) {
	return func(s *models.StageDefinition) {
		for _, name := range names {
			s.RequiredFields = append(s.RequiredFields, models.Field{Name: name, Required: true})
		}
	}
}

func WithActions(actions ...models.ActionSpec) func(*models.StageDefinition) {
	return func(s *models.StageDefinition) {
		s.Actions = append(s.Actions, actions...)
	}
}

// EmailAction uses label as action type, template and subject.
func EmailAction(label string, criteria ...models.Criterion) models.ActionSpec {
	return models.ActionSpec{
		Type:       label,
		ConfigType: models.ConfigTypeEmail,
		Config:     models.EmailConfig{Template: label, Subject: label},
		Criteria:   criteria,
	}
}

func PaymentAction(purpose string, criteria ...models.Criterion) models.ActionSpec {
	return models.ActionSpec{
		Type:       "Invoice " + purpose,
		ConfigType: models.ConfigTypePayment,
		Config:     models.PaymentConfig{PaymentPurpose: purpose},
		Criteria:   criteria,
	}
}

// PortalEditAction sets field to value in the portal.
func PortalEditAction(field string, value any) models.ActionSpec {
	return models.ActionSpec{
		Type:       "Portal edit " + field,
		ConfigType: models.ConfigTypePortalEdit,
		Config:     models.PortalEditConfig{Values: map[string]any{"field": field, "value": value}},
	}
}

// Criterion builds a criterion from a scalar or list value.
func Criterion(field, operator string, value any) models.Criterion {
	return models.Criterion{Field: field, Operator: operator, Value: models.ToValues(value)}
}
