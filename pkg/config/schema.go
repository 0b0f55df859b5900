package config

import (
	"github.com/dukex/regflow/pkg/models"
)

func criteriaSchema() map[string]any {
	return map[string]any{
		"type": []string{"array", "null"},
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"field":    map[string]any{"type": "string", "minLength": 1},
				"operator": map[string]any{"type": "string", "minLength": 1},
				"value":    map[string]any{},
			},
			"required":             []string{"field", "operator"},
			"additionalProperties": false,
		},
	}
}

func actionsSchema() map[string]any {
	configTypes := make([]string, 0, len(models.ConfigTypes))
	for _, configType := range models.ConfigTypes {
		configTypes = append(configTypes, string(configType))
	}

	return map[string]any{
		"type": []string{"array", "null"},
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type":        map[string]any{"type": "string"},
				"config_type": map[string]any{"type": "string", "enum": configTypes},
				"config":      map[string]any{"type": "object"},
				"criteria":    criteriaSchema(),
			},
			"required":             []string{"config_type", "config"},
			"additionalProperties": false,
		},
	}
}

// documentSchema describes one configuration file. Every section is optional so stages
// and payment settings can live in separate files. Action configs are checked
// afterwards against the schema of their executor factory.
func documentSchema() map[string]any {
	field := map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string", "minLength": 1},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string", "minLength": 1},
					"label":    map[string]any{"type": "string"},
					"required": map[string]any{"type": "boolean"},
				},
				"required": []string{"name"},
			},
		},
	}

	stage := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":                map[string]any{"type": "string", "minLength": 1},
			"label":               map[string]any{"type": "string"},
			"allowed_transitions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"required_fields":     map[string]any{"type": "array", "items": field},
			"actions":             actionsSchema(),
		},
		"required":             []string{"name"},
		"additionalProperties": false,
	}

	lineItemRule := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "minLength": 1},
			"amount":   map[string]any{"type": "number", "minimum": 0},
			"currency": map[string]any{"type": "string"},
			"criteria": criteriaSchema(),
		},
		"required": []string{"name", "amount"},
	}

	purpose := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description":                  map[string]any{"type": "string"},
			"line_item_rules":              map[string]any{"type": "array", "items": lineItemRule},
			"on_payment_completed_actions": actionsSchema(),
		},
		"additionalProperties": false,
	}

	format := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"format":       map[string]any{"type": "string", "pattern": `\{number(:[0-9]+)?\}`},
			"sequence_key": map[string]any{"type": "string"},
			"criteria":     criteriaSchema(),
		},
		"required":             []string{"format"},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stages":                 map[string]any{"type": "array", "items": stage},
			"payment_purposes":       map[string]any{"type": "object", "additionalProperties": purpose},
			"license_number_formats": map[string]any{"type": "array", "items": format},
			"email_templates":        map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
		},
		"additionalProperties": false,
	}
}
