package apicall

import (
	"fmt"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

// ActionFactory creates api_call or internal_api_call executors.
type ActionFactory struct {
	internal bool
}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func NewInternalActionFactory() *ActionFactory {
	return &ActionFactory{internal: true}
}

func (f *ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionExecutor, error) {
	if deps.HTTPCaller == nil {
		return nil, fmt.Errorf("%s executor needs an http caller: %w", f.ID(), protocol.ErrMissingCapability)
	}

	return NewExecutor(deps.HTTPCaller, f.internal), nil
}

func (f *ActionFactory) ID() string {
	return string(f.ConfigType())
}

func (f *ActionFactory) Name() string {
	if f.internal {
		return "Internal API Call"
	}

	return "API Call"
}

func (f *ActionFactory) Description() string {
	if f.internal {
		return "Calls an endpoint of the licensing backend itself."
	}

	return "Calls an external HTTP endpoint with fields mapped from the record."
}

func (f *ActionFactory) ConfigType() models.ConfigType {
	if f.internal {
		return models.ConfigTypeInternalAPICall
	}

	return models.ConfigTypeAPICall
}

func (f *ActionFactory) Schema() map[string]any {
	stringMap := map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "string"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "Target URL. Internal calls may use a path relative to the backend.",
				"examples":    []string{"https://cpd.example.org/api/credits", "/api/licenses/renew"},
			},
			"method": map[string]any{
				"type": "string",
				"enum": []string{"GET", "POST", "PUT", "PATCH", "DELETE", "get", "post", "put", "patch", "delete"},
			},
			"auth_token": map[string]any{
				"type":        "string",
				"description": "Sent as a bearer token.",
			},
			"headers":      stringMap,
			"query_params": stringMap,
			"body_mapping": map[string]any{
				"type":                 "object",
				"description":          "Request body keys mapped to JMESPath expressions over the record.",
				"additionalProperties": map[string]any{"type": "string"},
				"examples": []map[string]string{
					{"license": "license_number", "region": "applicant.region"},
				},
			},
		},
		"required":             []string{"endpoint", "method"},
		"additionalProperties": false,
	}
}
