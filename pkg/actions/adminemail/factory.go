package adminemail

import (
	"fmt"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

// ActionFactory creates admin email executors.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionExecutor, error) {
	if deps.Mailer == nil {
		return nil, fmt.Errorf("admin email executor needs a mailer: %w", protocol.ErrMissingCapability)
	}

	return NewExecutor(deps.Mailer, deps.Templates), nil
}

func (f *ActionFactory) ID() string {
	return "admin_email"
}

func (f *ActionFactory) Name() string {
	return "Administrator Email"
}

func (f *ActionFactory) Description() string {
	return "Notifies one or more administrators about an application."
}

func (f *ActionFactory) ConfigType() models.ConfigType {
	return models.ConfigTypeAdminEmail
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"admin_email": map[string]any{
				"type":        "string",
				"description": "Administrator address, or a comma-separated list of addresses.",
				"examples":    []string{"registrar@mdc.gov", "registrar@mdc.gov, deputy@mdc.gov"},
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Email subject. Supports templating with record fields.",
			},
			"template": map[string]any{
				"type":        "string",
				"description": "Optional email template name.",
			},
		},
		"required":             []string{"admin_email", "subject"},
		"additionalProperties": false,
	}
}
