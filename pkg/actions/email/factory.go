package email

import (
	"fmt"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

// ActionFactory creates email executors.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionExecutor, error) {
	if deps.Mailer == nil {
		return nil, fmt.Errorf("email executor needs a mailer: %w", protocol.ErrMissingCapability)
	}

	return NewExecutor(deps.Mailer, deps.Templates), nil
}

func (f *ActionFactory) ID() string {
	return "email"
}

func (f *ActionFactory) Name() string {
	return "Applicant Email"
}

func (f *ActionFactory) Description() string {
	return "Sends a templated email to the address held in the record."
}

func (f *ActionFactory) ConfigType() models.ConfigType {
	return models.ConfigTypeEmail
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template": map[string]any{
				"type":        "string",
				"description": "Name of the email template.",
				"examples":    []string{"application_approved", "renewal_reminder"},
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Email subject. Supports templating with record fields.",
				"examples":    []string{"Your license {{ .license_number }} was issued"},
			},
			"recipient_field": map[string]any{
				"type":        "string",
				"description": "Record field holding the recipient address.",
				"default":     "email",
			},
		},
		"required":             []string{"template", "subject"},
		"additionalProperties": false,
	}
}
