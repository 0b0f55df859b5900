package payment

import (
	"fmt"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

// ActionFactory creates payment executors.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionExecutor, error) {
	if deps.Payments == nil {
		return nil, fmt.Errorf("payment executor needs a payment initiator: %w", protocol.ErrMissingCapability)
	}

	return NewExecutor(deps.Payments), nil
}

func (f *ActionFactory) ID() string {
	return "payment"
}

func (f *ActionFactory) Name() string {
	return "Payment Invoice"
}

func (f *ActionFactory) Description() string {
	return "Creates an invoice for a configured payment purpose."
}

func (f *ActionFactory) ConfigType() models.ConfigType {
	return models.ConfigTypePayment
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"payment_purpose": map[string]any{
				"type":        "string",
				"description": "Key of the payment purpose in the payment settings.",
				"examples":    []string{"registration", "renewal"},
			},
		},
		"required":             []string{"payment_purpose"},
		"additionalProperties": false,
	}
}
