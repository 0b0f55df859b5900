package portaledit

import (
	"fmt"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

// ActionFactory creates portal edit executors.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(deps protocol.Dependencies) (protocol.ActionExecutor, error) {
	if deps.Portal == nil {
		return nil, fmt.Errorf("portal edit executor needs a portal edit applier: %w", protocol.ErrMissingCapability)
	}

	return NewExecutor(deps.Portal), nil
}

func (f *ActionFactory) ID() string {
	return "portal_edit"
}

func (f *ActionFactory) Name() string {
	return "Portal Edit"
}

func (f *ActionFactory) Description() string {
	return "Applies an edit to the applicant's portal entry."
}

func (f *ActionFactory) ConfigType() models.ConfigType {
	return models.ConfigTypePortalEdit
}

// Schema accepts any non-empty object; the applier owns the config's meaning.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type":          "object",
		"minProperties": 1,
	}
}
