package protocol

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/regflow/pkg/models"
)

// ErrMissingCapability is returned by factories whose executor needs a capability absent from Dependencies.
var ErrMissingCapability = errors.New("missing capability")

// ActionExecutor runs actions of one config type against a record.
type ActionExecutor interface {
	ConfigType() models.ConfigType
	Execute(ctx context.Context, action models.ActionSpec, record models.Record, logger *slog.Logger) (any, error)
}

// ActionExecutorFactory describes an executor and builds it from the capabilities it needs.
type ActionExecutorFactory interface {
	ID() string
	Name() string
	Description() string
	ConfigType() models.ConfigType
	// Schema is the JSON schema of the action's config map.
	Schema() map[string]any
	Create(deps Dependencies) (ActionExecutor, error)
}

// Dependencies are the capabilities executors are built from. Factories fail when a
// capability they need is nil.
type Dependencies struct {
	Logger     *slog.Logger
	Mailer     Mailer
	HTTPCaller HTTPCaller
	Payments   PaymentInitiator
	Portal     PortalEditApplier
	// Templates maps email template names to template bodies.
	Templates map[string]string
}
