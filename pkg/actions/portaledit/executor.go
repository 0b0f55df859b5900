// Package portaledit forwards portal_edit actions to the portal.
package portaledit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

type Executor struct {
	portal protocol.PortalEditApplier
}

func NewExecutor(portal protocol.PortalEditApplier) *Executor {
	return &Executor{portal: portal}
}

func (e *Executor) ConfigType() models.ConfigType {
	return models.ConfigTypePortalEdit
}

func (e *Executor) Execute(
	ctx context.Context,
	action models.ActionSpec,
	record models.Record,
	logger *slog.Logger,
) (any, error) {
	config, ok := action.Config.(models.PortalEditConfig)
	if !ok {
		return nil, fmt.Errorf("expected portal edit config, got %T: %w", action.Config, models.ErrConfiguration)
	}

	if err := e.portal.Apply(ctx, config.ToMap(), record); err != nil {
		return nil, fmt.Errorf("failed to apply portal edit: %w", err)
	}

	logger.DebugContext(ctx, "portal edit applied")

	return nil, nil
}
