// Package payment creates invoices for payment actions.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

type Executor struct {
	payments protocol.PaymentInitiator
}

func NewExecutor(payments protocol.PaymentInitiator) *Executor {
	return &Executor{payments: payments}
}

func (e *Executor) ConfigType() models.ConfigType {
	return models.ConfigTypePayment
}

func (e *Executor) Execute(
	ctx context.Context,
	action models.ActionSpec,
	record models.Record,
	logger *slog.Logger,
) (any, error) {
	config, ok := action.Config.(models.PaymentConfig)
	if !ok {
		return nil, fmt.Errorf("expected payment config, got %T: %w", action.Config, models.ErrConfiguration)
	}

	ref, err := e.payments.CreateInvoice(ctx, config.PaymentPurpose, record)
	if err != nil {
		return nil, fmt.Errorf("failed to create %q invoice: %w", config.PaymentPurpose, err)
	}

	logger.InfoContext(ctx, "invoice created", "invoice_id", ref.ID, "purpose", ref.Purpose, "total", ref.Total)

	return ref, nil
}
