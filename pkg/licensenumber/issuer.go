package licensenumber

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/regflow/pkg/metrics"
	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/otelhelper"
	"github.com/dukex/regflow/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Issuer draws sequence values for the selected format. The counter is only advanced
// once a format matched.
type Issuer struct {
	sequencer protocol.Sequencer
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics
}

type IssuerOption func(*Issuer)

func WithTracer(tracer trace.Tracer) IssuerOption {
	return func(i *Issuer) {
		i.tracer = tracer
	}
}

func WithMetrics(m *metrics.Metrics) IssuerOption {
	return func(i *Issuer) {
		i.metrics = m
	}
}

func NewIssuer(sequencer protocol.Sequencer, logger *slog.Logger, opts ...IssuerOption) *Issuer {
	issuer := &Issuer{
		sequencer: sequencer,
		logger:    logger.With("module", "license_number_issuer"),
		tracer:    otelhelper.NoopTracer(),
	}

	for _, opt := range opts {
		opt(issuer)
	}

	return issuer
}

func (i *Issuer) Issue(ctx context.Context, formats []models.LicenseNumberFormat, record models.Record) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, i.tracer, "issue_license_number")
	defer span.End()

	format, err := Select(formats, record)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	if err := format.Check(); err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	key := format.CounterKey()
	span.SetAttributes(attribute.String(otelhelper.SequenceKeyKey, key))

	next, err := i.sequencer.Next(ctx, key)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to advance sequence %q: %w", key, err)
	}

	number, err := Format(format.Format, next)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	i.metrics.IncrementLicenseNumber(key)
	i.logger.InfoContext(ctx, "license number issued", "sequence_key", key, "license_number", number)

	return number, nil
}
