// Package dispatcher runs criteria-gated actions against a record through their executors.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/regflow/pkg/criteria"
	"github.com/dukex/regflow/pkg/metrics"
	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/otelhelper"
	"github.com/dukex/regflow/pkg/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Policy decides what a failing action does to the rest of the batch.
type Policy int

const (
	// PolicyBestEffort records a failure and continues with the next action.
	PolicyBestEffort Policy = iota
	// PolicyTransactional stops at the first failure and returns it.
	PolicyTransactional
)

func (p Policy) String() string {
	if p == PolicyTransactional {
		return "transactional"
	}

	return "best_effort"
}

// ExecutorLookup resolves the executor of a config type.
type ExecutorLookup interface {
	Executor(configType models.ConfigType) (protocol.ActionExecutor, error)
}

type Dispatcher struct {
	executors ExecutorLookup
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics
}

type Option func(*Dispatcher)

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func New(executors ExecutorLookup, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		executors: executors,
		logger:    logger.With("module", "dispatcher"),
		tracer:    otelhelper.NoopTracer(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

type plannedAction struct {
	index    int
	action   models.ActionSpec
	executor protocol.ActionExecutor
}

// Dispatch runs actions in order. An action whose criteria do not match is skipped.
//
// Configuration problems (invalid action, unknown config type, unsupported operator,
// invalid pattern) abort the dispatch under both policies and are checked for every
// action before the first one runs, except pattern errors which surface on evaluation.
// Under PolicyBestEffort an executor failure is recorded and the batch continues; under
// PolicyTransactional the first failure ends the batch and is returned as an
// ActionExecutionError alongside the results gathered so far.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	record models.Record,
	actions []models.ActionSpec,
	policy Policy,
) ([]models.ActionResult, error) {
	runID := uuid.NewString()
	logger := d.logger.With("run_id", runID, "policy", policy.String())

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "dispatch",
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.Int("regflow.dispatch.actions", len(actions)),
	)
	defer span.End()

	plan, err := d.plan(actions)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	results := make([]models.ActionResult, 0, len(plan))

	for _, step := range plan {
		result, err := d.run(ctx, logger, runID, record, step)
		if err != nil {
			otelhelper.SetError(span, err)

			return results, err
		}

		results = append(results, result)

		if result.Failed() && policy == PolicyTransactional {
			failure := &models.ActionExecutionError{
				ActionType: step.action.Label(),
				ConfigType: step.action.ConfigType,
				Index:      step.index,
				Err:        result.Err,
			}
			otelhelper.SetError(span, failure)

			return results, failure
		}
	}

	return results, nil
}

func (d *Dispatcher) plan(actions []models.ActionSpec) ([]plannedAction, error) {
	plan := make([]plannedAction, 0, len(actions))

	for i, action := range actions {
		if err := action.Check(); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}

		executor, err := d.executors.Executor(action.ConfigType)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}

		plan = append(plan, plannedAction{index: i, action: action, executor: executor})
	}

	return plan, nil
}

// run executes one action. The returned error is a configuration error; executor
// failures are reported through the result.
func (d *Dispatcher) run(
	ctx context.Context,
	logger *slog.Logger,
	runID string,
	record models.Record,
	step plannedAction,
) (models.ActionResult, error) {
	configType := string(step.action.ConfigType)

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "action",
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.Int(otelhelper.ActionIndexKey, step.index),
		attribute.String(otelhelper.ActionTypeKey, step.action.Label()),
		attribute.String(otelhelper.ConfigTypeKey, configType),
	)
	defer span.End()

	result := models.ActionResult{
		RunID:  runID,
		Index:  step.index,
		Action: step.action,
	}

	matched, err := criteria.Matches(record, step.action.Criteria)
	if err != nil {
		otelhelper.SetError(span, err)

		return result, fmt.Errorf("action %d: %w", step.index, err)
	}

	if !matched {
		result.Status = models.ActionStatusSkipped
		span.SetAttributes(attribute.String(otelhelper.ActionStatusKey, string(result.Status)))
		d.metrics.ObserveAction(configType, string(result.Status), 0)

		logger.DebugContext(ctx, "action skipped", "index", step.index, "action", step.action.Label())

		return result, nil
	}

	start := time.Now()
	output, err := step.executor.Execute(ctx, step.action, record, logger)
	result.Duration = time.Since(start)

	if err != nil {
		result.Status = models.ActionStatusFailed
		result.Err = err

		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "action failed",
			"index", step.index,
			"action", step.action.Label(),
			"config_type", configType,
			"error", err,
		)
	} else {
		result.Status = models.ActionStatusSucceeded
		result.Output = output

		logger.InfoContext(ctx, "action succeeded",
			"index", step.index,
			"action", step.action.Label(),
			"config_type", configType,
			"duration", result.Duration,
		)
	}

	span.SetAttributes(attribute.String(otelhelper.ActionStatusKey, string(result.Status)))
	d.metrics.ObserveAction(configType, string(result.Status), result.Duration)

	return result, nil
}
