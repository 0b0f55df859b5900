// Package workflow moves applications between stages and runs payment completion actions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/regflow/pkg/dispatcher"
	"github.com/dukex/regflow/pkg/eventbus"
	"github.com/dukex/regflow/pkg/events"
	"github.com/dukex/regflow/pkg/metrics"
	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/otelhelper"
	"github.com/dukex/regflow/pkg/persistence"
	"github.com/dukex/regflow/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotConfigured is returned by OnPaymentCompleted when the engine has no settings
// provider or transaction manager.
var ErrNotConfigured = errors.New("payment completion is not configured")

// ActionDispatcher runs an ordered action list against a record.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, record models.Record, actions []models.ActionSpec, policy dispatcher.Policy) ([]models.ActionResult, error)
}

// RecordIDField is the record field published as the record id of transition events.
const RecordIDField = "id"

type Engine struct {
	stages     *StageSet
	dispatcher ActionDispatcher
	settings   protocol.SettingsProvider
	tx         protocol.TransactionManager
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *metrics.Metrics
}

type Option func(*Engine)

// WithPaymentCompletion enables OnPaymentCompleted.
func WithPaymentCompletion(settings protocol.SettingsProvider, tx protocol.TransactionManager) Option {
	return func(e *Engine) {
		e.settings = settings
		e.tx = tx
	}
}

// WithPublisher publishes application_form_action_completed after each applied transition.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(stages *StageSet, dispatcher ActionDispatcher, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		stages:     stages,
		dispatcher: dispatcher,
		logger:     logger.With("module", "workflow_engine"),
		tracer:     otelhelper.NoopTracer(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Transition moves record from one stage to another and runs the destination stage's
// actions best-effort. Action failures are reported in the result, not returned.
// A transition to the current stage changes nothing and runs no actions.
func (e *Engine) Transition(ctx context.Context, record models.Record, from, to string) (*models.TransitionResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "transition",
		attribute.String(otelhelper.StageFromKey, from),
		attribute.String(otelhelper.StageToKey, to),
	)
	defer span.End()

	logger := e.logger.With("from", from, "to", to)

	fromStage, ok := e.stages.Stage(from)
	if !ok {
		return nil, e.reject(span, to, &models.UnknownStageError{Stage: from})
	}

	toStage, ok := e.stages.Stage(to)
	if !ok {
		return nil, e.reject(span, to, &models.UnknownStageError{Stage: to})
	}

	if from == to {
		e.metrics.IncrementTransition(to, "unchanged")
		logger.DebugContext(ctx, "self transition ignored")

		return &models.TransitionResult{From: from, To: to, Changed: false}, nil
	}

	if !fromStage.AllowsTransitionTo(to) {
		return nil, e.reject(span, to, &models.IllegalTransitionError{From: from, To: to})
	}

	if missing := toStage.MissingFields(record); len(missing) > 0 {
		return nil, e.reject(span, to, &models.MissingRequiredFieldError{Stage: to, Fields: missing})
	}

	results, err := e.dispatcher.Dispatch(ctx, record, toStage.Actions, dispatcher.PolicyBestEffort)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("stage %q actions: %w", to, err)
	}

	result := &models.TransitionResult{From: from, To: to, Changed: true, Results: results}

	e.metrics.IncrementTransition(to, "applied")

	if failures := result.Failures(); len(failures) > 0 {
		logger.WarnContext(ctx, "transition applied with failed actions",
			"failed", len(failures), "actions", len(results))
	} else {
		logger.InfoContext(ctx, "transition applied", "actions", len(results))
	}

	e.publishCompleted(ctx, record, result)

	return result, nil
}

func (e *Engine) reject(span trace.Span, to string, err error) error {
	otelhelper.SetError(span, err)
	e.metrics.IncrementTransition(to, "rejected")

	return err
}

func (e *Engine) publishCompleted(ctx context.Context, record models.Record, result *models.TransitionResult) {
	if e.publisher == nil {
		return
	}

	recordID, _ := record.Lookup(RecordIDField)

	event := events.ApplicationFormActionCompleted{
		BaseEvent: events.NewBaseEvent(events.ApplicationFormActionCompletedEvent),
		From:      result.From,
		To:        result.To,
		Outcomes:  events.Outcomes(result.Results),
	}
	if recordID != nil {
		event.RecordID = fmt.Sprint(recordID)
	}

	if err := e.publisher.Publish(ctx, event.RecordID, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish transition event", "error", err)
	}
}

// OnPaymentCompleted runs the on-payment-completed actions of the invoice's purpose inside
// one transaction. The first failing action rolls the transaction back and no further
// action runs; the failure is returned as a PaymentCompletionError wrapping the original
// error. A panic inside an action also rolls back before it propagates. Work registered
// with persistence.AfterCommit runs only after a successful commit.
func (e *Engine) OnPaymentCompleted(ctx context.Context, invoice models.Record) error {
	if e.settings == nil || e.tx == nil {
		return ErrNotConfigured
	}

	purposeName, _ := invoice.String(models.InvoicePurposeField)
	invoiceID, _ := invoice.Lookup(models.InvoiceIDField)
	invoiceRef := ""

	if invoiceID != nil {
		invoiceRef = fmt.Sprint(invoiceID)
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "payment_completed",
		attribute.String(otelhelper.PaymentPurposeKey, purposeName),
		attribute.String(otelhelper.InvoiceIDKey, invoiceRef),
	)
	defer span.End()

	logger := e.logger.With("purpose", purposeName, "invoice_id", invoiceRef)

	purposes, err := e.settings.PaymentPurposes(ctx)
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to load payment settings: %w", err)
	}

	purpose, ok := purposes[purposeName]
	if !ok {
		err := &models.UnknownPaymentPurposeError{Purpose: purposeName}
		otelhelper.SetError(span, err)

		return err
	}

	if len(purpose.OnPaymentCompletedActions) == 0 {
		e.metrics.IncrementPaymentCompletion(purposeName, "empty")
		logger.InfoContext(ctx, "no payment completion actions configured")

		return nil
	}

	txCtx, err := e.tx.Begin(ctx)
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			if rollbackErr := e.tx.Rollback(txCtx); rollbackErr != nil {
				logger.ErrorContext(ctx, "rollback after panic failed", "error", rollbackErr)
			}

			e.metrics.IncrementPaymentCompletion(purposeName, "rolled_back")

			panic(r)
		}
	}()

	dispatchCtx, hooks := persistence.WithCommitHooks(txCtx)

	results, err := e.dispatcher.Dispatch(dispatchCtx, invoice, purpose.OnPaymentCompletedActions, dispatcher.PolicyTransactional)
	if err == nil {
		err = firstFailure(results)
	}

	if err != nil {
		if rollbackErr := e.tx.Rollback(txCtx); rollbackErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback failed: %w", rollbackErr))
		}

		e.metrics.IncrementPaymentCompletion(purposeName, "rolled_back")
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "payment completion rolled back", "error", err)

		return &models.PaymentCompletionError{Purpose: purposeName, InvoiceID: invoiceRef, Err: err}
	}

	if err := e.tx.Commit(txCtx); err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to commit payment completion: %w", err)
	}

	e.metrics.IncrementPaymentCompletion(purposeName, "committed")
	logger.InfoContext(ctx, "payment completion committed", "actions", len(results))

	hooks.Run(ctx)

	return nil
}

func firstFailure(results []models.ActionResult) error {
	for _, result := range results {
		if result.Failed() {
			return &models.ActionExecutionError{
				ActionType: result.Action.Label(),
				ConfigType: result.Action.ConfigType,
				Index:      result.Index,
				Err:        result.Err,
			}
		}
	}

	return nil
}

// Subscribe runs OnPaymentCompleted for every invoice_payment_completed event.
// Configuration errors are logged and acknowledged since redelivery cannot fix them.
func (e *Engine) Subscribe(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.InvoicePaymentCompletedEvent, func(ctx context.Context, event any) error {
		completed, ok := event.(*events.InvoicePaymentCompleted)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}

		err := e.OnPaymentCompleted(ctx, completed.Record())
		if err != nil && models.IsConfigurationError(err) {
			e.logger.ErrorContext(ctx, "dropping payment completion event", "invoice_id", completed.InvoiceID, "error", err)

			return nil
		}

		return err
	})
}
