package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/regflow/pkg/dispatcher"
	"github.com/dukex/regflow/pkg/eventbus"
	"github.com/dukex/regflow/pkg/events"
	"github.com/dukex/regflow/pkg/mocks"
	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/persistence"
	"github.com/dukex/regflow/pkg/registry"
	"github.com/dukex/regflow/pkg/testutil"
	"github.com/dukex/regflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type txKey struct{}

type engineFixture struct {
	engine   *workflow.Engine
	email    *mocks.MockActionExecutor
	payment  *mocks.MockActionExecutor
	portal   *mocks.MockActionExecutor
	settings *mocks.MockSettingsProvider
	tx       *mocks.MockTransactionManager
	bus      *mocks.MockEventBus
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		email:    &mocks.MockActionExecutor{Type: models.ConfigTypeEmail},
		payment:  &mocks.MockActionExecutor{Type: models.ConfigTypePayment},
		portal:   &mocks.MockActionExecutor{Type: models.ConfigTypePortalEdit},
		settings: &mocks.MockSettingsProvider{},
		tx:       &mocks.MockTransactionManager{},
		bus:      &mocks.MockEventBus{},
	}

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterExecutor(f.email)
	reg.RegisterExecutor(f.payment)
	reg.RegisterExecutor(f.portal)

	stages, err := workflow.NewStageSet(testStages())
	require.NoError(t, err)

	f.engine = workflow.NewEngine(stages, dispatcher.New(reg, slog.Default()), slog.Default(),
		workflow.WithPaymentCompletion(f.settings, f.tx),
		workflow.WithPublisher(f.bus),
	)

	return f
}

func testStages() []models.StageDefinition {
	return []models.StageDefinition{
		testutil.CreateTestStage("Submitted", testutil.WithTransitions("Pending Payment", "Rejected")),
		testutil.CreateTestStage("Pending Payment",
			testutil.WithTransitions("Approved", "Rejected"),
			testutil.WithActions(testutil.PaymentAction("registration")),
		),
		testutil.CreateTestStage("Approved",
			testutil.WithRequiredFields("license_number"),
			testutil.WithActions(testutil.EmailAction("approved"), testutil.PortalEditAction("renewed", true)),
		),
		testutil.CreateTestStage("Rejected", testutil.WithActions(testutil.EmailAction("rejected"))),
	}
}

func TestTransition_IllegalTransitionDispatchesNothing(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	result, err := f.engine.Transition(context.Background(), models.Record{"license_number": "PC/1"}, "Submitted", "Approved")
	require.Error(t, err)
	assert.Nil(t, result)

	var illegal *models.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, "Submitted", illegal.From)
	assert.Equal(t, "Approved", illegal.To)
	assert.True(t, models.IsTransitionError(err))

	f.email.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
	f.portal.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
	f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_MissingRequiredField(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	_, err := f.engine.Transition(context.Background(), models.Record{"license_number": ""}, "Pending Payment", "Approved")

	var missing *models.MissingRequiredFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"license_number"}, missing.Fields)

	f.email.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_UnknownStage(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	_, err := f.engine.Transition(context.Background(), models.Record{}, "Submitted", "Archived")

	var unknown *models.UnknownStageError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Archived", unknown.Stage)
}

func TestTransition_SelfTransitionIsNoop(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	result, err := f.engine.Transition(context.Background(), models.Record{}, "Approved", "Approved")
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Empty(t, result.Results)

	f.email.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
	f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_BestEffortReportsFailures(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	record := models.Record{"id": 17, "license_number": "MDC/PN/00007", "email": "ama@example.com"}

	f.email.On("Execute", mock.Anything, mock.Anything, record).Return(nil, errors.New("smtp down")).Once()
	f.portal.On("Execute", mock.Anything, mock.Anything, record).Return(nil, nil).Once()
	f.bus.On("Publish", mock.Anything, "17", mock.MatchedBy(func(event eventbus.Event) bool {
		completed, ok := event.(events.ApplicationFormActionCompleted)

		return ok && completed.To == "Approved" && len(completed.Outcomes) == 2 &&
			completed.Outcomes[0].Status == models.ActionStatusFailed
	})).Return(nil).Once()

	result, err := f.engine.Transition(context.Background(), record, "Pending Payment", "Approved")
	require.NoError(t, err)
	assert.True(t, result.Changed)
	require.Len(t, result.Results, 2)
	require.Len(t, result.Failures(), 1)
	assert.Equal(t, models.ActionStatusSucceeded, result.Results[1].Status)

	f.email.AssertExpectations(t)
	f.portal.AssertExpectations(t)
	f.bus.AssertExpectations(t)
}

func TestTransition_PendingPaymentAlwaysInvoices(t *testing.T) {
	t.Parallel()

	for _, record := range []models.Record{{}, {"category": "pharmacist", "cpd_total": 0}} {
		f := newEngineFixture(t)
		f.payment.On("Execute", mock.Anything, mock.Anything, record).Return(models.InvoiceRef{ID: "inv-1"}, nil).Once()
		f.bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

		result, err := f.engine.Transition(context.Background(), record, "Submitted", "Pending Payment")
		require.NoError(t, err)
		require.Len(t, result.Results, 1)
		assert.Equal(t, models.ActionStatusSucceeded, result.Results[0].Status)

		f.payment.AssertExpectations(t)
	}
}

func renewalPurpose(actions ...models.ActionSpec) map[string]models.PaymentPurpose {
	return map[string]models.PaymentPurpose{
		"renewal": {Name: "renewal", OnPaymentCompletedActions: actions},
	}
}

func TestOnPaymentCompleted_RollsBackOnFailure(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	invoice := models.Record{"purpose": "renewal", "invoice_id": "inv-9"}
	cause := errors.New("portal offline")

	f.settings.On("PaymentPurposes", mock.Anything).Return(renewalPurpose(testutil.EmailAction("paid"), testutil.PortalEditAction("renewed", true)), nil)
	f.tx.On("Begin", mock.Anything).Return(nil, nil).Once()
	f.tx.On("Rollback", mock.Anything).Return(nil).Once()
	f.email.On("Execute", mock.Anything, mock.Anything, invoice).Return(nil, nil).Once()
	f.portal.On("Execute", mock.Anything, mock.Anything, invoice).Return(nil, cause).Once()

	err := f.engine.OnPaymentCompleted(context.Background(), invoice)
	require.Error(t, err)

	var completionErr *models.PaymentCompletionError
	require.ErrorAs(t, err, &completionErr)
	assert.Equal(t, "renewal", completionErr.Purpose)
	assert.Equal(t, "inv-9", completionErr.InvoiceID)
	require.ErrorIs(t, err, cause)
	assert.True(t, models.IsActionExecutionError(err))

	f.tx.AssertNumberOfCalls(t, "Rollback", 1)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestOnPaymentCompleted_StopsAfterFirstFailure(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	invoice := models.Record{"purpose": "renewal"}

	f.settings.On("PaymentPurposes", mock.Anything).Return(renewalPurpose(testutil.PortalEditAction("renewed", true), testutil.EmailAction("paid")), nil)
	f.tx.On("Begin", mock.Anything).Return(nil, nil).Once()
	f.tx.On("Rollback", mock.Anything).Return(nil).Once()
	f.portal.On("Execute", mock.Anything, mock.Anything, invoice).Return(nil, errors.New("portal offline")).Once()

	require.Error(t, f.engine.OnPaymentCompleted(context.Background(), invoice))

	f.email.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestOnPaymentCompleted_RollbackFailureIsJoined(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	invoice := models.Record{"purpose": "renewal"}
	cause := errors.New("portal offline")
	rollbackErr := errors.New("connection reset")

	f.settings.On("PaymentPurposes", mock.Anything).Return(renewalPurpose(testutil.PortalEditAction("renewed", true)), nil)
	f.tx.On("Begin", mock.Anything).Return(nil, nil).Once()
	f.tx.On("Rollback", mock.Anything).Return(rollbackErr).Once()
	f.portal.On("Execute", mock.Anything, mock.Anything, invoice).Return(nil, cause).Once()

	err := f.engine.OnPaymentCompleted(context.Background(), invoice)
	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, rollbackErr)
}

func TestOnPaymentCompleted_CommitsOnSuccess(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	invoice := models.Record{"purpose": "renewal"}
	txCtx := context.WithValue(context.Background(), txKey{}, "tx")

	f.settings.On("PaymentPurposes", mock.Anything).Return(renewalPurpose(testutil.EmailAction("paid"), testutil.PortalEditAction("renewed", true)), nil)
	f.tx.On("Begin", mock.Anything).Return(txCtx, nil).Once()
	f.tx.On("Commit", txCtx).Return(nil).Once()
	f.email.On("Execute", mock.Anything, mock.Anything, invoice).Return(nil, nil).Once()
	f.portal.On("Execute", mock.Anything, mock.Anything, invoice).Return(nil, nil).Once()

	require.NoError(t, f.engine.OnPaymentCompleted(context.Background(), invoice))

	f.tx.AssertExpectations(t)
	f.tx.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestOnPaymentCompleted_AfterCommitWorkWaitsForCommit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		portalErr error
		published bool
	}{
		{name: "committed", published: true},
		{name: "rolled back", portalErr: errors.New("portal offline"), published: false},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			f := newEngineFixture(t)
			invoice := models.Record{"purpose": "renewal", "invoice_id": "inv-12"}
			published := false

			f.settings.On("PaymentPurposes", mock.Anything).Return(renewalPurpose(testutil.PaymentAction("certificate"), testutil.PortalEditAction("renewed", true)), nil)
			f.tx.On("Begin", mock.Anything).Return(nil, nil).Once()
			f.tx.On("Commit", mock.Anything).Return(nil).Maybe()
			f.tx.On("Rollback", mock.Anything).Return(nil).Maybe()
			f.payment.On("Execute", mock.Anything, mock.Anything, invoice).Run(func(args mock.Arguments) {
				persistence.AfterCommit(args.Get(0).(context.Context), func(context.Context) { published = true })
			}).Return(nil, nil).Once()
			f.portal.On("Execute", mock.Anything, mock.Anything, invoice).Run(func(mock.Arguments) {
				assert.False(t, published)
			}).Return(nil, testCase.portalErr).Once()

			err := f.engine.OnPaymentCompleted(context.Background(), invoice)
			if testCase.portalErr != nil {
				require.ErrorIs(t, err, testCase.portalErr)
				f.tx.AssertNotCalled(t, "Commit", mock.Anything)
			} else {
				require.NoError(t, err)
				f.tx.AssertNotCalled(t, "Rollback", mock.Anything)
			}

			assert.Equal(t, testCase.published, published)
		})
	}
}

func TestOnPaymentCompleted_EmptyActionListIsNoop(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	f.settings.On("PaymentPurposes", mock.Anything).Return(renewalPurpose(), nil)

	require.NoError(t, f.engine.OnPaymentCompleted(context.Background(), models.Record{"purpose": "renewal"}))

	f.tx.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestOnPaymentCompleted_UnknownPurpose(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	f.settings.On("PaymentPurposes", mock.Anything).Return(renewalPurpose(testutil.PortalEditAction("renewed", true)), nil)

	err := f.engine.OnPaymentCompleted(context.Background(), models.Record{"purpose": "exam"})

	var unknown *models.UnknownPaymentPurposeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "exam", unknown.Purpose)

	f.tx.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestOnPaymentCompleted_PanicRollsBack(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	invoice := models.Record{"purpose": "renewal"}

	f.settings.On("PaymentPurposes", mock.Anything).Return(renewalPurpose(testutil.PortalEditAction("renewed", true)), nil)
	f.tx.On("Begin", mock.Anything).Return(nil, nil).Once()
	f.tx.On("Rollback", mock.Anything).Return(nil).Once()
	f.portal.On("Execute", mock.Anything, mock.Anything, invoice).Run(func(mock.Arguments) {
		panic("nil map write")
	})

	assert.PanicsWithValue(t, "nil map write", func() {
		_ = f.engine.OnPaymentCompleted(context.Background(), invoice)
	})

	f.tx.AssertNumberOfCalls(t, "Rollback", 1)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestOnPaymentCompleted_NotConfigured(t *testing.T) {
	t.Parallel()

	stages, err := workflow.NewStageSet(nil)
	require.NoError(t, err)

	engine := workflow.NewEngine(stages, dispatcher.New(registry.NewRegistry(slog.Default()), slog.Default()), slog.Default())

	require.ErrorIs(t, engine.OnPaymentCompleted(context.Background(), models.Record{}), workflow.ErrNotConfigured)
}

func TestSubscribe_HandlesPaymentCompletedEvents(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	var handler eventbus.EventHandler

	f.bus.On("Handle", events.InvoicePaymentCompletedEvent, mock.Anything).Run(func(args mock.Arguments) {
		handler, _ = args.Get(1).(eventbus.EventHandler)
	}).Return(nil).Once()

	require.NoError(t, f.engine.Subscribe(f.bus))
	require.NotNil(t, handler)

	f.settings.On("PaymentPurposes", mock.Anything).Return(renewalPurpose(testutil.PortalEditAction("renewed", true)), nil)
	f.tx.On("Begin", mock.Anything).Return(nil, nil).Once()
	f.tx.On("Commit", mock.Anything).Return(nil).Once()
	f.portal.On("Execute", mock.Anything, mock.Anything, models.Record{
		"purpose":    "renewal",
		"invoice_id": "inv-3",
	}).Return(nil, nil).Once()

	err := handler(context.Background(), &events.InvoicePaymentCompleted{
		BaseEvent: events.NewBaseEvent(events.InvoicePaymentCompletedEvent),
		InvoiceID: "inv-3",
		Invoice:   models.Record{"purpose": "renewal"},
	})
	require.NoError(t, err)

	err = handler(context.Background(), &events.InvoicePaymentCompleted{
		InvoiceID: "inv-4",
		Invoice:   models.Record{"purpose": "unknown"},
	})
	require.NoError(t, err, "configuration errors are acknowledged")

	f.portal.AssertExpectations(t)
	f.tx.AssertExpectations(t)
}
