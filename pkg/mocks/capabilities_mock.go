package mocks

import (
	"context"
	"log/slog"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockMailer is a mock implementation of protocol.Mailer interface.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, message protocol.EmailMessage) error {
	args := m.Called(ctx, message)

	return args.Error(0)
}

// MockHTTPCaller is a mock implementation of protocol.HTTPCaller interface.
type MockHTTPCaller struct {
	mock.Mock
}

func (m *MockHTTPCaller) Call(ctx context.Context, request protocol.HTTPRequest) (*protocol.HTTPResponse, error) {
	args := m.Called(ctx, request)

	response, _ := args.Get(0).(*protocol.HTTPResponse)

	return response, args.Error(1)
}

// MockPaymentInitiator is a mock implementation of protocol.PaymentInitiator interface.
type MockPaymentInitiator struct {
	mock.Mock
}

func (m *MockPaymentInitiator) CreateInvoice(ctx context.Context, purpose string, record models.Record) (models.InvoiceRef, error) {
	args := m.Called(ctx, purpose, record)

	ref, _ := args.Get(0).(models.InvoiceRef)

	return ref, args.Error(1)
}

// MockPortalEditApplier is a mock implementation of protocol.PortalEditApplier interface.
type MockPortalEditApplier struct {
	mock.Mock
}

func (m *MockPortalEditApplier) Apply(ctx context.Context, config map[string]any, record models.Record) error {
	args := m.Called(ctx, config, record)

	return args.Error(0)
}

// MockSettingsProvider is a mock implementation of protocol.SettingsProvider interface.
type MockSettingsProvider struct {
	mock.Mock
}

func (m *MockSettingsProvider) PaymentPurposes(ctx context.Context) (map[string]models.PaymentPurpose, error) {
	args := m.Called(ctx)

	purposes, _ := args.Get(0).(map[string]models.PaymentPurpose)

	return purposes, args.Error(1)
}

// MockTransactionManager is a mock implementation of protocol.TransactionManager interface.
// Begin returns the context it was given unless the expectation supplies another one.
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)

	if txCtx, ok := args.Get(0).(context.Context); ok {
		return txCtx, args.Error(1)
	}

	return ctx, args.Error(1)
}

func (m *MockTransactionManager) Commit(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockTransactionManager) Rollback(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockSequencer is a mock implementation of protocol.Sequencer interface.
type MockSequencer struct {
	mock.Mock
}

func (m *MockSequencer) Next(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)

	next, _ := args.Get(0).(int64)

	return next, args.Error(1)
}

// MockActionExecutor is a mock implementation of protocol.ActionExecutor interface.
type MockActionExecutor struct {
	mock.Mock

	Type models.ConfigType
}

func (m *MockActionExecutor) ConfigType() models.ConfigType {
	return m.Type
}

func (m *MockActionExecutor) Execute(
	ctx context.Context,
	action models.ActionSpec,
	record models.Record,
	logger *slog.Logger,
) (any, error) {
	args := m.Called(ctx, action, record)

	return args.Get(0), args.Error(1)
}
