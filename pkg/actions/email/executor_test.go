package email_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/regflow/pkg/actions/email"
	"github.com/dukex/regflow/pkg/mocks"
	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func approvalAction(config models.EmailConfig) models.ActionSpec {
	return models.ActionSpec{Type: "Approval email", ConfigType: models.ConfigTypeEmail, Config: config}
}

func TestExecutor_Execute(t *testing.T) {
	t.Parallel()

	mailer := &mocks.MockMailer{}
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(message protocol.EmailMessage) bool {
		return assert.ObjectsAreEqual([]string{"ama@example.com"}, message.To) &&
			message.Subject == "License MDC/PN/00007 issued" &&
			message.Template == "license_issued" &&
			message.Body == "Dear Ama"
	})).Return(nil).Once()

	executor := email.NewExecutor(mailer, map[string]string{"license_issued": "Dear {{ .first_name }}"})

	output, err := executor.Execute(context.Background(), approvalAction(models.EmailConfig{
		Template: "license_issued",
		Subject:  "License {{ .license_number }} issued",
	}), models.Record{
		"email":          "ama@example.com",
		"first_name":     "Ama",
		"license_number": "MDC/PN/00007",
	}, slog.Default())
	require.NoError(t, err)

	result, ok := output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "license_issued", result["template"])

	mailer.AssertExpectations(t)
}

func TestExecutor_Execute_RecipientField(t *testing.T) {
	t.Parallel()

	mailer := &mocks.MockMailer{}
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(message protocol.EmailMessage) bool {
		return len(message.To) == 1 && message.To[0] == "kofi@example.com" && message.Body == ""
	})).Return(nil).Once()

	executor := email.NewExecutor(mailer, nil)

	_, err := executor.Execute(context.Background(), approvalAction(models.EmailConfig{
		Template:       "renewal_reminder",
		Subject:        "Renewal due",
		RecipientField: "contact.email",
	}), models.Record{"contact": map[string]any{"email": "kofi@example.com"}}, slog.Default())
	require.NoError(t, err)

	mailer.AssertExpectations(t)
}

func TestExecutor_Execute_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing recipient", func(t *testing.T) {
		t.Parallel()

		mailer := &mocks.MockMailer{}
		executor := email.NewExecutor(mailer, nil)

		_, err := executor.Execute(context.Background(), approvalAction(models.EmailConfig{
			Template: "x",
			Subject:  "y",
		}), models.Record{"email": "  "}, slog.Default())
		require.ErrorIs(t, err, email.ErrMissingRecipient)
		mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("mailer failure", func(t *testing.T) {
		t.Parallel()

		mailer := &mocks.MockMailer{}
		mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		executor := email.NewExecutor(mailer, nil)

		_, err := executor.Execute(context.Background(), approvalAction(models.EmailConfig{
			Template: "x",
			Subject:  "y",
		}), models.Record{"email": "ama@example.com"}, slog.Default())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "smtp down")
	})

	t.Run("wrong config type", func(t *testing.T) {
		t.Parallel()

		executor := email.NewExecutor(&mocks.MockMailer{}, nil)

		_, err := executor.Execute(context.Background(), models.ActionSpec{
			ConfigType: models.ConfigTypeEmail,
			Config:     models.PaymentConfig{PaymentPurpose: "renewal"},
		}, models.Record{}, slog.Default())
		assert.True(t, models.IsConfigurationError(err))
	})
}

func TestActionFactory_Create(t *testing.T) {
	t.Parallel()

	factory := email.NewActionFactory()
	assert.Equal(t, models.ConfigTypeEmail, factory.ConfigType())

	_, err := factory.Create(protocol.Dependencies{})
	require.ErrorIs(t, err, protocol.ErrMissingCapability)

	executor, err := factory.Create(protocol.Dependencies{Mailer: &mocks.MockMailer{}})
	require.NoError(t, err)
	assert.Equal(t, models.ConfigTypeEmail, executor.ConfigType())
}
