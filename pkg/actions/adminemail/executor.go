// Package adminemail notifies administrators about application events.
package adminemail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
	"github.com/dukex/regflow/pkg/template"
)

var ErrNoRecipients = errors.New("admin_email holds no address")

type Executor struct {
	mailer    protocol.Mailer
	templates map[string]string
}

func NewExecutor(mailer protocol.Mailer, templates map[string]string) *Executor {
	return &Executor{mailer: mailer, templates: templates}
}

func (e *Executor) ConfigType() models.ConfigType {
	return models.ConfigTypeAdminEmail
}

func (e *Executor) Execute(
	ctx context.Context,
	action models.ActionSpec,
	record models.Record,
	logger *slog.Logger,
) (any, error) {
	config, ok := action.Config.(models.AdminEmailConfig)
	if !ok {
		return nil, fmt.Errorf("expected admin email config, got %T: %w", action.Config, models.ErrConfiguration)
	}

	recipients := config.Recipients()
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	subject, err := template.Render(config.Subject, record)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}

	var body string

	if bodyTemplate, exists := e.templates[config.Template]; config.Template != "" && exists {
		body, err = template.Render(bodyTemplate, record)
		if err != nil {
			return nil, fmt.Errorf("failed to render template %q: %w", config.Template, err)
		}
	}

	err = e.mailer.Send(ctx, protocol.EmailMessage{
		To:       recipients,
		Subject:  subject,
		Template: config.Template,
		Body:     body,
		Data:     record,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send admin email: %w", err)
	}

	logger.DebugContext(ctx, "admin email sent", "recipients", len(recipients))

	return map[string]any{
		"recipients": recipients,
		"subject":    subject,
	}, nil
}
