// Package email sends templated emails to applicants.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
	"github.com/dukex/regflow/pkg/template"
)

// ErrMissingRecipient is returned when the record holds no address in the recipient field.
var ErrMissingRecipient = errors.New("record has no recipient address")

type Executor struct {
	mailer    protocol.Mailer
	templates map[string]string
}

func NewExecutor(mailer protocol.Mailer, templates map[string]string) *Executor {
	return &Executor{mailer: mailer, templates: templates}
}

func (e *Executor) ConfigType() models.ConfigType {
	return models.ConfigTypeEmail
}

func (e *Executor) Execute(
	ctx context.Context,
	action models.ActionSpec,
	record models.Record,
	logger *slog.Logger,
) (any, error) {
	config, ok := action.Config.(models.EmailConfig)
	if !ok {
		return nil, fmt.Errorf("expected email config, got %T: %w", action.Config, models.ErrConfiguration)
	}

	recipient, _ := record.String(config.Recipient())
	recipient = strings.TrimSpace(recipient)

	if recipient == "" {
		return nil, fmt.Errorf("field %q: %w", config.Recipient(), ErrMissingRecipient)
	}

	subject, err := template.Render(config.Subject, record)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}

	var body string

	if bodyTemplate, exists := e.templates[config.Template]; exists {
		body, err = template.Render(bodyTemplate, record)
		if err != nil {
			return nil, fmt.Errorf("failed to render template %q: %w", config.Template, err)
		}
	}

	err = e.mailer.Send(ctx, protocol.EmailMessage{
		To:       []string{recipient},
		Subject:  subject,
		Template: config.Template,
		Body:     body,
		Data:     record,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.DebugContext(ctx, "email sent", "template", config.Template, "recipient", recipient)

	return map[string]any{
		"recipients": []string{recipient},
		"template":   config.Template,
		"subject":    subject,
	}, nil
}
