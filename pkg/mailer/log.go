// Package mailer holds the development mailer, which writes messages to the log
// instead of delivering them.
package mailer

import (
	"context"
	"log/slog"

	"github.com/dukex/regflow/pkg/protocol"
)

type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "log_mailer")}
}

func (m *LogMailer) Send(ctx context.Context, message protocol.EmailMessage) error {
	m.logger.InfoContext(ctx, "email",
		"to", message.To,
		"subject", message.Subject,
		"template", message.Template,
		"body", message.Body,
	)

	return nil
}
