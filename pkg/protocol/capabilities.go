package protocol

import (
	"context"
	"net/http"

	"github.com/dukex/regflow/pkg/models"
)

// EmailMessage is a rendered email ready for delivery.
type EmailMessage struct {
	To       []string
	Subject  string
	Template string
	// Body is empty when no body was configured for Template; the mailer may render it itself.
	Body string
	Data models.Record
}

type Mailer interface {
	Send(ctx context.Context, message EmailMessage) error
}

// HTTPRequest is an outbound call built from an api_call or internal_api_call action.
type HTTPRequest struct {
	Method      string
	Endpoint    string
	Headers     map[string]string
	QueryParams map[string]string
	Body        any
	// Internal requests resolve relative endpoints against the backend's own base URL.
	Internal bool
}

type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       any
}

type HTTPCaller interface {
	Call(ctx context.Context, request HTTPRequest) (*HTTPResponse, error)
}

// PaymentInitiator creates an invoice for a payment purpose.
type PaymentInitiator interface {
	CreateInvoice(ctx context.Context, purpose string, record models.Record) (models.InvoiceRef, error)
}

// PortalEditApplier applies a portal_edit action's config to the record's portal entry.
type PortalEditApplier interface {
	Apply(ctx context.Context, config map[string]any, record models.Record) error
}

// SettingsProvider reads the payment settings, keyed by purpose name.
type SettingsProvider interface {
	PaymentPurposes(ctx context.Context) (map[string]models.PaymentPurpose, error)
}

// TransactionManager scopes a unit of work. Begin returns a context carrying the
// transaction; Commit and Rollback act on the transaction found in ctx.
type TransactionManager interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Sequencer hands out monotonically increasing numbers per key.
type Sequencer interface {
	Next(ctx context.Context, key string) (int64, error)
}
