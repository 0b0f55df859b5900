// Package payment creates invoices for payment actions from the configured purpose settings.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/regflow/pkg/criteria"
	"github.com/dukex/regflow/pkg/eventbus"
	"github.com/dukex/regflow/pkg/events"
	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/persistence"
	"github.com/dukex/regflow/pkg/protocol"
	"github.com/google/uuid"
)

const DefaultCurrency = "GHS"

// ErrNoLineItems is returned when none of the purpose's line item rules match the record.
var ErrNoLineItems = errors.New("no line item rule matched the record")

// Initiator resolves line items by criteria, stores the invoice and announces it.
type Initiator struct {
	settings  protocol.SettingsProvider
	invoices  persistence.InvoiceRepository
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	currency  string
	now       func() time.Time
}

type Option func(*Initiator)

// WithPublisher publishes invoice_created after each stored invoice.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(i *Initiator) {
		i.publisher = publisher
	}
}

// WithDefaultCurrency sets the currency of line items that do not name one.
func WithDefaultCurrency(currency string) Option {
	return func(i *Initiator) {
		i.currency = currency
	}
}

func NewInitiator(settings protocol.SettingsProvider, invoices persistence.InvoiceRepository, logger *slog.Logger, opts ...Option) *Initiator {
	initiator := &Initiator{
		settings: settings,
		invoices: invoices,
		logger:   logger.With("module", "payment_initiator"),
		currency: DefaultCurrency,
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(initiator)
	}

	return initiator
}

func (i *Initiator) CreateInvoice(ctx context.Context, purposeName string, record models.Record) (models.InvoiceRef, error) {
	purposes, err := i.settings.PaymentPurposes(ctx)
	if err != nil {
		return models.InvoiceRef{}, fmt.Errorf("failed to load payment settings: %w", err)
	}

	purpose, ok := purposes[purposeName]
	if !ok {
		return models.InvoiceRef{}, &models.UnknownPaymentPurposeError{Purpose: purposeName}
	}

	lineItems, err := i.LineItems(purpose, record)
	if err != nil {
		return models.InvoiceRef{}, err
	}

	invoice := &models.Invoice{
		ID:        uuid.New().String(),
		Purpose:   purposeName,
		Record:    maps.Clone(record),
		LineItems: lineItems,
		Currency:  lineItems[0].Currency,
		CreatedAt: i.now(),
	}

	for _, item := range lineItems {
		invoice.Total += item.Amount
	}

	if err := i.invoices.Save(ctx, invoice); err != nil {
		return models.InvoiceRef{}, fmt.Errorf("failed to store invoice: %w", err)
	}

	i.logger.InfoContext(ctx, "invoice created",
		"invoice_id", invoice.ID, "purpose", purposeName, "total", invoice.Total, "line_items", len(lineItems))

	created := *invoice
	persistence.AfterCommit(ctx, func(ctx context.Context) {
		i.publishCreated(ctx, created)
	})

	return models.InvoiceRef{ID: invoice.ID, Purpose: purposeName, Total: invoice.Total}, nil
}

// LineItems returns one line per rule whose criteria match record, in rule order.
func (i *Initiator) LineItems(purpose models.PaymentPurpose, record models.Record) ([]models.LineItem, error) {
	var items []models.LineItem

	for _, rule := range purpose.LineItemRules {
		matched, err := criteria.Matches(record, rule.Criteria)
		if err != nil {
			return nil, fmt.Errorf("line item %q: %w", rule.Name, err)
		}

		if !matched {
			continue
		}

		currency := rule.Currency
		if currency == "" {
			currency = i.currency
		}

		items = append(items, models.LineItem{Name: rule.Name, Amount: rule.Amount, Currency: currency})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("purpose %q: %w", purpose.Name, ErrNoLineItems)
	}

	return items, nil
}

func (i *Initiator) publishCreated(ctx context.Context, invoice models.Invoice) {
	if i.publisher == nil {
		return
	}

	event := events.InvoiceCreated{
		BaseEvent: events.NewBaseEvent(events.InvoiceCreatedEvent),
		Invoice:   invoice,
	}

	if err := i.publisher.Publish(ctx, invoice.ID, event); err != nil {
		i.logger.WarnContext(ctx, "failed to publish invoice created event", "invoice_id", invoice.ID, "error", err)
	}
}
