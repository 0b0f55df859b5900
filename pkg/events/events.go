// Package events defines the events exchanged between the licensing backend and the workflow engine.
package events

import (
	"time"

	"github.com/dukex/regflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "regflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	InvoiceCreatedEvent                 EventType = "invoice_created"
	InvoicePaymentCompletedEvent        EventType = "invoice_payment_completed"
	ApplicationFormActionCompletedEvent EventType = "application_form_action_completed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}

// InvoiceCreated is raised after a payment action stored a new invoice.
type InvoiceCreated struct {
	BaseEvent

	Invoice models.Invoice `json:"invoice"`
}

func (e InvoiceCreated) GetType() EventType {
	return InvoiceCreatedEvent
}

// InvoicePaymentCompleted is raised by the payment gateway integration once an invoice is paid.
// Invoice carries the invoice record the completion actions are evaluated against; it must
// hold the purpose field.
type InvoicePaymentCompleted struct {
	BaseEvent

	InvoiceID string        `json:"invoice_id"`
	Invoice   models.Record `json:"invoice"`
}

func (e InvoicePaymentCompleted) GetType() EventType {
	return InvoicePaymentCompletedEvent
}

// Record returns the invoice record with the invoice id filled in when absent.
func (e InvoicePaymentCompleted) Record() models.Record {
	record := make(models.Record, len(e.Invoice)+1)
	for k, v := range e.Invoice {
		record[k] = v
	}

	if _, ok := record[models.InvoiceIDField]; !ok && e.InvoiceID != "" {
		record[models.InvoiceIDField] = e.InvoiceID
	}

	return record
}

// ActionOutcome is the serializable summary of one dispatched action.
type ActionOutcome struct {
	Index      int                 `json:"index"`
	Type       string              `json:"type"`
	ConfigType models.ConfigType   `json:"config_type"`
	Status     models.ActionStatus `json:"status"`
	Error      string              `json:"error,omitempty"`
	DurationMs int64               `json:"duration_ms"`
}

// ApplicationFormActionCompleted is raised after a stage transition ran its entry actions.
type ApplicationFormActionCompleted struct {
	BaseEvent

	RecordID string          `json:"record_id,omitempty"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Outcomes []ActionOutcome `json:"outcomes"`
}

func (e ApplicationFormActionCompleted) GetType() EventType {
	return ApplicationFormActionCompletedEvent
}

// Outcomes summarizes dispatch results for publishing.
func Outcomes(results []models.ActionResult) []ActionOutcome {
	outcomes := make([]ActionOutcome, 0, len(results))

	for _, result := range results {
		outcome := ActionOutcome{
			Index:      result.Index,
			Type:       result.Action.Type,
			ConfigType: result.Action.ConfigType,
			Status:     result.Status,
			DurationMs: result.Duration.Milliseconds(),
		}
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
