// Package persistence stores invoices and license sequences and runs them inside
// transactions carried by the context.
package persistence

import (
	"context"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

type InvoiceRepository interface {
	Save(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
}

type Persistence interface {
	InvoiceRepository() InvoiceRepository
	Sequencer() protocol.Sequencer
	TransactionManager() protocol.TransactionManager
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
