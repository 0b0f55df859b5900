package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/persistence"
	"github.com/dukex/regflow/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// InvoiceRepository stores invoices, inside the context transaction when there is one.
type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	record, err := json.Marshal(invoice.Record)
	if err != nil {
		return persistence.NewInvoiceError("Save", invoice.ID, fmt.Errorf("failed to marshal record: %w", err))
	}

	lineItems, err := json.Marshal(invoice.LineItems)
	if err != nil {
		return persistence.NewInvoiceError("Save", invoice.ID, fmt.Errorf("failed to marshal line items: %w", err))
	}

	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO invoices (id, purpose, record, line_items, total, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = sqlbase.QuerierFrom(ctx, r.db).ExecContext(ctx, query,
		invoice.ID, invoice.Purpose, record, lineItems, invoice.Total, invoice.Currency, invoice.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewInvoiceError("Save", invoice.ID, persistence.ErrInvoiceAlreadyExists)
		}

		return persistence.NewInvoiceError("Save", invoice.ID, err)
	}

	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	query := `
		SELECT id, purpose, record, line_items, total, currency, created_at
		FROM invoices
		WHERE id = $1`

	var (
		invoice   models.Invoice
		record    []byte
		lineItems []byte
	)

	err := sqlbase.QuerierFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&invoice.ID, &invoice.Purpose, &record, &lineItems, &invoice.Total, &invoice.Currency, &invoice.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewInvoiceError("GetByID", id, persistence.ErrInvoiceNotFound)
		}

		return nil, persistence.NewInvoiceError("GetByID", id, err)
	}

	if err := json.Unmarshal(record, &invoice.Record); err != nil {
		return nil, persistence.NewInvoiceError("GetByID", id, fmt.Errorf("failed to unmarshal record: %w", err))
	}

	if err := json.Unmarshal(lineItems, &invoice.LineItems); err != nil {
		return nil, persistence.NewInvoiceError("GetByID", id, fmt.Errorf("failed to unmarshal line items: %w", err))
	}

	return &invoice, nil
}
