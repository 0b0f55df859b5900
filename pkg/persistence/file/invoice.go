package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/persistence"
)

// InvoiceRepository keeps one JSON file per invoice under invoices/.
type InvoiceRepository struct {
	store *Persistence
}

// invoicePath maps an id to its file. Ids that could escape invoices/ are rejected.
func invoicePath(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\\x00") {
		return "", persistence.ErrInvalidInvoiceID
	}

	return path.Join("invoices", id+".json"), nil
}

func (r *InvoiceRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	name, err := invoicePath(invoice.ID)
	if err != nil {
		return persistence.NewInvoiceError("Save", invoice.ID, err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err = r.store.read(ctx, name)
	if err == nil {
		return persistence.NewInvoiceError("Save", invoice.ID, persistence.ErrInvoiceAlreadyExists)
	}

	if !errors.Is(err, os.ErrNotExist) {
		return persistence.NewInvoiceError("Save", invoice.ID, err)
	}

	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(invoice, "", "  ")
	if err != nil {
		return persistence.NewInvoiceError("Save", invoice.ID, fmt.Errorf("failed to marshal invoice: %w", err))
	}

	if err := r.store.write(ctx, name, data); err != nil {
		return persistence.NewInvoiceError("Save", invoice.ID, err)
	}

	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	name, err := invoicePath(id)
	if err != nil {
		return nil, persistence.NewInvoiceError("GetByID", id, fmt.Errorf("%w: %w", err, persistence.ErrInvoiceNotFound))
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	body, err := r.store.read(ctx, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewInvoiceError("GetByID", id, persistence.ErrInvoiceNotFound)
		}

		return nil, persistence.NewInvoiceError("GetByID", id, err)
	}

	var invoice models.Invoice

	err = json.Unmarshal(body, &invoice)
	if err != nil {
		return nil, persistence.NewInvoiceError("GetByID", id, fmt.Errorf("failed to unmarshal invoice: %w", err))
	}

	return &invoice, nil
}
