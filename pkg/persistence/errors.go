package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrInvoiceNotFound indicates an invoice was not found by the given identifier.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInvoiceAlreadyExists indicates an invoice with the same identifier already exists.
	ErrInvoiceAlreadyExists = errors.New("invoice already exists")

	// ErrInvalidInvoiceID indicates an identifier that cannot name an invoice, such as one
	// containing a path separator.
	ErrInvalidInvoiceID = errors.New("invalid invoice id")

	// ErrNoTransaction is returned by Commit and Rollback when the context carries no transaction.
	ErrNoTransaction = errors.New("no transaction in context")

	// ErrTransactionActive is returned by Begin when the context already carries a transaction.
	ErrTransactionActive = errors.New("transaction already active")
)

// InvoiceError wraps invoice-related errors with additional context.
type InvoiceError struct {
	Op        string // Operation being performed (e.g., "GetByID", "Save")
	InvoiceID string
	Err       error
}

func (e *InvoiceError) Error() string {
	return fmt.Sprintf("%s operation failed for invoice %s: %v", e.Op, e.InvoiceID, e.Err)
}

func (e *InvoiceError) Unwrap() error {
	return e.Err
}

func (e *InvoiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewInvoiceError(op, invoiceID string, err error) *InvoiceError {
	return &InvoiceError{Op: op, InvoiceID: invoiceID, Err: err}
}

// IsInvoiceNotFound checks if an error indicates an invoice was not found.
func IsInvoiceNotFound(err error) bool {
	return errors.Is(err, ErrInvoiceNotFound)
}
