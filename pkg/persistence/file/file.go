// Package file provides file-based persistence for invoices and license sequences.
// Writes made inside a transaction are buffered in the context and flushed on commit.
// It is suited to a single worker.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/regflow/pkg/persistence"
	"github.com/dukex/regflow/pkg/protocol"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	mu           sync.Mutex
	invoiceRepo  *InvoiceRepository
	sequenceRepo *SequenceRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	p := &Persistence{root: strings.Replace(root, "file://", "", 1)}
	p.invoiceRepo = &InvoiceRepository{store: p}
	p.sequenceRepo = &SequenceRepository{store: p}

	return p
}

func (p *Persistence) InvoiceRepository() persistence.InvoiceRepository {
	return p.invoiceRepo
}

func (p *Persistence) Sequencer() protocol.Sequencer {
	return p.sequenceRepo
}

func (p *Persistence) TransactionManager() protocol.TransactionManager {
	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

type ctxKey struct{}

type transaction struct {
	mu      sync.Mutex
	pending map[string][]byte
	order   []string
}

func transactionFrom(ctx context.Context) (*transaction, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*transaction)

	return tx, ok
}

func (p *Persistence) Begin(ctx context.Context) (context.Context, error) {
	if _, ok := transactionFrom(ctx); ok {
		return ctx, persistence.ErrTransactionActive
	}

	return context.WithValue(ctx, ctxKey{}, &transaction{pending: make(map[string][]byte)}), nil
}

func (p *Persistence) Commit(ctx context.Context) error {
	tx, ok := transactionFrom(ctx)
	if !ok {
		return persistence.ErrNoTransaction
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, name := range tx.order {
		if err := p.writeFile(name, tx.pending[name]); err != nil {
			return fmt.Errorf("failed to commit %s: %w", name, err)
		}
	}

	tx.pending = make(map[string][]byte)
	tx.order = nil

	return nil
}

func (p *Persistence) Rollback(ctx context.Context) error {
	tx, ok := transactionFrom(ctx)
	if !ok {
		return persistence.ErrNoTransaction
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.pending = make(map[string][]byte)
	tx.order = nil

	return nil
}

// read returns the transaction's pending copy of name when there is one. Callers hold p.mu.
func (p *Persistence) read(ctx context.Context, name string) ([]byte, error) {
	if tx, ok := transactionFrom(ctx); ok {
		tx.mu.Lock()
		data, pending := tx.pending[name]
		tx.mu.Unlock()

		if pending {
			return data, nil
		}
	}

	data, err := os.ReadFile(filepath.Clean(filepath.Join(p.root, name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}

		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return data, nil
}

// write buffers name in the context transaction, or writes it through. Callers hold p.mu.
func (p *Persistence) write(ctx context.Context, name string, data []byte) error {
	if tx, ok := transactionFrom(ctx); ok {
		tx.mu.Lock()
		defer tx.mu.Unlock()

		if _, exists := tx.pending[name]; !exists {
			tx.order = append(tx.order, name)
		}

		tx.pending[name] = data

		return nil
	}

	return p.writeFile(name, data)
}

func (p *Persistence) writeFile(name string, data []byte) error {
	filePath := filepath.Clean(filepath.Join(p.root, name))

	err := os.MkdirAll(filepath.Dir(filePath), 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	return os.WriteFile(filePath, data, 0600)
}
