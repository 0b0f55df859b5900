// Package postgresql provides PostgreSQL persistence for invoices and license sequences.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/regflow/pkg/persistence"
	"github.com/dukex/regflow/pkg/persistence/sqlbase"
	"github.com/dukex/regflow/pkg/protocol"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	invoiceRepo  *InvoiceRepository
	sequenceRepo *SequenceRepository
	txManager    *sqlbase.TxManager
}

// NewPersistence connects to databaseURL and runs migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		invoiceRepo:  NewInvoiceRepository(database),
		sequenceRepo: NewSequenceRepository(database),
		txManager:    sqlbase.NewTxManager(database),
	}, nil
}

func (p *Persistence) InvoiceRepository() persistence.InvoiceRepository {
	return p.invoiceRepo
}

func (p *Persistence) Sequencer() protocol.Sequencer {
	return p.sequenceRepo
}

func (p *Persistence) TransactionManager() protocol.TransactionManager {
	return p.txManager
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
