package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/persistence"
	"github.com/dukex/regflow/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"invoices", "license_sequences", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL tests in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("regflow_test"),
			postgres.WithUsername("regflow"),
			postgres.WithPassword("regflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"invoices", "license_sequences", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func newInvoice() *models.Invoice {
	return &models.Invoice{
		ID:      uuid.New().String(),
		Purpose: "renewal",
		Record:  models.Record{"license_number": "MDC/PN/00007", "category": "doctor"},
		LineItems: []models.LineItem{
			{Name: "Renewal fee", Amount: 450, Currency: "GHS"},
			{Name: "Late penalty", Amount: 50.5, Currency: "GHS"},
		},
		Total:    500.5,
		Currency: "GHS",
	}
}

func TestInvoiceRepository_SaveAndGet(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.InvoiceRepository()

	invoice := newInvoice()
	require.NoError(t, repo.Save(ctx, invoice))

	stored, err := repo.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.Purpose, stored.Purpose)
	assert.Equal(t, invoice.LineItems, stored.LineItems)
	assert.InDelta(t, 500.5, stored.Total, 0.001)
	assert.Equal(t, "MDC/PN/00007", stored.Record["license_number"])

	err = repo.Save(ctx, invoice)
	require.ErrorIs(t, err, persistence.ErrInvoiceAlreadyExists)

	_, err = repo.GetByID(ctx, uuid.New().String())
	assert.True(t, persistence.IsInvoiceNotFound(err))
}

func TestSequenceRepository_Next(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	sequencer := p.Sequencer()

	for expected := int64(1); expected <= 3; expected++ {
		next, err := sequencer.Next(ctx, "doctors")
		require.NoError(t, err)
		assert.Equal(t, expected, next)
	}

	next, err := sequencer.Next(ctx, "format:PC/{number}")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestTransactionManager_RollbackDiscardsWrites(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	tx := p.TransactionManager()

	txCtx, err := tx.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.Begin(txCtx)
	require.ErrorIs(t, err, persistence.ErrTransactionActive)

	invoice := newInvoice()
	require.NoError(t, p.InvoiceRepository().Save(txCtx, invoice))

	next, err := p.Sequencer().Next(txCtx, "doctors")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	require.NoError(t, tx.Rollback(txCtx))

	_, err = p.InvoiceRepository().GetByID(ctx, invoice.ID)
	assert.True(t, persistence.IsInvoiceNotFound(err))

	next, err = p.Sequencer().Next(ctx, "doctors")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestTransactionManager_CommitKeepsWrites(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	tx := p.TransactionManager()

	txCtx, err := tx.Begin(ctx)
	require.NoError(t, err)

	invoice := newInvoice()
	require.NoError(t, p.InvoiceRepository().Save(txCtx, invoice))
	require.NoError(t, tx.Commit(txCtx))

	_, err = p.InvoiceRepository().GetByID(ctx, invoice.ID)
	require.NoError(t, err)

	require.ErrorIs(t, tx.Commit(ctx), persistence.ErrNoTransaction)
	require.ErrorIs(t, tx.Rollback(ctx), persistence.ErrNoTransaction)
}
