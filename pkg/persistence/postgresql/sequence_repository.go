package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukex/regflow/pkg/persistence/sqlbase"
)

// SequenceRepository advances license number counters with an upsert. Inside a
// transaction the row stays locked until commit, so a rolled back completion
// gives its number back.
type SequenceRepository struct {
	db *sql.DB
}

func NewSequenceRepository(db *sql.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) Next(ctx context.Context, key string) (int64, error) {
	query := `
		INSERT INTO license_sequences (key, value)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE
		SET value = license_sequences.value + 1, updated_at = NOW()
		RETURNING value`

	var next int64

	err := sqlbase.QuerierFrom(ctx, r.db).QueryRowContext(ctx, query, key).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %q: %w", key, err)
	}

	return next, nil
}
