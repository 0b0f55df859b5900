package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/regflow/pkg/persistence"
	"github.com/dukex/regflow/pkg/persistence/file"
	"github.com/dukex/regflow/pkg/persistence/postgresql"
)

// NewPersistence picks the backend from the URL scheme: postgres:// and postgresql://
// use PostgreSQL, anything else is a file:// root directory.
//
//nolint:ireturn // backend chosen at runtime
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
