package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
	"github.com/pulsecrm/pulse/pkg/persistence/file"
	"github.com/pulsecrm/pulse/pkg/persistence/postgresql"
)

// NewPersistence selects a storage backend from the database URL scheme.
// "postgres://" URLs get PostgreSQL; anything else is treated as a file
// persistence root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, entities *models.EntityRegistry) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL, entities)
		if err != nil {
			return nil, fmt.Errorf("initializing postgres persistence: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL, entities), nil
	}
}

func parseProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
