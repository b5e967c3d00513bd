package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bxu-infra/kml-dashboard/config"
	"github.com/bxu-infra/kml-dashboard/internal/storage/postgres"
	"github.com/bxu-infra/kml-dashboard/internal/users"
)

// OpenDB connects to Postgres and makes sure the users table exists.
// It returns nil, nil when no database is configured.
func OpenDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	db, err := postgres.NewConnection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := users.NewRepo(db).EnsureSchema(sctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db schema: %w", err)
	}

	return db, nil
}
