package postgres

import (
	"fmt"

	"github.com/bxu-infra/kml-dashboard/config"
)

func DSN(cfg *config.DatabaseConfig) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslmode,
	)
}

// DriverName picks the database/sql driver; pgx unless DB_DRIVER selects lib/pq.
func DriverName(cfg *config.DatabaseConfig) string {
	if cfg.Driver == config.DBDriverPq {
		return config.DBDriverPq
	}
	return config.DBDriverPgx
}
