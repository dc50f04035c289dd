package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

// PostgresSQLX opens a *sqlx.DB backed by lib/pq. The connection is not verified.
func PostgresSQLX(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlx.DB: %w", err)
	}

	configurePool(db)

	return db, nil
}
