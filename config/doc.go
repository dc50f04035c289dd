// Package config provides PostgreSQL connection settings for the catalog.
//
// Settings come from the environment, optionally seeded from a .env file in the working directory.
// The DSN and pool factories are shared by the catalogctl command and the integration tests,
// and support the three adapter types of the postgres engine (pgx.pool, sql.db, sqlx.db).
package config
