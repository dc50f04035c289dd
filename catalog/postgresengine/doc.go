// Package postgresengine implements the catalog repositories on PostgreSQL.
//
// An Engine is created from one of the supported connection types (pgxpool.Pool, sql.DB, sqlx.DB)
// and shared by all repositories. Every repository call is self-contained: it acquires a connection,
// optionally a transaction, and releases both before returning.
//
// Reads are built with goqu and materialized into aggregates by package materializer. Writes that
// open a loan or reduce the copies of an edition lock the edition row, count its open loans in a
// following statement and consult package availability before writing, all within one transaction.
//
// Store errors are translated into the catalog error kinds using SQLSTATE codes and constraint names.
package postgresengine
