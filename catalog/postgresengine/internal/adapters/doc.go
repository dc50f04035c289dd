// Package adapters provide database adapter implementations for the PostgreSQL catalog engine.
//
// Three PostgreSQL database libraries are supported: pgx.Pool, sql.DB, and sqlx.DB.
// All of them are presented through the DBAdapter interface, which adds transactions with
// READ COMMITTED isolation on top of plain query execution. The pgx adapter can route reads
// to an optional replica pool.
package adapters
