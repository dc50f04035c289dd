package postgresengine

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/materializer"
	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine/internal/adapters"
)

const (
	dialectPostgres      = "postgres"
	operationApplySchema = "engine.apply_schema"
)

//go:embed schema.sql
var schemaSQL string

var builder = goqu.Dialect(dialectPostgres)

// Engine is the Connection/Transaction Gateway shared by all repositories.
type Engine struct {
	db               adapters.DBAdapter
	logger           catalog.Logger
	contextualLogger catalog.ContextualLogger
	metricsCollector catalog.MetricsCollector
	tracingCollector catalog.TracingCollector
}

// NewEngineFromPGXPool creates a new Engine using a pgx Pool with optional configuration.
func NewEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), options...)
}

// NewEngineFromPGXPoolWithReplica creates a new Engine that serves reads from the replica pool
// when the context carries catalog.WithEventualConsistency.
func NewEngineFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil || replica == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional configuration.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), options...)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional configuration.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), options...)
}

func newEngine(db adapters.DBAdapter, options ...Option) (*Engine, error) {
	e := &Engine{db: db}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Ping checks that the store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.Ping(ctx); err != nil {
		e.logErrorContext(ctx, logMsgPingFailed, err)
		return errors.Join(catalog.ErrConnectionFailed, err)
	}

	return nil
}

// ApplySchema creates all tables, constraints and indexes that do not exist yet.
func (e *Engine) ApplySchema(ctx context.Context) error {
	return e.observe(ctx, operationApplySchema, func(ctx context.Context) (int, error) {
		start := time.Now()
		_, err := e.db.Exec(ctx, schemaSQL)
		e.logQueryWithDuration(ctx, operationApplySchema, time.Since(start), "schema.sql")

		if err != nil {
			e.logErrorContext(ctx, logMsgDBExecFailed, err, logAttrOperation, operationApplySchema)
			return 0, translateError(err)
		}

		return 0, nil
	})
}

// reader returns the querier for reads outside transactions, honoring the consistency level of ctx.
func (e *Engine) reader(ctx context.Context) adapters.Querier {
	if catalog.GetConsistencyLevel(ctx) == catalog.EventualConsistency {
		return replicaReader{db: e.db}
	}

	return e.db
}

type replicaReader struct {
	db adapters.DBAdapter
}

func (r replicaReader) Query(ctx context.Context, query string, args ...any) (adapters.DBRows, error) {
	return r.db.ReplicaQuery(ctx, query, args...)
}

func (r replicaReader) Exec(ctx context.Context, query string, args ...any) (adapters.DBResult, error) {
	return r.db.Exec(ctx, query, args...)
}

// withinTx runs fn in a transaction. Any error or panic after BEGIN rolls the transaction back.
func (e *Engine) withinTx(ctx context.Context, fn func(tx adapters.Querier) error) (err error) {
	tx, beginErr := e.db.BeginTx(ctx)
	if beginErr != nil {
		e.logErrorContext(ctx, logMsgBeginTxFailed, beginErr)
		return errors.Join(catalog.ErrTransactionFailed, translateError(beginErr))
	}

	finished := false

	defer func() {
		if p := recover(); p != nil {
			e.rollback(ctx, tx)
			panic(p)
		}

		if err != nil && !finished {
			e.rollback(ctx, tx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	finished = true
	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logErrorContext(ctx, logMsgCommitFailed, commitErr)
		return errors.Join(catalog.ErrTransactionFailed, translateError(commitErr))
	}

	return nil
}

func (e *Engine) rollback(ctx context.Context, tx adapters.DBTx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		e.logWarnContext(ctx, logMsgRollbackFailed, err)
	}
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (e *Engine) toSQL(ctx context.Context, operation string, ds sqlBuilder) (string, []any, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		e.logErrorContext(ctx, logMsgBuildQueryFailed, err, logAttrOperation, operation)
		return "", nil, errors.Join(catalog.ErrBuildingQueryFailed, err)
	}

	return query, args, nil
}

// query runs a select and returns its rows. The caller must close them.
func (e *Engine) query(ctx context.Context, q adapters.Querier, operation string, ds sqlBuilder) (adapters.DBRows, error) {
	query, args, err := e.toSQL(ctx, operation, ds)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, queryErr := q.Query(ctx, query, args...)
	e.logQueryWithDuration(ctx, operation, time.Since(start), query)

	if queryErr != nil {
		e.logErrorContext(ctx, logMsgDBQueryFailed, queryErr, logAttrOperation, operation, logAttrQuery, query)
		return nil, translateError(queryErr)
	}

	return rows, nil
}

// exec runs a statement and returns the number of affected rows.
func (e *Engine) exec(ctx context.Context, q adapters.Querier, operation string, ds sqlBuilder) (int64, error) {
	query, args, err := e.toSQL(ctx, operation, ds)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	result, execErr := q.Exec(ctx, query, args...)
	e.logQueryWithDuration(ctx, operation, time.Since(start), query)

	if execErr != nil {
		e.logErrorContext(ctx, logMsgDBExecFailed, execErr, logAttrOperation, operation, logAttrQuery, query)
		return 0, translateError(execErr)
	}

	affected, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		e.logErrorContext(ctx, logMsgRowsAffectedFailed, affectedErr, logAttrOperation, operation)
		return 0, errors.Join(catalog.ErrQueryFailed, affectedErr)
	}

	return affected, nil
}

// execExpectingRow is exec for updates and deletes of one entity: zero affected rows is ErrNotFound.
func (e *Engine) execExpectingRow(ctx context.Context, q adapters.Querier, operation string, ds sqlBuilder, key any) error {
	affected, err := e.exec(ctx, q, operation, ds)
	if err != nil {
		return err
	}

	if affected == 0 {
		return errors.Join(catalog.ErrNotFound, fmt.Errorf("%s: no row with key %v", operation, key))
	}

	return nil
}

func (e *Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		e.logWarnContext(ctx, logMsgCloseRowsFailed, err)
	}
}

// scalar runs a select returning one row with one column and scans it into T.
// found is false when the select returned no row.
func scalar[T any](ctx context.Context, e *Engine, q adapters.Querier, operation string, ds sqlBuilder) (value T, found bool, err error) {
	rows, err := e.query(ctx, q, operation, ds)
	if err != nil {
		return value, false, err
	}
	defer e.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return value, false, translateError(rowsErr)
		}

		return value, false, nil
	}

	if scanErr := rows.Scan(&value); scanErr != nil {
		e.logErrorContext(ctx, logMsgScanRowFailed, scanErr, logAttrOperation, operation)
		return value, false, errors.Join(catalog.ErrScanningDBRowFailed, scanErr)
	}

	return value, true, nil
}

// collect runs a select and materializes its rows with plan.
func collect[R any](ctx context.Context, e *Engine, q adapters.Querier, operation string, ds sqlBuilder, plan *materializer.Plan[R]) ([]R, error) {
	rows, err := e.query(ctx, q, operation, ds)
	if err != nil {
		return nil, err
	}
	defer e.closeRows(ctx, rows)

	roots, collectErr := materializer.Collect(plan, rows)
	if collectErr != nil {
		e.logErrorContext(ctx, logMsgScanRowFailed, collectErr, logAttrOperation, operation)
		return nil, errors.Join(catalog.ErrScanningDBRowFailed, translateError(collectErr))
	}

	return roots, nil
}

// collectOne is collect for lookups by key: first root or nil.
func collectOne[R any](ctx context.Context, e *Engine, q adapters.Querier, operation string, ds sqlBuilder, plan *materializer.Plan[*R]) (*R, error) {
	roots, err := collect(ctx, e, q, operation, ds, plan)
	if err != nil || len(roots) == 0 {
		return nil, err
	}

	return roots[0], nil
}

// scanAll runs a select and scans each row with scan.
func scanAll[T any](ctx context.Context, e *Engine, q adapters.Querier, operation string, ds sqlBuilder, scan func(rows adapters.DBRows) (T, error)) ([]T, error) {
	rows, err := e.query(ctx, q, operation, ds)
	if err != nil {
		return nil, err
	}
	defer e.closeRows(ctx, rows)

	out := make([]T, 0)
	for rows.Next() {
		item, scanErr := scan(rows)
		if scanErr != nil {
			e.logErrorContext(ctx, logMsgScanRowFailed, scanErr, logAttrOperation, operation)
			return nil, errors.Join(catalog.ErrScanningDBRowFailed, scanErr)
		}

		out = append(out, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, translateError(rowsErr)
	}

	return out, nil
}
