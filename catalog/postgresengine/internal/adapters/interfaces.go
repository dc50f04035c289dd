package adapters

import "context"

// Querier executes statements with positional arguments.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
}

// DBAdapter defines the database operations needed by the catalog engine.
// Query and Exec run on the primary. ReplicaQuery runs on a replica if one is configured.
type DBAdapter interface {
	Querier
	ReplicaQuery(ctx context.Context, query string, args ...any) (DBRows, error)
	BeginTx(ctx context.Context) (DBTx, error)
	Ping(ctx context.Context) error
}

// DBTx is a transaction that exclusively owns one connection.
type DBTx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
