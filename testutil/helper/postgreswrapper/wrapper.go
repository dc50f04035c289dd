package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
	"github.com/AntonStoeckl/library-catalog-go/config"
)

const truncateAll = `TRUNCATE TABLE book_edition_loan, reader, book_edition_translator, book_edition,
	book_genre, book_author, book, translator, genre, author, publisher, country, language RESTART IDENTITY CASCADE`

// Wrapper abstracts over the connection types behind an Engine.
type Wrapper interface {
	GetEngine() *postgresengine.Engine
	Exec(ctx context.Context, query string, args ...any) error
	Close()
}

type PGXPoolWrapper struct {
	pool    *pgxpool.Pool
	replica *pgxpool.Pool
	engine  *postgresengine.Engine
}

func (w *PGXPoolWrapper) GetEngine() *postgresengine.Engine {
	return w.engine
}

func (w *PGXPoolWrapper) Exec(ctx context.Context, query string, args ...any) error {
	_, err := w.pool.Exec(ctx, query, args...)
	return err
}

func (w *PGXPoolWrapper) Close() {
	if w.replica != nil {
		w.replica.Close()
	}
	w.pool.Close()
}

type SQLDBWrapper struct {
	db     *sql.DB
	engine *postgresengine.Engine
}

func (w *SQLDBWrapper) GetEngine() *postgresengine.Engine {
	return w.engine
}

func (w *SQLDBWrapper) Exec(ctx context.Context, query string, args ...any) error {
	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // nothing to do about it in a test
}

type SQLXWrapper struct {
	db     *sqlx.DB
	engine *postgresengine.Engine
}

func (w *SQLXWrapper) GetEngine() *postgresengine.Engine {
	return w.engine
}

func (w *SQLXWrapper) Exec(ctx context.Context, query string, args ...any) error {
	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // nothing to do about it in a test
}

var (
	resolveDSN  sync.Once
	resolvedDSN string
	resolveErr  error
	schemaOnce  sync.Once
)

// CreateWrapperWithTestConfig connects, applies the schema once per test binary, and returns the wrapper.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	dsn := testDSN(t)

	var wrapper Wrapper

	switch adapterType := config.AdapterType(); adapterType {
	case config.AdapterPGXPool:
		pool := newPool(t, dsn)
		engine, err := postgresengine.NewEngineFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating engine")
		wrapper = &PGXPoolWrapper{pool: pool, engine: engine}

	case config.AdapterSQLDB:
		db, err := config.PostgresSQLDB(dsn)
		require.NoError(t, err, "error opening sql.DB")
		engine, err := postgresengine.NewEngineFromSQLDB(db, options...)
		require.NoError(t, err, "error creating engine")
		wrapper = &SQLDBWrapper{db: db, engine: engine}

	case config.AdapterSQLXDB:
		db, err := config.PostgresSQLX(dsn)
		require.NoError(t, err, "error opening sqlx.DB")
		engine, err := postgresengine.NewEngineFromSQLX(db, options...)
		require.NoError(t, err, "error creating engine")
		wrapper = &SQLXWrapper{db: db, engine: engine}

	default:
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterType))
	}

	applySchema(t, wrapper.GetEngine())

	return wrapper
}

// CreateWrapperWithReplica uses a second pgx pool on the same database as read replica.
// It skips the test for the database/sql adapters, which have no replica support.
func CreateWrapperWithReplica(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	if config.AdapterType() != config.AdapterPGXPool {
		t.Skip("read replicas are only supported with pgx.pool")
	}

	dsn := testDSN(t)
	pool := newPool(t, dsn)
	replica := newPool(t, dsn)

	engine, err := postgresengine.NewEngineFromPGXPoolWithReplica(pool, replica, options...)
	require.NoError(t, err, "error creating engine")

	applySchema(t, engine)

	return &PGXPoolWrapper{pool: pool, replica: replica, engine: engine}
}

// CleanUp empties all catalog tables.
func CleanUp(t testing.TB, wrapper Wrapper) {
	require.NoError(t, wrapper.Exec(context.Background(), truncateAll), "error cleaning up the catalog tables")
}

func newPool(t testing.TB, dsn string) *pgxpool.Pool {
	poolConfig, err := config.PostgresPGXPoolConfig(dsn)
	require.NoError(t, err, "error parsing DSN")

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	require.NoError(t, err, "error connecting to DB pool in test setup")

	return pool
}

func applySchema(t testing.TB, engine *postgresengine.Engine) {
	var err error
	schemaOnce.Do(func() {
		err = engine.ApplySchema(context.Background())
	})
	require.NoError(t, err, "error applying schema")
}

// testDSN probes the configured database and falls back to a container.
func testDSN(t testing.TB) string {
	resolveDSN.Do(func() {
		resolvedDSN = config.PostgresDSN()
		if reachable(resolvedDSN) {
			return
		}

		resolvedDSN, resolveErr = startContainer()
	})

	if resolveErr != nil {
		t.Skipf("no PostgreSQL available: %v", resolveErr)
	}

	return resolvedDSN
}

func reachable(dsn string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return false
	}
	defer pool.Close()

	return pool.Ping(ctx) == nil
}

// startContainer runs postgres for the lifetime of the test binary; the testcontainers reaper removes it.
func startContainer() (dsn string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("testcontainers: %v", r)
		}
	}()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("library"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return "", err
	}

	return container.ConnectionString(ctx, "sslmode=disable")
}
