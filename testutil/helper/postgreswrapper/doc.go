// Package postgreswrapper gives integration tests a catalog Engine over the adapter selected by ADAPTER_TYPE
// (pgx.pool, sql.db or sqlx.db).
//
// The database is taken from config.PostgresDSN. When that server is unreachable a throwaway
// PostgreSQL container is started with testcontainers; when Docker is unavailable too, the test is skipped.
//
//	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
//	defer wrapper.Close()
//	engine := wrapper.GetEngine()
package postgreswrapper
