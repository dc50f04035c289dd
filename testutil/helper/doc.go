// Package helper provides test doubles and fixture builders for catalog tests.
//
// The spies record calls of the catalog observability interfaces and of slog so that tests can
// assert on emitted logs, metrics and spans. The Given* builders insert uniquely named rows through
// the postgres repositories.
package helper
